package service

import (
	"encoding/json"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/repository"
	"pharm_exam_backend/pkg/logger"
	"pharm_exam_backend/pkg/monitoring"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProgressService 独占管理用户学习进度与答题日志。
// 每次变更都对整条快照做读-改-写，并以用户粒度加锁串行化。
// 变更操作不向调用方返回错误：持久化失败只记日志，内存结果照常返回
// （代价是下次冷启动可能丢失本次更新，这一降级行为是可接受的）
type ProgressService struct {
	Blobs repository.BlobStore
	Bank  *data.Bank

	locks sync.Map // userID -> *sync.Mutex
	now   func() time.Time
}

func NewProgressService(blobs repository.BlobStore, bank *data.Bank) *ProgressService {
	return &ProgressService{
		Blobs: blobs,
		Bank:  bank,
		now:   time.Now,
	}
}

func (s *ProgressService) userLock(userID uint) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// initialEnvelope 按当前题库构造零值快照
func (s *ProgressService) initialEnvelope() *model.ProgressEnvelope {
	return &model.ProgressEnvelope{
		SchemaVersion: model.ProgressSchemaVersion,
		Progress:      model.InitialProgress(s.Bank.CountByCategory()),
		Answers:       []model.UserAnswer{},
	}
}

// load 读取快照。缺失、读取失败、解析失败、版本不符都退回零值，绝不向上抛错
func (s *ProgressService) load(userID uint) *model.ProgressEnvelope {
	blob, err := s.Blobs.Get(userID, model.BlobKindProgress)
	if err != nil {
		logger.Log.Error("failed to load progress, falling back to defaults",
			zap.Uint("userID", userID), zap.Error(err))
		return s.initialEnvelope()
	}
	if blob == nil {
		return s.initialEnvelope()
	}

	var env model.ProgressEnvelope
	if err := json.Unmarshal([]byte(blob.Data), &env); err != nil {
		logger.Log.Error("unparsable progress blob, falling back to defaults",
			zap.Uint("userID", userID), zap.Error(err))
		return s.initialEnvelope()
	}
	if env.SchemaVersion != model.ProgressSchemaVersion {
		logger.Log.Warn("unsupported progress schema version, falling back to defaults",
			zap.Uint("userID", userID), zap.Int("schemaVersion", env.SchemaVersion))
		return s.initialEnvelope()
	}

	if env.Answers == nil {
		env.Answers = []model.UserAnswer{}
	}
	if env.Progress.AnsweredQuestions == nil {
		env.Progress.AnsweredQuestions = []string{}
	}
	if env.Progress.MockExamScores == nil {
		env.Progress.MockExamScores = map[string][]int{}
	}
	return &env
}

// persist 整体写入快照。写失败不回滚内存状态
func (s *ProgressService) persist(userID uint, env *model.ProgressEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Log.Error("failed to serialize progress", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	if err := s.Blobs.Put(userID, model.BlobKindProgress, env.SchemaVersion, payload); err != nil {
		logger.Log.Error("failed to persist progress", zap.Uint("userID", userID), zap.Error(err))
	}
}

// Get 当前进度（缺失时为零值进度）
func (s *ProgressService) Get(userID uint) model.UserProgress {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	return s.load(userID).Progress
}

// Answers 完整答题日志
func (s *ProgressService) Answers(userID uint) []model.UserAnswer {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	return s.load(userID).Answers
}

// SubmitAnswer 记录一次答题并更新 XP/等级/连续学习天数/分类进度。
// 引用了未知题目的答题记录整体作废（静默不处理）。
// 同一题目重复作答只在第一次计入 answeredQuestions，但每次答对都计入 correctAnswers
func (s *ProgressService) SubmitAnswer(userID uint, answer model.UserAnswer) model.UserProgress {
	q, ok := s.Bank.ByID(answer.QuestionID)
	if !ok {
		logger.Log.Warn("answer references unknown question, ignored",
			zap.Uint("userID", userID), zap.String("questionID", answer.QuestionID))
		return s.Get(userID)
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.load(userID)
	env.Answers = append(env.Answers, answer)
	p := &env.Progress

	// 连续学习天数：按本地日历日判断。只增不减，隔天未学习也不清零（沿用线上行为）
	today := s.now().Format("2006-01-02")
	if p.LastStudyDate != today {
		p.Streak++
		p.LastStudyDate = today
	}

	xpGain := 3
	if answer.IsCorrect {
		xpGain = 10
	}
	p.TotalXP += xpGain
	p.Level = p.TotalXP/100 + 1

	isNewQuestion := !p.HasAnswered(answer.QuestionID)
	if isNewQuestion {
		p.AnsweredQuestions = append(p.AnsweredQuestions, answer.QuestionID)
	}

	if cat := p.CategoryEntry(q.Category); cat != nil {
		if isNewQuestion {
			cat.AnsweredQuestions++
		}
		if answer.IsCorrect {
			cat.CorrectAnswers++
		}
		cat.Level = cat.CorrectAnswers/5 + 1
	}

	s.persist(userID, env)

	monitoring.AnswerCounter.WithLabelValues(
		string(q.Category),
		strconv.FormatBool(answer.IsCorrect),
	).Inc()

	return *p
}

// RecordMockExamScore 追加一次模拟考试得分。不影响 XP/连续天数/等级
func (s *ProgressService) RecordMockExamScore(userID uint, examID string, score int) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.load(userID)
	env.Progress.MockExamScores[examID] = append(env.Progress.MockExamScores[examID], score)
	s.persist(userID, env)
}

// Reset 清空进度与答题日志，按当前题库重建零值状态。不可逆
func (s *ProgressService) Reset(userID uint) model.UserProgress {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.initialEnvelope()
	s.persist(userID, env)
	return env.Progress
}

// ExamResult 单个模拟考试的成绩汇总
type ExamResult struct {
	ExamID   string `json:"examId"`
	Title    string `json:"title"`
	Attempts int    `json:"attempts"`
	Best     int    `json:"best"`
	Latest   int    `json:"latest"`
	Passed   bool   `json:"passed"` // 最近一次是否达到合格线
}

// StudyStats 统计页用的只读汇总
type StudyStats struct {
	TotalXP          int                      `json:"totalXP"`
	Level            int                      `json:"level"`
	Streak           int                      `json:"streak"`
	TotalAnswers     int                      `json:"totalAnswers"`
	CorrectAnswers   int                      `json:"correctAnswers"`
	Accuracy         float64                  `json:"accuracy"`
	DistinctAnswered int                      `json:"distinctAnswered"`
	Categories       []model.CategoryProgress `json:"categories"`
	ExamResults      []ExamResult             `json:"examResults"`
}

// Stats 聚合当前进度与答题日志，不做任何修改
func (s *ProgressService) Stats(userID uint) StudyStats {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.load(userID)
	p := env.Progress

	correct := 0
	for _, a := range env.Answers {
		if a.IsCorrect {
			correct++
		}
	}

	accuracy := 0.0
	if len(env.Answers) > 0 {
		accuracy = float64(correct) / float64(len(env.Answers))
	}

	results := make([]ExamResult, 0, len(p.MockExamScores))
	for _, exam := range s.Bank.Exams() {
		scores := p.MockExamScores[exam.ID]
		if len(scores) == 0 {
			continue
		}
		best := scores[0]
		for _, sc := range scores {
			if sc > best {
				best = sc
			}
		}
		latest := scores[len(scores)-1]
		results = append(results, ExamResult{
			ExamID:   exam.ID,
			Title:    exam.Title,
			Attempts: len(scores),
			Best:     best,
			Latest:   latest,
			Passed:   latest >= MockExamPassScore,
		})
	}

	return StudyStats{
		TotalXP:          p.TotalXP,
		Level:            p.Level,
		Streak:           p.Streak,
		TotalAnswers:     len(env.Answers),
		CorrectAnswers:   correct,
		Accuracy:         accuracy,
		DistinctAnswered: len(p.AnsweredQuestions),
		Categories:       p.CategoryProgress,
		ExamResults:      results,
	}
}
