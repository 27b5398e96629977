package service

import (
	"math/rand"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QuizSessionSize 单次练习的题目数上限
const QuizSessionSize = 10

// quizUnansweredMin 未答题目达到该数量时，本次练习只从未答题目中抽取
const quizUnansweredMin = 5

// QuizSession 内存中的练习会话。题目序列在创建时固定，线性推进。
// 每道题经历 未作答 -> 已作答（揭示答案） 两个状态，揭示后选项锁定
type QuizSession struct {
	ID         string
	UserID     uint
	Category   model.QuestionCategory
	Questions  []*model.Question
	Index      int
	Selected   *int
	Revealed   bool
	ShownAt    time.Time
	LastActive time.Time
}

// QuizQuestionView 对外暴露的题目视图，揭示前不含正确答案与解说
type QuizQuestionView struct {
	ID         string                 `json:"id"`
	Category   model.QuestionCategory `json:"category"`
	Question   string                 `json:"question"`
	Options    []string               `json:"options"`
	Difficulty model.Difficulty       `json:"difficulty"`
	Tags       []string               `json:"tags"`
}

// QuizStateView 会话当前状态
type QuizStateView struct {
	SessionID string            `json:"sessionId"`
	Index     int               `json:"index"`
	Total     int               `json:"total"`
	Question  *QuizQuestionView `json:"question"`
	Selected  *int              `json:"selected"`
	Revealed  bool              `json:"revealed"`
}

// QuizSubmitResult 提交后的揭示结果
type QuizSubmitResult struct {
	Correct       bool               `json:"correct"`
	CorrectAnswer int                `json:"correctAnswer"`
	Explanation   string             `json:"explanation"`
	Progress      model.UserProgress `json:"progress"`
}

// QuizService 按分类发起练习会话并将每次提交转交给进度服务。
// 会话只存在于内存中，闲置超时后被后台清扫回收
type QuizService struct {
	Progress *ProgressService
	Bank     *data.Bank

	mu       sync.Mutex
	sessions map[string]*QuizSession
	idleTTL  time.Duration
	now      func() time.Time
}

func NewQuizService(progress *ProgressService, bank *data.Bank, idleTTL time.Duration) *QuizService {
	return &QuizService{
		Progress: progress,
		Bank:     bank,
		sessions: make(map[string]*QuizSession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Start 创建练习会话。选题规则：分类内未答题目不少于5道时只从未答题目抽取，
// 否则回退到该分类全部题目（允许重复练习已答题目凑满一组）。
// 从候选集中均匀洗牌后取前10道（不足10道时全取）
func (s *QuizService) Start(userID uint, category model.QuestionCategory) (*QuizStateView, error) {
	if !category.Valid() {
		return nil, util.ErrCategoryUnknown
	}
	pool := s.Bank.ByCategory(category)
	if len(pool) == 0 {
		return nil, util.ErrCategoryEmpty
	}

	progress := s.Progress.Get(userID)
	unanswered := make([]*model.Question, 0, len(pool))
	for _, q := range pool {
		if !progress.HasAnswered(q.ID) {
			unanswered = append(unanswered, q)
		}
	}

	working := pool
	if len(unanswered) >= quizUnansweredMin {
		working = unanswered
	}

	questions := make([]*model.Question, len(working))
	copy(questions, working)
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > QuizSessionSize {
		questions = questions[:QuizSessionSize]
	}

	now := s.now()
	sess := &QuizSession{
		ID:         uuid.New().String(),
		UserID:     userID,
		Category:   category,
		Questions:  questions,
		ShownAt:    now,
		LastActive: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return s.view(sess), nil
}

// State 查询会话状态
func (s *QuizService) State(userID uint, sessionID string) (*QuizStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// Select 记录当前题目的暂定选项。已揭示的题目上选择被忽略（幂等保护）
func (s *QuizService) Select(userID uint, sessionID string, option int) (*QuizStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Revealed {
		q := sess.Questions[sess.Index]
		if option < 0 || option >= len(q.Options) {
			return nil, util.ErrInvalidOption
		}
		sess.Selected = &option
	}
	sess.LastActive = s.now()
	return s.view(sess), nil
}

// Submit 判定当前题目并向进度服务提交一条答题记录（恰好一次）。
// 持久化从会话视角是 fire-and-forget：失败不重试
func (s *QuizService) Submit(userID uint, sessionID string) (*QuizSubmitResult, error) {
	s.mu.Lock()
	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.Revealed {
		s.mu.Unlock()
		return nil, util.ErrSessionFinished
	}
	if sess.Selected == nil {
		s.mu.Unlock()
		return nil, util.ErrNoSelection
	}

	q := sess.Questions[sess.Index]
	selected := *sess.Selected
	now := s.now()
	answer := model.UserAnswer{
		QuestionID:     q.ID,
		SelectedAnswer: selected,
		IsCorrect:      selected == q.CorrectAnswer,
		Timestamp:      now.UnixMilli(),
		TimeSpent:      int(now.Sub(sess.ShownAt).Seconds()),
	}
	sess.Revealed = true
	sess.LastActive = now
	s.mu.Unlock()

	progress := s.Progress.SubmitAnswer(userID, answer)

	return &QuizSubmitResult{
		Correct:       answer.IsCorrect,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Progress:      progress,
	}, nil
}

// Advance 推进到下一题并重置选择与计时锚点；没有下一题时结束并移除会话
func (s *QuizService) Advance(userID uint, sessionID string) (*QuizStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Revealed {
		return nil, util.ErrNoSelection
	}

	if sess.Index+1 >= len(sess.Questions) {
		delete(s.sessions, sessionID)
		return &QuizStateView{
			SessionID: sess.ID,
			Index:     len(sess.Questions),
			Total:     len(sess.Questions),
		}, nil
	}

	now := s.now()
	sess.Index++
	sess.Selected = nil
	sess.Revealed = false
	sess.ShownAt = now
	sess.LastActive = now
	return s.view(sess), nil
}

// Abandon 主动结束会话（页面离开时的资源清理契约）
func (s *QuizService) Abandon(userID uint, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionLocked(userID, sessionID); err != nil {
		return err
	}
	delete(s.sessions, sessionID)
	return nil
}

// SweepExpired 回收闲置超时的会话，由后台定时任务调用
func (s *QuizService) SweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > s.idleTTL {
			delete(s.sessions, id)
		}
	}
}

func (s *QuizService) sessionLocked(userID uint, sessionID string) (*QuizSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return sess, nil
}

func (s *QuizService) view(sess *QuizSession) *QuizStateView {
	q := sess.Questions[sess.Index]
	return &QuizStateView{
		SessionID: sess.ID,
		Index:     sess.Index,
		Total:     len(sess.Questions),
		Question: &QuizQuestionView{
			ID:         q.ID,
			Category:   q.Category,
			Question:   q.Question,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			Tags:       q.Tags,
		},
		Selected: sess.Selected,
		Revealed: sess.Revealed,
	}
}
