package service

import (
	"math"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"
	"pharm_exam_backend/pkg/logger"
	"pharm_exam_backend/pkg/monitoring"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockExamPassScore 合格线（百分制）
const MockExamPassScore = 70

// ExamSession 内存中的模拟考试会话。计时基于创建时确定的 deadline，
// 剩余时间在读取时计算，没有每会话的计时器协程
type ExamSession struct {
	ID           string
	UserID       uint
	ExamID       string
	Questions    []*model.Question
	Answers      []*int
	StartedAt    time.Time
	Deadline     time.Time
	Finished     bool
	Score        int
	CorrectCount int
}

// ExamQuestionView 考试中的题目视图，交卷前不含正确答案与解说
type ExamQuestionView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Selected *int     `json:"selected"`
}

// ExamStateView 考试会话状态
type ExamStateView struct {
	SessionID string             `json:"sessionId"`
	ExamID    string             `json:"examId"`
	Title     string             `json:"title"`
	Questions []ExamQuestionView `json:"questions"`
	Answered  int                `json:"answered"`
	Remaining int                `json:"remainingSeconds"`
	Finished  bool               `json:"finished"`
}

// ExamReviewItem 交卷后的逐题回顾
type ExamReviewItem struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Selected      *int     `json:"selected"`
	CorrectAnswer int      `json:"correctAnswer"`
	Correct       bool     `json:"correct"`
	Explanation   string   `json:"explanation"`
}

// ExamFinishResult 交卷结果。NeedsConfirmation 为 true 时未真正交卷，
// 调用方需带 confirmed 重新请求
type ExamFinishResult struct {
	NeedsConfirmation bool             `json:"needsConfirmation"`
	UnansweredCount   int              `json:"unansweredCount"`
	Score             int              `json:"score"`
	CorrectCount      int              `json:"correctCount"`
	TotalQuestions    int              `json:"totalQuestions"`
	Passed            bool             `json:"passed"`
	Review            []ExamReviewItem `json:"review"`
}

// MockExamService 管理限时模拟考试会话。到期的会话由1秒粒度的后台清扫自动交卷，
// 用户侧的倒计时只是展示，权威时间在服务端
type MockExamService struct {
	Progress *ProgressService
	Bank     *data.Bank

	mu       sync.Mutex
	sessions map[string]*ExamSession
	now      func() time.Time
}

func NewMockExamService(progress *ProgressService, bank *data.Bank) *MockExamService {
	return &MockExamService{
		Progress: progress,
		Bank:     bank,
		sessions: make(map[string]*ExamSession),
		now:      time.Now,
	}
}

// Start 按考试定义创建会话。无法解析的题目ID静默丢弃；
// 全部丢弃导致零题时拒绝开考
func (s *MockExamService) Start(userID uint, examID string) (*ExamStateView, error) {
	exam, ok := s.Bank.ExamByID(examID)
	if !ok {
		return nil, util.ErrExamNotFound
	}

	questions := make([]*model.Question, 0, len(exam.QuestionIDs))
	for _, qid := range exam.QuestionIDs {
		q, ok := s.Bank.ByID(qid)
		if !ok {
			logger.Log.Warn("mock exam references unknown question, dropped",
				zap.String("examID", examID), zap.String("questionID", qid))
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, util.ErrExamEmpty
	}

	now := s.now()
	sess := &ExamSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExamID:    examID,
		Questions: questions,
		Answers:   make([]*int, len(questions)),
		StartedAt: now,
		Deadline:  now.Add(time.Duration(exam.Duration) * time.Second),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return s.stateView(sess, exam), nil
}

// State 查询会话状态与剩余秒数
func (s *MockExamService) State(userID uint, sessionID string) (*ExamStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	exam, _ := s.Bank.ExamByID(sess.ExamID)
	return s.stateView(sess, exam), nil
}

// SelectAnswer 记录某题的选择，后写覆盖。交卷后或超时后拒绝
func (s *MockExamService) SelectAnswer(userID uint, sessionID string, questionIndex, option int) (*ExamStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finished || !s.now().Before(sess.Deadline) {
		return nil, util.ErrSessionFinished
	}
	if questionIndex < 0 || questionIndex >= len(sess.Questions) {
		return nil, util.ErrQuestionNotFound
	}
	q := sess.Questions[questionIndex]
	if option < 0 || option >= len(q.Options) {
		return nil, util.ErrInvalidOption
	}

	sess.Answers[questionIndex] = &option
	exam, _ := s.Bank.ExamByID(sess.ExamID)
	return s.stateView(sess, exam), nil
}

// RequestFinish 请求交卷。仍在考试时间内且存在未答题目时，除非 confirmed，
// 先返回确认请求而不交卷。超时后无条件交卷
func (s *MockExamService) RequestFinish(userID uint, sessionID string, confirmed bool) (*ExamFinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finished {
		return nil, util.ErrSessionFinished
	}

	unanswered := 0
	for _, a := range sess.Answers {
		if a == nil {
			unanswered++
		}
	}
	if unanswered > 0 && s.now().Before(sess.Deadline) && !confirmed {
		return &ExamFinishResult{
			NeedsConfirmation: true,
			UnansweredCount:   unanswered,
		}, nil
	}

	return s.finishLocked(sess), nil
}

// Abandon 放弃考试，不计分不留成绩
func (s *MockExamService) Abandon(userID uint, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionLocked(userID, sessionID); err != nil {
		return err
	}
	delete(s.sessions, sessionID)
	return nil
}

// FinishExpired 自动交卷已到期的会话，由后台每秒调用一次
func (s *MockExamService) FinishExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, sess := range s.sessions {
		if !sess.Finished && !now.Before(sess.Deadline) {
			s.finishLocked(sess)
		}
	}
}

// finishLocked 判分并记录成绩。每个会话恰好记录一次；
// 交卷后的会话保留在内存中供回顾，直到被闲置清扫回收
func (s *MockExamService) finishLocked(sess *ExamSession) *ExamFinishResult {
	correct := 0
	review := make([]ExamReviewItem, len(sess.Questions))
	for i, q := range sess.Questions {
		isCorrect := sess.Answers[i] != nil && *sess.Answers[i] == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		review[i] = ExamReviewItem{
			ID:            q.ID,
			Question:      q.Question,
			Options:       q.Options,
			Selected:      sess.Answers[i],
			CorrectAnswer: q.CorrectAnswer,
			Correct:       isCorrect,
			Explanation:   q.Explanation,
		}
	}

	score := int(math.Round(100 * float64(correct) / float64(len(sess.Questions))))
	sess.Finished = true
	sess.Score = score
	sess.CorrectCount = correct

	s.Progress.RecordMockExamScore(sess.UserID, sess.ExamID, score)

	passed := score >= MockExamPassScore
	monitoring.MockExamCounter.WithLabelValues(strconv.FormatBool(passed)).Inc()

	return &ExamFinishResult{
		UnansweredCount: 0,
		Score:           score,
		CorrectCount:    correct,
		TotalQuestions:  len(sess.Questions),
		Passed:          passed,
		Review:          review,
	}
}

// Result 交卷后的成绩与回顾。未交卷时报错
func (s *MockExamService) Result(userID uint, sessionID string) (*ExamFinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Finished {
		return nil, util.ErrNoSelection
	}

	review := make([]ExamReviewItem, len(sess.Questions))
	for i, q := range sess.Questions {
		isCorrect := sess.Answers[i] != nil && *sess.Answers[i] == q.CorrectAnswer
		review[i] = ExamReviewItem{
			ID:            q.ID,
			Question:      q.Question,
			Options:       q.Options,
			Selected:      sess.Answers[i],
			CorrectAnswer: q.CorrectAnswer,
			Correct:       isCorrect,
			Explanation:   q.Explanation,
		}
	}
	return &ExamFinishResult{
		Score:          sess.Score,
		CorrectCount:   sess.CorrectCount,
		TotalQuestions: len(sess.Questions),
		Passed:         sess.Score >= MockExamPassScore,
		Review:         review,
	}, nil
}

// SweepFinished 回收交卷后长时间无人查看的会话
func (s *MockExamService) SweepFinished(retention time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if sess.Finished && now.Sub(sess.Deadline) > retention {
			delete(s.sessions, id)
		}
	}
}

func (s *MockExamService) sessionLocked(userID uint, sessionID string) (*ExamSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return sess, nil
}

func (s *MockExamService) stateView(sess *ExamSession, exam *model.MockExam) *ExamStateView {
	views := make([]ExamQuestionView, len(sess.Questions))
	answered := 0
	for i, q := range sess.Questions {
		views[i] = ExamQuestionView{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Selected: sess.Answers[i],
		}
		if sess.Answers[i] != nil {
			answered++
		}
	}

	remaining := int(sess.Deadline.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	title := ""
	if exam != nil {
		title = exam.Title
	}
	return &ExamStateView{
		SessionID: sess.ID,
		ExamID:    sess.ExamID,
		Title:     title,
		Questions: views,
		Answered:  answered,
		Remaining: remaining,
		Finished:  sess.Finished,
	}
}
