package data

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"pharm_exam_backend/internal/model"
)

//go:embed questions.json
var questionsJSON []byte

//go:embed mock_exams.json
var mockExamsJSON []byte

// Bank 静态题库与模拟考试目录。启动时一次性加载并校验，运行期只读
type Bank struct {
	questions  []model.Question
	byID       map[string]*model.Question
	byCategory map[model.QuestionCategory][]*model.Question
	exams      []model.MockExam
	examByID   map[string]*model.MockExam
}

// Load 解析内置的题库与模拟考试目录
func Load() (*Bank, error) {
	var questions []model.Question
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}

	var exams []model.MockExam
	if err := json.Unmarshal(mockExamsJSON, &exams); err != nil {
		return nil, fmt.Errorf("parse mock exams: %w", err)
	}

	return NewBank(questions, exams)
}

// NewBank 校验并建立索引。题目ID重复、分类未知、正确答案越界都视为构建错误
func NewBank(questions []model.Question, exams []model.MockExam) (*Bank, error) {
	b := &Bank{
		questions:  questions,
		byID:       make(map[string]*model.Question, len(questions)),
		byCategory: make(map[model.QuestionCategory][]*model.Question),
		exams:      exams,
		examByID:   make(map[string]*model.MockExam, len(exams)),
	}

	for i := range b.questions {
		q := &b.questions[i]
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: empty id", i)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		if !q.Category.Valid() {
			return nil, fmt.Errorf("question %s: unknown category %q", q.ID, q.Category)
		}
		if !q.Difficulty.Valid() {
			return nil, fmt.Errorf("question %s: unknown difficulty %q", q.ID, q.Difficulty)
		}
		if len(q.Options) < 4 {
			return nil, fmt.Errorf("question %s: needs at least 4 options, got %d", q.ID, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("question %s: correctAnswer %d out of range", q.ID, q.CorrectAnswer)
		}
		b.byID[q.ID] = q
		b.byCategory[q.Category] = append(b.byCategory[q.Category], q)
	}

	for i := range b.exams {
		e := &b.exams[i]
		if e.ID == "" {
			return nil, fmt.Errorf("mock exam %d: empty id", i)
		}
		if _, dup := b.examByID[e.ID]; dup {
			return nil, fmt.Errorf("mock exam %s: duplicate id", e.ID)
		}
		if e.Duration <= 0 {
			return nil, fmt.Errorf("mock exam %s: duration must be positive", e.ID)
		}
		// questionIds 不在此处解析：考试开始时静默丢弃无法解析的ID
		b.examByID[e.ID] = e
	}

	return b, nil
}

// Questions 全部题目
func (b *Bank) Questions() []model.Question {
	return b.questions
}

// ByID 按ID查题
func (b *Bank) ByID(id string) (*model.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// ByCategory 指定分类下的全部题目
func (b *Bank) ByCategory(cat model.QuestionCategory) []*model.Question {
	return b.byCategory[cat]
}

// CountByCategory 各分类题目数，用于构造零值进度
func (b *Bank) CountByCategory() map[model.QuestionCategory]int {
	counts := make(map[model.QuestionCategory]int, len(b.byCategory))
	for cat, qs := range b.byCategory {
		counts[cat] = len(qs)
	}
	return counts
}

// Exams 模拟考试目录
func (b *Bank) Exams() []model.MockExam {
	return b.exams
}

// ExamByID 按ID查模拟考试
func (b *Bank) ExamByID(id string) (*model.MockExam, bool) {
	e, ok := b.examByID[id]
	return e, ok
}
