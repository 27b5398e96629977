package service

import (
	"fmt"
	"os"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/pkg/logger"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// memBlobStore 测试用的内存快照存储
type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string]*model.ProgressBlob

	getErr error // 注入读失败
	putErr error // 注入写失败
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string]*model.ProgressBlob)}
}

func memKey(userID uint, kind model.BlobKind) string {
	return fmt.Sprintf("%d/%s", userID, kind)
}

func (m *memBlobStore) Get(userID uint, kind model.BlobKind) (*model.ProgressBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	blob, ok := m.blobs[memKey(userID, kind)]
	if !ok {
		return nil, nil
	}
	cp := *blob
	return &cp, nil
}

func (m *memBlobStore) Put(userID uint, kind model.BlobKind, schemaVersion int, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.blobs[memKey(userID, kind)] = &model.ProgressBlob{
		UserID:        userID,
		Kind:          kind,
		SchemaVersion: schemaVersion,
		Data:          string(payload),
	}
	return nil
}

// testBank 构造一个小题库：薬理学7道（q1..q7）、物理化学3道（p1..p3），
// 外加三个模拟考试定义
func testBank(t *testing.T) *data.Bank {
	t.Helper()

	var questions []model.Question
	for i := 1; i <= 7; i++ {
		questions = append(questions, model.Question{
			ID:            fmt.Sprintf("q%d", i),
			Category:      model.CategoryPharmacol,
			Question:      fmt.Sprintf("薬理学の問題 %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: 0,
			Explanation:   "解説",
			Difficulty:    model.DifficultyNormal,
		})
	}
	for i := 1; i <= 3; i++ {
		questions = append(questions, model.Question{
			ID:            fmt.Sprintf("p%d", i),
			Category:      model.CategoryPhysChem,
			Question:      fmt.Sprintf("物理化学の問題 %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: 1,
			Explanation:   "解説",
			Difficulty:    model.DifficultyHard,
		})
	}

	exams := []model.MockExam{
		{
			ID:          "exam1",
			Title:       "総合模試",
			Duration:    1800,
			Total:       4,
			Difficulty:  "normal",
			QuestionIDs: []string{"q1", "q2", "q3", "p1"},
		},
		{
			ID:          "exam2",
			Title:       "欠損あり模試",
			Duration:    60,
			Total:       3,
			Difficulty:  "normal",
			QuestionIDs: []string{"q4", "missing", "q5"},
		},
		{
			ID:          "exam3",
			Title:       "全範囲模試",
			Duration:    3600,
			Total:       10,
			Difficulty:  "hard",
			QuestionIDs: []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "p1", "p2", "p3"},
		},
	}

	bank, err := data.NewBank(questions, exams)
	if err != nil {
		t.Fatalf("testBank: %v", err)
	}
	return bank
}

func newTestProgress(t *testing.T) (*ProgressService, *memBlobStore) {
	t.Helper()
	store := newMemBlobStore()
	svc := NewProgressService(store, testBank(t))
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc, store
}

func answerFor(questionID string, correct bool) model.UserAnswer {
	selected := 3
	if correct {
		selected = 0
	}
	return model.UserAnswer{
		QuestionID:     questionID,
		SelectedAnswer: selected,
		IsCorrect:      correct,
		Timestamp:      time.Now().UnixMilli(),
		TimeSpent:      12,
	}
}
