package service

import (
	"testing"
	"time"

	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuiz(t *testing.T) (*QuizService, *ProgressService) {
	t.Helper()
	progress, _ := newTestProgress(t)
	quiz := NewQuizService(progress, progress.Bank, time.Hour)
	return quiz, progress
}

func TestQuizStartUnknownCategory(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	_, err := quiz.Start(1, "政治学")
	assert.ErrorIs(t, err, util.ErrCategoryUnknown)
}

func TestQuizStartEmptyCategory(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	// 合法分类但测试题库中没有题目
	_, err := quiz.Start(1, model.CategoryPractice)
	assert.ErrorIs(t, err, util.ErrCategoryEmpty)
}

func TestQuizStartTakesAtMostTen(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)
	assert.Equal(t, 7, state.Total)
	assert.Equal(t, 0, state.Index)
	assert.False(t, state.Revealed)
	assert.Nil(t, state.Selected)
	require.NotNil(t, state.Question)
	assert.NotEmpty(t, state.Question.ID)
}

func TestQuizStartPrefersUnanswered(t *testing.T) {
	quiz, progress := newTestQuiz(t)

	// 已答2道，剩余未答5道，达到阈值：本次只出未答题目
	progress.SubmitAnswer(1, answerFor("q1", true))
	progress.SubmitAnswer(1, answerFor("q2", true))

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Total)

	quiz.mu.Lock()
	sess := quiz.sessions[state.SessionID]
	quiz.mu.Unlock()
	for _, q := range sess.Questions {
		assert.NotContains(t, []string{"q1", "q2"}, q.ID)
	}
}

func TestQuizStartFallsBackToFullPool(t *testing.T) {
	quiz, progress := newTestQuiz(t)

	// 未答只剩4道（低于阈值5），回退到全部7道
	for _, id := range []string{"q1", "q2", "q3"} {
		progress.SubmitAnswer(1, answerFor(id, true))
	}

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)
	assert.Equal(t, 7, state.Total)
}

func TestQuizSubmitWithoutSelection(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPhysChem)
	require.NoError(t, err)

	_, err = quiz.Submit(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrNoSelection)
}

func TestQuizSelectValidation(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPhysChem)
	require.NoError(t, err)

	_, err = quiz.Select(1, state.SessionID, 4)
	assert.ErrorIs(t, err, util.ErrInvalidOption)
	_, err = quiz.Select(1, state.SessionID, -1)
	assert.ErrorIs(t, err, util.ErrInvalidOption)

	state, err = quiz.Select(1, state.SessionID, 2)
	require.NoError(t, err)
	require.NotNil(t, state.Selected)
	assert.Equal(t, 2, *state.Selected)
}

func TestQuizSubmitRecordsExactlyOneAnswer(t *testing.T) {
	quiz, progress := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPhysChem)
	require.NoError(t, err)

	// 物理化学题的正确答案是选项1
	_, err = quiz.Select(1, state.SessionID, 1)
	require.NoError(t, err)

	result, err := quiz.Submit(1, state.SessionID)
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.CorrectAnswer)
	assert.NotEmpty(t, result.Explanation)
	assert.Equal(t, 10, result.Progress.TotalXP)

	// 重复提交被拒绝，不产生第二条记录
	_, err = quiz.Submit(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionFinished)
	assert.Len(t, progress.Answers(1), 1)
}

func TestQuizSelectIgnoredAfterReveal(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPhysChem)
	require.NoError(t, err)

	_, err = quiz.Select(1, state.SessionID, 0)
	require.NoError(t, err)
	_, err = quiz.Submit(1, state.SessionID)
	require.NoError(t, err)

	// 揭示后改选无效
	state, err = quiz.Select(1, state.SessionID, 1)
	require.NoError(t, err)
	require.NotNil(t, state.Selected)
	assert.Equal(t, 0, *state.Selected)
	assert.True(t, state.Revealed)
}

func TestQuizAdvanceThroughSession(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPhysChem)
	require.NoError(t, err)
	require.Equal(t, 3, state.Total)

	// 未提交不能推进
	_, err = quiz.Advance(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrNoSelection)

	for i := 0; i < 3; i++ {
		_, err = quiz.Select(1, state.SessionID, 1)
		require.NoError(t, err)
		_, err = quiz.Submit(1, state.SessionID)
		require.NoError(t, err)
		state, err = quiz.Advance(1, state.SessionID)
		require.NoError(t, err)
	}

	// 最后一题推进后会话结束并移除
	assert.Equal(t, 3, state.Index)
	assert.Nil(t, state.Question)
	_, err = quiz.State(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestQuizSessionIsolatedByUser(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)

	_, err = quiz.State(2, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	err = quiz.Abandon(2, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestQuizAbandon(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)

	require.NoError(t, quiz.Abandon(1, state.SessionID))
	_, err = quiz.State(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestQuizSweepExpired(t *testing.T) {
	quiz, _ := newTestQuiz(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	quiz.now = func() time.Time { return base }

	state, err := quiz.Start(1, model.CategoryPharmacol)
	require.NoError(t, err)

	// 闲置未超时不回收
	quiz.now = func() time.Time { return base.Add(30 * time.Minute) }
	quiz.SweepExpired()
	_, err = quiz.State(1, state.SessionID)
	require.NoError(t, err)

	quiz.now = func() time.Time { return base.Add(2 * time.Hour) }
	quiz.SweepExpired()
	_, err = quiz.State(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
