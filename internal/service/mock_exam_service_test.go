package service

import (
	"testing"
	"time"

	"pharm_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExam(t *testing.T) (*MockExamService, *ProgressService) {
	t.Helper()
	progress, _ := newTestProgress(t)
	exam := NewMockExamService(progress, progress.Bank)
	return exam, progress
}

func TestExamStartUnknown(t *testing.T) {
	exam, _ := newTestExam(t)

	_, err := exam.Start(1, "no-such-exam")
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func TestExamStartDropsUnresolvableQuestions(t *testing.T) {
	exam, _ := newTestExam(t)

	// exam2 引用了一个不存在的题目ID，静默丢弃后剩2道
	state, err := exam.Start(1, "exam2")
	require.NoError(t, err)
	assert.Len(t, state.Questions, 2)
	assert.Equal(t, 60, state.Remaining)
	assert.False(t, state.Finished)
}

func TestExamSelectAnswerLastWriteWins(t *testing.T) {
	exam, _ := newTestExam(t)

	state, err := exam.Start(1, "exam1")
	require.NoError(t, err)

	_, err = exam.SelectAnswer(1, state.SessionID, 0, 2)
	require.NoError(t, err)
	state, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	require.NotNil(t, state.Questions[0].Selected)
	assert.Equal(t, 0, *state.Questions[0].Selected)
	assert.Equal(t, 1, state.Answered)
}

func TestExamSelectAnswerValidation(t *testing.T) {
	exam, _ := newTestExam(t)

	state, err := exam.Start(1, "exam1")
	require.NoError(t, err)

	_, err = exam.SelectAnswer(1, state.SessionID, 99, 0)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 9)
	assert.ErrorIs(t, err, util.ErrInvalidOption)
}

func TestExamFinishNeedsConfirmation(t *testing.T) {
	exam, _ := newTestExam(t)

	state, err := exam.Start(1, "exam1")
	require.NoError(t, err)

	_, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	// 还有3道未答且时间未到：要求确认，不交卷
	result, err := exam.RequestFinish(1, state.SessionID, false)
	require.NoError(t, err)
	assert.True(t, result.NeedsConfirmation)
	assert.Equal(t, 3, result.UnansweredCount)

	state, err = exam.State(1, state.SessionID)
	require.NoError(t, err)
	assert.False(t, state.Finished)

	// 带确认后交卷
	result, err = exam.RequestFinish(1, state.SessionID, true)
	require.NoError(t, err)
	assert.False(t, result.NeedsConfirmation)
}

func TestExamFinishScoring(t *testing.T) {
	exam, progress := newTestExam(t)

	state, err := exam.Start(1, "exam1")
	require.NoError(t, err)

	// exam1 共4道：q1,q2,q3 正解0，p1 正解1。答对3道
	for i, option := range []int{0, 0, 3, 1} {
		_, err = exam.SelectAnswer(1, state.SessionID, i, option)
		require.NoError(t, err)
	}

	result, err := exam.RequestFinish(1, state.SessionID, false)
	require.NoError(t, err)
	assert.Equal(t, 75, result.Score) // round(100*3/4)
	assert.Equal(t, 3, result.CorrectCount)
	assert.Equal(t, 4, result.TotalQuestions)
	assert.True(t, result.Passed)

	require.Len(t, result.Review, 4)
	assert.True(t, result.Review[0].Correct)
	assert.False(t, result.Review[2].Correct)
	assert.NotEmpty(t, result.Review[0].Explanation)

	// 成绩恰好记录一次
	p := progress.Get(1)
	assert.Equal(t, []int{75}, p.MockExamScores["exam1"])

	// 交卷后不再接受作答，重复交卷报错
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 1)
	assert.ErrorIs(t, err, util.ErrSessionFinished)
	_, err = exam.RequestFinish(1, state.SessionID, true)
	assert.ErrorIs(t, err, util.ErrSessionFinished)
}

func TestExamScoreRounding(t *testing.T) {
	exam, progress := newTestExam(t)

	// exam2 实际2道题，答对1道：round(100*1/2) = 50
	state, err := exam.Start(1, "exam2")
	require.NoError(t, err)
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	result, err := exam.RequestFinish(1, state.SessionID, true)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.Passed)
	assert.Equal(t, []int{50}, progress.Get(1).MockExamScores["exam2"])
}

func TestExamPassBoundary(t *testing.T) {
	exam, _ := newTestExam(t)

	// exam3 共10道（q1..q7 正解0、p1..p3 正解1）。答对7道恰好70分，合格
	state, err := exam.Start(1, "exam3")
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err = exam.SelectAnswer(1, state.SessionID, i, 0)
		require.NoError(t, err)
	}

	result, err := exam.RequestFinish(1, state.SessionID, true)
	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	assert.True(t, result.Passed)

	// 答对6道为60分，不合格
	state, err = exam.Start(2, "exam3")
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err = exam.SelectAnswer(2, state.SessionID, i, 0)
		require.NoError(t, err)
	}
	result, err = exam.RequestFinish(2, state.SessionID, true)
	require.NoError(t, err)
	assert.Equal(t, 60, result.Score)
	assert.False(t, result.Passed)
}

func TestExamDeadlineForcesFinish(t *testing.T) {
	exam, _ := newTestExam(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam.now = func() time.Time { return base }

	state, err := exam.Start(1, "exam2")
	require.NoError(t, err)
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	// 超时后作答被拒绝，未确认的交卷也不再询问
	exam.now = func() time.Time { return base.Add(61 * time.Second) }

	_, err = exam.SelectAnswer(1, state.SessionID, 1, 0)
	assert.ErrorIs(t, err, util.ErrSessionFinished)

	result, err := exam.RequestFinish(1, state.SessionID, false)
	require.NoError(t, err)
	assert.False(t, result.NeedsConfirmation)
	assert.Equal(t, 50, result.Score)
}

func TestExamAutoFinishSweep(t *testing.T) {
	exam, progress := newTestExam(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam.now = func() time.Time { return base }

	state, err := exam.Start(1, "exam2")
	require.NoError(t, err)
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	// 未到期的清扫不动会话
	exam.now = func() time.Time { return base.Add(30 * time.Second) }
	exam.FinishExpired()
	st, err := exam.State(1, state.SessionID)
	require.NoError(t, err)
	assert.False(t, st.Finished)

	exam.now = func() time.Time { return base.Add(2 * time.Minute) }
	exam.FinishExpired()

	st, err = exam.State(1, state.SessionID)
	require.NoError(t, err)
	assert.True(t, st.Finished)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, []int{50}, progress.Get(1).MockExamScores["exam2"])

	// 交卷后的结果可回看
	result, err := exam.Result(1, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
}

func TestExamAbandonLeavesNoScore(t *testing.T) {
	exam, progress := newTestExam(t)

	state, err := exam.Start(1, "exam1")
	require.NoError(t, err)
	_, err = exam.SelectAnswer(1, state.SessionID, 0, 0)
	require.NoError(t, err)

	require.NoError(t, exam.Abandon(1, state.SessionID))
	_, err = exam.State(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	assert.Empty(t, progress.Get(1).MockExamScores)
}

func TestExamSweepFinished(t *testing.T) {
	exam, _ := newTestExam(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	exam.now = func() time.Time { return base }

	state, err := exam.Start(1, "exam2")
	require.NoError(t, err)
	_, err = exam.RequestFinish(1, state.SessionID, true)
	require.NoError(t, err)

	exam.now = func() time.Time { return base.Add(25 * time.Hour) }
	exam.SweepFinished(24 * time.Hour)

	_, err = exam.State(1, state.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
