package controller

import (
	"errors"
	"pharm_exam_backend/internal/data"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MockExamController struct {
	Bank            *data.Bank
	MockExamService *service.MockExamService
}

func NewMockExamController(bank *data.Bank, examService *service.MockExamService) *MockExamController {
	return &MockExamController{Bank: bank, MockExamService: examService}
}

// ExamSelectRequest 考试作答请求
// swagger:model ExamSelectRequest
type ExamSelectRequest struct {
	QuestionIndex int `json:"questionIndex" binding:"min=0"`
	Option        int `json:"option" binding:"min=0"`
}

// ExamFinishRequest 交卷请求
// swagger:model ExamFinishRequest
type ExamFinishRequest struct {
	Confirmed bool `json:"confirmed"`
}

// ListExams godoc
// @Summary 模拟考试一览
// @Tags 模拟考试
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.MockExam}
// @Router /api/exams [get]
func (c *MockExamController) ListExams(ctx *gin.Context) {
	util.Success(ctx, c.Bank.Exams())
}

// Start godoc
// @Summary 开始模拟考试
// @Description 按考试定义创建限时会话，倒计时由服务端管理
// @Tags 模拟考试
// @Security BearerAuth
// @Produce  json
// @Param   examId path string true "考试ID"
// @Success 201 {object} util.Response{data=service.ExamStateView}
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/exams/{examId}/sessions [post]
func (c *MockExamController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	state, err := c.MockExamService.Start(claims.UserID, ctx.Param("examId"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrExamNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrExamEmpty):
			util.Error(ctx, 422, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, state)
}

// State godoc
// @Summary 考试会话状态
// @Description 含剩余秒数与各题作答情况
// @Tags 模拟考试
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.ExamStateView}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/exam-sessions/{id} [get]
func (c *MockExamController) State(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	state, err := c.MockExamService.State(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, state)
}

// SelectAnswer godoc
// @Summary 考试中作答
// @Description 同一题可反复改选，后写覆盖。超时或交卷后拒绝
// @Tags 模拟考试
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   body body ExamSelectRequest true "题目下标与选项下标"
// @Success 200 {object} util.Response{data=service.ExamStateView}
// @Failure 400 {object} util.Response "下标越界或会话已结束"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/exam-sessions/{id}/answers [put]
func (c *MockExamController) SelectAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ExamSelectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.MockExamService.SelectAnswer(claims.UserID, ctx.Param("id"), req.QuestionIndex, req.Option)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Finish godoc
// @Summary 交卷
// @Description 时间未到且有未答题目时需带 confirmed 确认，否则只返回确认请求
// @Tags 模拟考试
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   body body ExamFinishRequest true "是否已确认"
// @Success 200 {object} util.Response{data=service.ExamFinishResult}
// @Failure 400 {object} util.Response "会话已交卷"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/exam-sessions/{id}/finish [post]
func (c *MockExamController) Finish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ExamFinishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.MockExamService.RequestFinish(claims.UserID, ctx.Param("id"), req.Confirmed)
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Result godoc
// @Summary 考试成绩与逐题回顾
// @Tags 模拟考试
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.ExamFinishResult}
// @Failure 400 {object} util.Response "尚未交卷"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/exam-sessions/{id}/result [get]
func (c *MockExamController) Result(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.MockExamService.Result(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.writeExamError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Abandon godoc
// @Summary 放弃考试
// @Description 不计分，不留成绩
// @Tags 模拟考试
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/exam-sessions/{id} [delete]
func (c *MockExamController) Abandon(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.MockExamService.Abandon(claims.UserID, ctx.Param("id")); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, nil)
}

func (c *MockExamController) writeExamError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrSessionFinished),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrInvalidOption),
		errors.Is(err, util.ErrNoSelection):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
