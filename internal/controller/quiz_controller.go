package controller

import (
	"errors"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// QuizStartRequest 开始练习请求
// swagger:model QuizStartRequest
type QuizStartRequest struct {
	Category string `json:"category" binding:"required"`
}

// QuizSelectRequest 选择选项请求
// swagger:model QuizSelectRequest
type QuizSelectRequest struct {
	Option int `json:"option" binding:"min=0"`
}

// Start godoc
// @Summary 开始分类练习
// @Description 按分类抽取至多10道题创建练习会话
// @Tags 练习
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body QuizStartRequest true "出题分类"
// @Success 201 {object} util.Response{data=service.QuizStateView}
// @Failure 400 {object} util.Response "分类不存在或没有题目"
// @Router /api/quiz [post]
func (c *QuizController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuizStartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.QuizService.Start(claims.UserID, model.QuestionCategory(req.Category))
	if err != nil {
		if errors.Is(err, util.ErrCategoryUnknown) || errors.Is(err, util.ErrCategoryEmpty) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, state)
}

// State godoc
// @Summary 练习会话状态
// @Tags 练习
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.QuizStateView}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/quiz/{id} [get]
func (c *QuizController) State(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	state, err := c.QuizService.State(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, state)
}

// Select godoc
// @Summary 选择当前题目的选项
// @Description 揭示答案前可反复改选，揭示后选择被忽略
// @Tags 练习
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   body body QuizSelectRequest true "选项下标"
// @Success 200 {object} util.Response{data=service.QuizStateView}
// @Failure 400 {object} util.Response "选项越界"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/quiz/{id}/select [put]
func (c *QuizController) Select(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuizSelectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.QuizService.Select(claims.UserID, ctx.Param("id"), req.Option)
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Submit godoc
// @Summary 提交当前题目
// @Description 判定正误、揭示答案与解说，并计入学习进度
// @Tags 练习
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.QuizSubmitResult}
// @Failure 400 {object} util.Response "尚未选择选项"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/quiz/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.QuizService.Submit(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Advance godoc
// @Summary 进入下一题
// @Description 最后一题之后会话结束并被移除
// @Tags 练习
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.QuizStateView}
// @Failure 400 {object} util.Response "当前题目未提交"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/quiz/{id}/next [post]
func (c *QuizController) Advance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	state, err := c.QuizService.Advance(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.writeQuizError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Abandon godoc
// @Summary 放弃练习会话
// @Tags 练习
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/quiz/{id} [delete]
func (c *QuizController) Abandon(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.QuizService.Abandon(claims.UserID, ctx.Param("id")); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, nil)
}

func (c *QuizController) writeQuizError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrInvalidOption),
		errors.Is(err, util.ErrNoSelection),
		errors.Is(err, util.ErrSessionFinished):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
