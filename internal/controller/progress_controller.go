package controller

import (
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// Get godoc
// @Summary 当前学习进度
// @Description XP、等级、连续学习天数与各分类进度
// @Tags 学习进度
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.UserProgress}
// @Router /api/progress [get]
func (c *ProgressController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.ProgressService.Get(claims.UserID))
}

// Answers godoc
// @Summary 答题历史
// @Description 全量答题日志，按提交顺序排列
// @Tags 学习进度
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.UserAnswer}
// @Router /api/progress/answers [get]
func (c *ProgressController) Answers(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.ProgressService.Answers(claims.UserID))
}

// Stats godoc
// @Summary 学习统计
// @Description 正答率、已答题目数与各模拟考试的成绩汇总
// @Tags 学习进度
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.StudyStats}
// @Router /api/progress/stats [get]
func (c *ProgressController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.ProgressService.Stats(claims.UserID))
}

// Reset godoc
// @Summary 重置学习进度
// @Description 清空进度与答题历史，不可恢复
// @Tags 学习进度
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.UserProgress}
// @Router /api/progress [delete]
func (c *ProgressController) Reset(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.ProgressService.Reset(claims.UserID))
}
