package controller

import (
	"errors"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PremiumController struct {
	PremiumService *service.PremiumService
}

func NewPremiumController(premiumService *service.PremiumService) *PremiumController {
	return &PremiumController{PremiumService: premiumService}
}

// PremiumPurchaseRequest 开通套餐请求（不经过支付的直接开通，供开发与运营使用）
// swagger:model PremiumPurchaseRequest
type PremiumPurchaseRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// Status godoc
// @Summary 会员状态
// @Description 读取时对过期的订阅型套餐做降级清扫
// @Tags 会员
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.PremiumStatus}
// @Router /api/premium [get]
func (c *PremiumController) Status(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.PremiumService.Status(claims.UserID))
}

// Purchase godoc
// @Summary 开通会员套餐
// @Description 月額は1か月後、年額は1年後に失効。買い切りは無期限
// @Tags 会员
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body PremiumPurchaseRequest true "套餐种类"
// @Success 200 {object} util.Response{data=model.PremiumStatus}
// @Failure 400 {object} util.Response "套餐不存在"
// @Router /api/premium/purchase [post]
func (c *PremiumController) Purchase(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PremiumPurchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	status, err := c.PremiumService.Purchase(claims.UserID, model.PremiumPlan(req.Plan), nil, false)
	if err != nil {
		if errors.Is(err, util.ErrInvalidPlan) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, status)
}

// Cancel godoc
// @Summary 解约会员
// @Description 立即回到免费套餐
// @Tags 会员
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.PremiumStatus}
// @Router /api/premium [delete]
func (c *PremiumController) Cancel(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, c.PremiumService.Cancel(claims.UserID))
}
