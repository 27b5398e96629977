package controller

import (
	"errors"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/service"
	"pharm_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PaymentController Stripe Checkout 的发起与回查。
// 支付校验通过后才真正开通会员，到期时间以 Stripe 校验结果为准
type PaymentController struct {
	PaymentService *service.PaymentService
	PremiumService *service.PremiumService
}

func NewPaymentController(paymentService *service.PaymentService, premiumService *service.PremiumService) *PaymentController {
	return &PaymentController{
		PaymentService: paymentService,
		PremiumService: premiumService,
	}
}

// CheckoutRequest 创建支付会话请求
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	Plan       string `json:"plan" binding:"required"`
	SuccessURL string `json:"successUrl" binding:"required,url"`
	CancelURL  string `json:"cancelUrl" binding:"required,url"`
}

// VerifyRequest 支付校验请求
// swagger:model VerifyRequest
type VerifyRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// CreateCheckoutSession godoc
// @Summary 创建 Stripe Checkout 会话
// @Description 返回 Stripe 托管的支付页面地址，客户端跳转后完成支付
// @Tags 支付
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body CheckoutRequest true "套餐与回跳地址"
// @Success 201 {object} util.Response{data=service.CheckoutSession}
// @Failure 400 {object} util.Response "套餐不存在"
// @Failure 502 {object} util.Response "Stripe 请求失败"
// @Router /api/payment/checkout-session [post]
func (c *PaymentController) CreateCheckoutSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sess, err := c.PaymentService.CreateCheckoutSession(model.PremiumPlan(req.Plan), req.SuccessURL, req.CancelURL)
	if err != nil {
		c.writePaymentError(ctx, err)
		return
	}
	util.Created(ctx, sess)
}

// Verify godoc
// @Summary 校验支付结果并开通会员
// @Description 回查 Checkout 会话，已支付时按套餐开通会员并返回最新状态
// @Tags 支付
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body VerifyRequest true "Checkout 会话ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "会话元数据异常"
// @Failure 502 {object} util.Response "Stripe 请求失败"
// @Router /api/payment/verify [post]
func (c *PaymentController) Verify(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	verification, err := c.PaymentService.VerifyPayment(req.SessionID)
	if err != nil {
		c.writePaymentError(ctx, err)
		return
	}

	if !verification.Success {
		util.Success(ctx, gin.H{"success": false})
		return
	}

	// 到期时间以支付校验的结果覆盖默认计算
	status, err := c.PremiumService.Purchase(claims.UserID, verification.Plan, verification.ExpiryDate, true)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true, "premium": status})
}

func (c *PaymentController) writePaymentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidPlan):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPaymentFailed):
		util.Error(ctx, 502, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
