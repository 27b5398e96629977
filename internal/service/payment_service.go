package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"pharm_exam_backend/internal/config"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"
	"pharm_exam_backend/pkg/logger"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// planPrice 各套餐的 Stripe 定价（日元、最小货币单位）
type planPrice struct {
	Amount   int64
	Interval string // 订阅周期，买断型为空
	Name     string
}

var planPrices = map[model.PremiumPlan]planPrice{
	model.PlanMonthly:  {Amount: 98000, Interval: "month", Name: "月額プラン"},
	model.PlanYearly:   {Amount: 880000, Interval: "year", Name: "年額プラン"},
	model.PlanLifetime: {Amount: 1980000, Interval: "", Name: "買い切りプラン"},
}

const productNamePrefix = "薬剤師国家試験アプリ - "
const productDescription = "広告なし・全問題アクセス・詳細な統計"

// CheckoutSession 创建支付会话的返回
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentVerification 支付校验结果。Success 为 true 时 Plan/ExpiryDate 有效
type PaymentVerification struct {
	Success    bool              `json:"success"`
	Plan       model.PremiumPlan `json:"plan,omitempty"`
	ExpiryDate *time.Time        `json:"expiryDate,omitempty"`
}

// stripeSession Stripe Checkout Session 响应中用到的字段
type stripeSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// PaymentService 直接调用 Stripe 的 REST 接口（form 编码），不依赖官方 SDK。
// 配置热更新时整体替换 StripeConfig
type PaymentService struct {
	mu     sync.RWMutex
	config config.StripeConfig
	client *http.Client
}

func NewPaymentService(cfg config.StripeConfig) *PaymentService {
	return &PaymentService{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// UpdateConfig 配置热更新入口
func (s *PaymentService) UpdateConfig(cfg config.StripeConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *PaymentService) snapshot() config.StripeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// CreateCheckoutSession 创建 Stripe Checkout 会话。
// 订阅型套餐走 subscription 模式，买断型走一次性 payment 模式。
// 套餐种类写入 metadata，供支付完成后的校验读取
func (s *PaymentService) CreateCheckoutSession(plan model.PremiumPlan, successURL, cancelURL string) (*CheckoutSession, error) {
	price, ok := planPrices[plan]
	if !ok {
		return nil, util.ErrInvalidPlan
	}

	form := url.Values{}
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "jpy")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(price.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", productNamePrefix+price.Name)
	form.Set("line_items[0][price_data][product_data][description]", productDescription)
	form.Set("metadata[plan]", string(plan))
	if price.Interval != "" {
		form.Set("mode", "subscription")
		form.Set("line_items[0][price_data][recurring][interval]", price.Interval)
	} else {
		form.Set("mode", "payment")
	}

	var sess stripeSession
	if err := s.call("POST", "/checkout/sessions", form, &sess); err != nil {
		return nil, err
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyPayment 回查 Checkout 会话的支付状态。
// 已支付时按 metadata 中的套餐计算到期时间：月额+30天、年额+365天、买断无到期。
// 未支付只返回 Success=false，不报错
func (s *PaymentService) VerifyPayment(sessionID string) (*PaymentVerification, error) {
	var sess stripeSession
	if err := s.call("GET", "/checkout/sessions/"+url.PathEscape(sessionID), nil, &sess); err != nil {
		return nil, err
	}

	if sess.PaymentStatus != "paid" {
		return &PaymentVerification{Success: false}, nil
	}

	plan := model.PremiumPlan(sess.Metadata["plan"])
	if _, ok := planPrices[plan]; !ok {
		logger.Log.Error("paid session carries unknown plan metadata",
			zap.String("sessionID", sessionID), zap.String("plan", string(plan)))
		return nil, util.ErrInvalidPlan
	}

	var expiry *time.Time
	switch plan {
	case model.PlanMonthly:
		t := time.Now().Add(30 * 24 * time.Hour)
		expiry = &t
	case model.PlanYearly:
		t := time.Now().Add(365 * 24 * time.Hour)
		expiry = &t
	}

	return &PaymentVerification{Success: true, Plan: plan, ExpiryDate: expiry}, nil
}

// call 对 Stripe 发起一次 form 编码请求并解析 JSON 响应
func (s *PaymentService) call(method, path string, form url.Values, out *stripeSession) error {
	cfg := s.snapshot()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Log.Error("stripe request failed", zap.String("path", path), zap.Error(err))
		return util.ErrPaymentFailed
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return util.ErrPaymentFailed
	}
	if err := json.Unmarshal(payload, out); err != nil {
		logger.Log.Error("unparsable stripe response", zap.String("path", path), zap.Error(err))
		return util.ErrPaymentFailed
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		logger.Log.Error("stripe API error",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return fmt.Errorf("%w: status %d", util.ErrPaymentFailed, resp.StatusCode)
	}
	return nil
}
