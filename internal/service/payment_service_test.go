package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharm_exam_backend/internal/config"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStripeStub(t *testing.T, handler http.HandlerFunc) (*PaymentService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewPaymentService(config.StripeConfig{
		SecretKey: "sk_test_dummy",
		BaseURL:   server.URL,
	})
	return svc, server
}

func TestCreateCheckoutSessionSubscription(t *testing.T) {
	var form map[string][]string
	var auth string
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/checkout/sessions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_123",
			"url": "https://checkout.stripe.com/pay/cs_test_123",
		})
	})

	sess, err := svc.CreateCheckoutSession(model.PlanMonthly, "https://app.example/success", "https://app.example/cancel")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", sess.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", sess.URL)

	assert.Equal(t, "Bearer sk_test_dummy", auth)
	assert.Equal(t, []string{"subscription"}, form["mode"])
	assert.Equal(t, []string{"jpy"}, form["line_items[0][price_data][currency]"])
	assert.Equal(t, []string{"98000"}, form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, []string{"month"}, form["line_items[0][price_data][recurring][interval]"])
	assert.Equal(t, []string{"薬剤師国家試験アプリ - 月額プラン"}, form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, []string{"monthly"}, form["metadata[plan]"])
	assert.Equal(t, []string{"https://app.example/success"}, form["success_url"])
}

func TestCreateCheckoutSessionOneTime(t *testing.T) {
	var form map[string][]string
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		json.NewEncoder(w).Encode(map[string]string{"id": "cs_test_456", "url": "https://example/pay"})
	})

	_, err := svc.CreateCheckoutSession(model.PlanLifetime, "https://app.example/success", "https://app.example/cancel")
	require.NoError(t, err)

	assert.Equal(t, []string{"payment"}, form["mode"])
	assert.Equal(t, []string{"1980000"}, form["line_items[0][price_data][unit_amount]"])
	assert.Empty(t, form["line_items[0][price_data][recurring][interval]"])
}

func TestCreateCheckoutSessionInvalidPlan(t *testing.T) {
	svc := NewPaymentService(config.StripeConfig{BaseURL: "http://unused"})

	_, err := svc.CreateCheckoutSession(model.PlanFree, "s", "c")
	assert.ErrorIs(t, err, util.ErrInvalidPlan)
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "Invalid API Key provided"},
		})
	})

	_, err := svc.CreateCheckoutSession(model.PlanMonthly, "s", "c")
	assert.ErrorIs(t, err, util.ErrPaymentFailed)
}

func TestVerifyPaymentPaid(t *testing.T) {
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "/checkout/sessions/cs_test_123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_123",
			"payment_status": "paid",
			"metadata":       map[string]string{"plan": "monthly"},
		})
	})

	before := time.Now()
	res, err := svc.VerifyPayment("cs_test_123")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.PlanMonthly, res.Plan)
	require.NotNil(t, res.ExpiryDate)
	// 月額は30日後
	assert.WithinDuration(t, before.Add(30*24*time.Hour), *res.ExpiryDate, time.Minute)
}

func TestVerifyPaymentLifetimeHasNoExpiry(t *testing.T) {
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_789",
			"payment_status": "paid",
			"metadata":       map[string]string{"plan": "lifetime"},
		})
	})

	res, err := svc.VerifyPayment("cs_test_789")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.PlanLifetime, res.Plan)
	assert.Nil(t, res.ExpiryDate)
}

func TestVerifyPaymentUnpaid(t *testing.T) {
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_123",
			"payment_status": "unpaid",
			"metadata":       map[string]string{"plan": "monthly"},
		})
	})

	res, err := svc.VerifyPayment("cs_test_123")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Plan)
}

func TestVerifyPaymentUnknownPlanMetadata(t *testing.T) {
	svc, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "cs_test_123",
			"payment_status": "paid",
			"metadata":       map[string]string{"plan": "platinum"},
		})
	})

	_, err := svc.VerifyPayment("cs_test_123")
	assert.ErrorIs(t, err, util.ErrInvalidPlan)
}

func TestPaymentConfigHotReload(t *testing.T) {
	svc, server := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test_rotated", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "cs_test_1", "url": "u"})
	})

	svc.UpdateConfig(config.StripeConfig{
		SecretKey: "sk_test_rotated",
		BaseURL:   server.URL,
	})
	_, err := svc.CreateCheckoutSession(model.PlanYearly, "s", "c")
	require.NoError(t, err)
}
