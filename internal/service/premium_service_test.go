package service

import (
	"errors"
	"testing"
	"time"

	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPremium(t *testing.T) (*PremiumService, *memBlobStore) {
	t.Helper()
	store := newMemBlobStore()
	svc := NewPremiumService(store)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc, store
}

func TestPremiumDefaultsToFree(t *testing.T) {
	svc, _ := newTestPremium(t)

	st := svc.Status(1)
	assert.Equal(t, model.PlanFree, st.Plan)
	assert.Nil(t, st.ExpiryDate)
	assert.False(t, st.IsPremium())
}

func TestPremiumPurchaseExpiries(t *testing.T) {
	svc, _ := newTestPremium(t)
	now := svc.now()

	st, err := svc.Purchase(1, model.PlanMonthly, nil, false)
	require.NoError(t, err)
	require.NotNil(t, st.ExpiryDate)
	assert.Equal(t, now.AddDate(0, 1, 0), *st.ExpiryDate)
	require.NotNil(t, st.PurchaseDate)
	assert.True(t, st.IsPremium())

	st, err = svc.Purchase(2, model.PlanYearly, nil, false)
	require.NoError(t, err)
	require.NotNil(t, st.ExpiryDate)
	assert.Equal(t, now.AddDate(1, 0, 0), *st.ExpiryDate)

	st, err = svc.Purchase(3, model.PlanLifetime, nil, false)
	require.NoError(t, err)
	assert.Nil(t, st.ExpiryDate)
}

func TestPremiumPurchaseOverrideWins(t *testing.T) {
	svc, _ := newTestPremium(t)

	override := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := svc.Purchase(1, model.PlanMonthly, &override, true)
	require.NoError(t, err)
	require.NotNil(t, st.ExpiryDate)
	assert.Equal(t, override, *st.ExpiryDate)

	// 覆盖值为 nil 也优先于默认计算（买断式校验路径）
	st, err = svc.Purchase(2, model.PlanMonthly, nil, true)
	require.NoError(t, err)
	assert.Nil(t, st.ExpiryDate)
}

func TestPremiumPurchaseRejectsInvalidPlan(t *testing.T) {
	svc, _ := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanFree, nil, false)
	assert.ErrorIs(t, err, util.ErrInvalidPlan)
	_, err = svc.Purchase(1, "platinum", nil, false)
	assert.ErrorIs(t, err, util.ErrInvalidPlan)
}

func TestPremiumExpirySweep(t *testing.T) {
	svc, _ := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanMonthly, nil, false)
	require.NoError(t, err)
	expiry := svc.Status(1).ExpiryDate
	require.NotNil(t, expiry)

	// 到期时刻整点还不算过期
	svc.now = func() time.Time { return *expiry }
	assert.Equal(t, model.PlanMonthly, svc.Status(1).Plan)

	// 严格越过到期时刻后降级为免费并落库
	svc.now = func() time.Time { return expiry.Add(time.Second) }
	st := svc.Status(1)
	assert.Equal(t, model.PlanFree, st.Plan)
	assert.Nil(t, st.ExpiryDate)

	// 再读仍是免费
	assert.Equal(t, model.PlanFree, svc.Status(1).Plan)
}

func TestPremiumLifetimeNeverExpires(t *testing.T) {
	svc, _ := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanLifetime, nil, false)
	require.NoError(t, err)

	svc.now = func() time.Time {
		return time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	assert.Equal(t, model.PlanLifetime, svc.Status(1).Plan)
}

func TestPremiumCancel(t *testing.T) {
	svc, _ := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanYearly, nil, false)
	require.NoError(t, err)

	st := svc.Cancel(1)
	assert.Equal(t, model.PlanFree, st.Plan)
	assert.Nil(t, st.ExpiryDate)
	assert.Equal(t, model.PlanFree, svc.Status(1).Plan)
}

func TestPremiumDegradesOnStoreFailure(t *testing.T) {
	svc, store := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanYearly, nil, false)
	require.NoError(t, err)

	store.getErr = errors.New("mysql is down")
	st := svc.Status(1)
	assert.Equal(t, model.PlanFree, st.Plan)
}

func TestPremiumRejectsCorruptSnapshot(t *testing.T) {
	svc, store := newTestPremium(t)

	_, err := svc.Purchase(1, model.PlanYearly, nil, false)
	require.NoError(t, err)

	store.blobs[memKey(1, model.BlobKindPremium)].Data = "{broken"
	assert.Equal(t, model.PlanFree, svc.Status(1).Plan)
}
