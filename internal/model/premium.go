package model

import "time"

// PremiumSchemaVersion 会员状态快照的序列化版本号
const PremiumSchemaVersion = 1

type PremiumPlan string

const (
	PlanFree     PremiumPlan = "free"
	PlanMonthly  PremiumPlan = "monthly"
	PlanYearly   PremiumPlan = "yearly"
	PlanLifetime PremiumPlan = "lifetime"
)

func (p PremiumPlan) Valid() bool {
	return p == PlanFree || p == PlanMonthly || p == PlanYearly || p == PlanLifetime
}

// Recurring 是否为有到期时间的订阅型套餐
func (p PremiumPlan) Recurring() bool {
	return p == PlanMonthly || p == PlanYearly
}

// PremiumStatus 会员状态单例，读取时对过期的订阅型套餐做清扫
// swagger:model PremiumStatus
type PremiumStatus struct {
	Plan         PremiumPlan `json:"plan"`
	ExpiryDate   *time.Time  `json:"expiryDate"`
	PurchaseDate *time.Time  `json:"purchaseDate"`
}

// PremiumEnvelope 持久化的会员状态快照
type PremiumEnvelope struct {
	SchemaVersion int           `json:"schemaVersion"`
	Status        PremiumStatus `json:"status"`
}

// InitialPremiumStatus 免费套餐的零值状态
func InitialPremiumStatus() PremiumStatus {
	return PremiumStatus{Plan: PlanFree}
}

// IsPremium 派生的付费标记
func (s PremiumStatus) IsPremium() bool {
	return s.Plan != PlanFree
}
