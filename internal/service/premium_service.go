package service

import (
	"encoding/json"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/internal/repository"
	"pharm_exam_backend/internal/util"
	"pharm_exam_backend/pkg/logger"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PremiumService 管理会员状态快照。与进度快照同样走整体读-改-写，
// 订阅型套餐的过期在每次读取时惰性清扫，没有独立的过期任务
type PremiumService struct {
	Blobs repository.BlobStore

	locks sync.Map // userID -> *sync.Mutex
	now   func() time.Time
}

func NewPremiumService(blobs repository.BlobStore) *PremiumService {
	return &PremiumService{
		Blobs: blobs,
		now:   time.Now,
	}
}

func (s *PremiumService) userLock(userID uint) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// load 读取会员快照。缺失、读取失败、解析失败、版本不符都退回免费套餐
func (s *PremiumService) load(userID uint) *model.PremiumEnvelope {
	initial := &model.PremiumEnvelope{
		SchemaVersion: model.PremiumSchemaVersion,
		Status:        model.InitialPremiumStatus(),
	}

	blob, err := s.Blobs.Get(userID, model.BlobKindPremium)
	if err != nil {
		logger.Log.Error("failed to load premium status, falling back to free",
			zap.Uint("userID", userID), zap.Error(err))
		return initial
	}
	if blob == nil {
		return initial
	}

	var env model.PremiumEnvelope
	if err := json.Unmarshal([]byte(blob.Data), &env); err != nil {
		logger.Log.Error("unparsable premium blob, falling back to free",
			zap.Uint("userID", userID), zap.Error(err))
		return initial
	}
	if env.SchemaVersion != model.PremiumSchemaVersion || !env.Status.Plan.Valid() {
		logger.Log.Warn("unsupported premium snapshot, falling back to free",
			zap.Uint("userID", userID), zap.Int("schemaVersion", env.SchemaVersion))
		return initial
	}
	return &env
}

func (s *PremiumService) persist(userID uint, env *model.PremiumEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Log.Error("failed to serialize premium status", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	if err := s.Blobs.Put(userID, model.BlobKindPremium, env.SchemaVersion, payload); err != nil {
		logger.Log.Error("failed to persist premium status", zap.Uint("userID", userID), zap.Error(err))
	}
}

// Status 当前会员状态。订阅型套餐到期时间严格早于当前时刻时降级为免费并落库；
// 恰好等于当前时刻不算过期。买断型套餐没有到期时间，不参与清扫
func (s *PremiumService) Status(userID uint) model.PremiumStatus {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.load(userID)
	st := env.Status
	if st.Plan.Recurring() && st.ExpiryDate != nil && st.ExpiryDate.Before(s.now()) {
		env.Status = model.InitialPremiumStatus()
		s.persist(userID, env)
	}
	return env.Status
}

// Purchase 开通套餐。不带覆盖时间时，月额套餐到期 = 现在+1个月，
// 年额 = 现在+1年，买断无到期。带覆盖时间时（支付校验路径）覆盖值优先
func (s *PremiumService) Purchase(userID uint, plan model.PremiumPlan, override *time.Time, hasOverride bool) (model.PremiumStatus, error) {
	if !plan.Valid() || plan == model.PlanFree {
		return model.PremiumStatus{}, util.ErrInvalidPlan
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	var expiry *time.Time
	if hasOverride {
		expiry = override
	} else {
		switch plan {
		case model.PlanMonthly:
			t := now.AddDate(0, 1, 0)
			expiry = &t
		case model.PlanYearly:
			t := now.AddDate(1, 0, 0)
			expiry = &t
		}
	}

	env := s.load(userID)
	env.Status = model.PremiumStatus{
		Plan:         plan,
		ExpiryDate:   expiry,
		PurchaseDate: &now,
	}
	s.persist(userID, env)

	logger.Log.Info("premium plan activated",
		zap.Uint("userID", userID), zap.String("plan", string(plan)))
	return env.Status, nil
}

// Cancel 立即回到免费套餐，不保留到原到期日
func (s *PremiumService) Cancel(userID uint) model.PremiumStatus {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	env := s.load(userID)
	env.Status = model.InitialPremiumStatus()
	s.persist(userID, env)

	logger.Log.Info("premium plan cancelled", zap.Uint("userID", userID))
	return env.Status
}
