package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pharm_exam_backend/internal/model"
	"pharm_exam_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobStore 进度/会员快照的持久化接口。服务层通过该接口注入存储，测试中可替换为内存实现
type BlobStore interface {
	// Get 读取快照；不存在时返回 (nil, nil)
	Get(userID uint, kind model.BlobKind) (*model.ProgressBlob, error)
	// Put 整体写入快照（存在则替换）
	Put(userID uint, kind model.BlobKind, schemaVersion int, data []byte) error
}

const blobCacheTTL = 10 * time.Minute

// BlobRepository MySQL 落库 + Redis 旁路缓存。缓存读写失败只记日志，不影响主流程
type BlobRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewBlobRepository(db *gorm.DB, rdb *redis.Client) *BlobRepository {
	return &BlobRepository{DB: db, RDB: rdb}
}

func blobCacheKey(userID uint, kind model.BlobKind) string {
	return fmt.Sprintf("blob:%s:%d", kind, userID)
}

func (r *BlobRepository) Get(userID uint, kind model.BlobKind) (*model.ProgressBlob, error) {
	ctx := context.Background()

	if r.RDB != nil {
		cached, err := r.RDB.Get(ctx, blobCacheKey(userID, kind)).Result()
		if err == nil {
			var blob model.ProgressBlob
			if err := json.Unmarshal([]byte(cached), &blob); err == nil {
				return &blob, nil
			}
			// 缓存内容损坏时当作未命中处理
			logger.Log.Warn("corrupt blob cache entry",
				zap.Uint("userID", userID), zap.String("kind", string(kind)))
		} else if err != redis.Nil {
			logger.Log.Warn("blob cache read failed", zap.Error(err))
		}
	}

	var blob model.ProgressBlob
	err := r.DB.Where("user_id = ? AND kind = ?", userID, kind).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.cache(ctx, &blob)
	return &blob, nil
}

func (r *BlobRepository) Put(userID uint, kind model.BlobKind, schemaVersion int, data []byte) error {
	blob := model.ProgressBlob{
		UserID:        userID,
		Kind:          kind,
		SchemaVersion: schemaVersion,
		Data:          string(data),
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"schema_version", "data", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return err
	}

	r.cache(context.Background(), &blob)
	return nil
}

func (r *BlobRepository) cache(ctx context.Context, blob *model.ProgressBlob) {
	if r.RDB == nil {
		return
	}
	payload, err := json.Marshal(blob)
	if err != nil {
		return
	}
	if err := r.RDB.Set(ctx, blobCacheKey(blob.UserID, blob.Kind), payload, blobCacheTTL).Err(); err != nil {
		logger.Log.Warn("blob cache write failed", zap.Error(err))
	}
}
