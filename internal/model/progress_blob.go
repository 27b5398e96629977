package model

// BlobKind 持久化快照的种类，每个用户每种各一条
type BlobKind string

const (
	BlobKindProgress BlobKind = "progress"
	BlobKindPremium  BlobKind = "premium"
)

// ProgressBlob 以整条 JSON 快照形式落库的用户状态。
// 读写都是整体替换，不做字段级更新
// swagger:model ProgressBlob
type ProgressBlob struct {
	BaseModel
	UserID        uint     `gorm:"uniqueIndex:idx_blob_user_kind;type:bigint unsigned;not null" json:"userId"`
	Kind          BlobKind `gorm:"uniqueIndex:idx_blob_user_kind;size:16;not null" json:"kind"`
	SchemaVersion int      `gorm:"default:1" json:"schemaVersion"`
	Data          string   `gorm:"type:json" json:"data"`
}

func (ProgressBlob) TableName() string {
	return "progress_blobs"
}
