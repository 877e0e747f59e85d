package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Order 订单持久化实体（同步结果的本地投影）
type Order struct {
	// 基础字段（仅 insert 时写入）
	ID     string `gorm:"column:id;primaryKey;type:varchar(64)"`
	Status string `gorm:"column:status;type:varchar(16);not null;default:'open'"`

	// 同步数据（每次同步覆盖）
	Title string         `gorm:"column:title;type:varchar(255);not null"`
	Items datatypes.JSON `gorm:"column:items;type:json;not null"`

	// 上游时间戳（epoch 毫秒）
	CloverCreatedAt  int64 `gorm:"column:clover_created_at;not null;index:idx_clover_created_at"`
	CloverModifiedAt int64 `gorm:"column:clover_modified_at;not null"`

	// 审计时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
