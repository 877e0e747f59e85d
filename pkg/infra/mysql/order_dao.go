package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asrith4444/clover-poller/internal/entity"
	"github.com/asrith4444/clover-poller/internal/model"
)

// mutableColumns 每次同步允许覆盖的列
// id / status / clover_created_at / created_at 仅 insert 时写入：
// 重复 upsert 永远不会重置已存在订单的工作流状态
var mutableColumns = []string{"title", "items", "clover_modified_at", "updated_at"}

// OrderDAO 订单数据访问对象
type OrderDAO struct {
	db *gorm.DB
}

// NewOrderDAO 创建 OrderDAO 实例
func NewOrderDAO(dsn string) (*OrderDAO, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &OrderDAO{
		db: db,
	}, nil
}

// Upsert 按订单 ID 幂等写入
// 参数：
//   - ctx: 上下文
//   - doc: 订单文档（Status/CreatedTime 仅在首次 insert 时生效）
func (dao *OrderDAO) Upsert(ctx context.Context, doc *model.OrderDocument) error {
	itemsJSON, err := json.Marshal(doc.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	now := time.Now()
	po := &entity.Order{
		ID:               doc.ID,
		Status:           doc.Status,
		Title:            doc.Title,
		Items:            itemsJSON,
		CloverCreatedAt:  doc.CreatedTime,
		CloverModifiedAt: doc.ModifiedTime,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	result := dao.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(po)

	if result.Error != nil {
		return fmt.Errorf("failed to upsert order: %w", result.Error)
	}

	return nil
}

// GetProjection 按订单 ID 读取投影（仅 items + status）
// 订单不存在时返回 (nil, nil)
func (dao *OrderDAO) GetProjection(ctx context.Context, orderID string) (*model.OrderProjection, error) {
	var po entity.Order
	result := dao.db.WithContext(ctx).
		Select("items", "status").
		Where("id = ?", orderID).
		First(&po)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order projection: %w", result.Error)
	}

	var items []model.Item
	if len(po.Items) > 0 {
		if err := json.Unmarshal(po.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}

	return &model.OrderProjection{
		Items:  items,
		Status: po.Status,
	}, nil
}

// Close 关闭数据库连接
func (dao *OrderDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
