package reconcile

import (
	"context"

	"github.com/asrith4444/clover-poller/internal/model"
)

// Fetcher 上游订单源接口（分页只读，无副作用）
type Fetcher interface {
	// FetchPage 拉取一页订单
	// createdAfter 仅作为查询提示，窗口过滤由调用方完成
	// hasMore 表示本页满页，可能还有下一页
	FetchPage(ctx context.Context, offset, limit int, createdAfter int64) ([]model.RemoteOrder, bool, error)
}

// OrderStore 持久化网关接口
type OrderStore interface {
	// Upsert 按订单 ID 幂等写入（Status/CreatedTime 仅首次 insert 生效）
	Upsert(ctx context.Context, doc *model.OrderDocument) error

	// GetProjection 读取订单投影（items + status），不存在时返回 (nil, nil)
	GetProjection(ctx context.Context, orderID string) (*model.OrderProjection, error)
}

// Broadcaster 变更广播网关接口
type Broadcaster interface {
	// PublishOrderUpdate 发布订单变更通知（fire-and-forget）
	PublishOrderUpdate(ctx context.Context, notification *model.OrderUpdateNotification) error
}

// Logger 日志接口
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}
