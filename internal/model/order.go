package model

// RemoteOrder Clover 返回的订单原始数据（一页中的一条）
type RemoteOrder struct {
	ID           string       // Clover 订单 ID
	Title        string       // 订单标题
	CreatedTime  int64        // 创建时间（epoch 毫秒，上游不可变）
	ModifiedTime int64        // 最后修改时间（epoch 毫秒，上游单调不减）
	Items        []RemoteItem // 行明细（expand=lineItems）
}

// RemoteItem 订单行明细原始数据
type RemoteItem struct {
	ID   string // 行明细 ID（部分 Clover 接入形态下为空）
	Name string // 商品名称
}

// Item 本地行明细（含本地工作流状态）
type Item struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// 行明细工作流状态常量（本地状态，不来自上游）
const (
	ItemStatusNew        = "new"
	ItemStatusInProgress = "in-progress"
	ItemStatusReady      = "ready"
	ItemStatusDone       = "done"
)

// OrderStatusOpen 订单初始工作流状态（仅首次落库时写入，后续同步不覆盖）
const OrderStatusOpen = "open"

// OrderDocument 订单落库文档（Reconciler 是其逻辑内容的唯一写入方）
type OrderDocument struct {
	ID           string
	Title        string
	Status       string // 仅在 insert 时生效
	Items        []Item
	CreatedTime  int64 // 仅在 insert 时生效
	ModifiedTime int64
}

// OrderProjection 订单投影读结果（仅 items + status）
type OrderProjection struct {
	Items  []Item
	Status string
}

// OrderUpdateNotification 订单变更广播消息
type OrderUpdateNotification struct {
	Event        string   `json:"event"`
	OrderID      string   `json:"order_id"`
	Title        string   `json:"title"`
	Items        []Item   `json:"items"`
	NewItems     []string `json:"new_items"`
	Status       string   `json:"status,omitempty"` // 仅首次观察到该订单时携带
	ModifiedTime int64    `json:"modified_time"`
	Timestamp    int64    `json:"timestamp"`
}
