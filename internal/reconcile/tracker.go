package reconcile

// Tracker 行明细去重器：按订单记录本进程生命周期内已观测过的行明细键
//
// 标记策略：每个成功落库的周期将当前拉取到的全部行明细键标记为已见
// （而非仅标记新增项），因此进程重启是重复播报的唯一来源。
// 进程内状态，重启即清空；启动时不读库回填，重启后的一次重复播报是可接受的。
// 仅由单个 Reconciler 串行读写，不加锁。
type Tracker struct {
	seen map[string]map[string]struct{}
}

// NewTracker 创建去重器
func NewTracker() *Tracker {
	return &Tracker{
		seen: make(map[string]map[string]struct{}),
	}
}

// NewKeys 返回 keys 中尚未观测过的键（保持输入顺序，输入内部去重）
func (t *Tracker) NewKeys(orderID string, keys []string) []string {
	observed := t.seen[orderID]

	var fresh []string
	inBatch := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := inBatch[key]; dup {
			continue
		}
		inBatch[key] = struct{}{}

		if _, ok := observed[key]; !ok {
			fresh = append(fresh, key)
		}
	}

	return fresh
}

// MarkSeen 将 keys 全部标记为已观测
// 必须在持久化成功之后调用：写入失败的订单下个周期仍会判定为新增
func (t *Tracker) MarkSeen(orderID string, keys []string) {
	observed, ok := t.seen[orderID]
	if !ok {
		observed = make(map[string]struct{}, len(keys))
		t.seen[orderID] = observed
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		observed[key] = struct{}{}
	}
}
