package reconcile

import (
	"github.com/asrith4444/clover-poller/internal/model"
	"github.com/asrith4444/clover-poller/pkg/config"
)

// KeyFunc 行明细合并键策略
// 按配置选定一次，合并与去重统一使用，不在合并逻辑里做空值分支
type KeyFunc func(item model.Item) string

// KeyByID 以上游行明细 ID 为合并键
func KeyByID(item model.Item) string {
	return item.ID
}

// KeyByName 以商品名称为合并键（无稳定 ID 的接入形态）
// 已知局限：同名的不同物理行明细会被并为一条，不做特殊处理
func KeyByName(item model.Item) string {
	return item.Name
}

// KeyFuncFor 根据配置选择合并键策略
func KeyFuncFor(itemKey string) KeyFunc {
	if itemKey == config.ItemKeyName {
		return KeyByName
	}
	return KeyByID
}

// Merge 合并本次拉取与已持久化的行明细，保留本地工作流状态
//
// 以 fresh 为准：结果对 fresh 中每个不同的合并键恰好产出一条，
// 仅存在于 previous 中的行明细（已被上游移除）被丢弃。
// 状态解析：previous 中同键的状态优先，否则为 "new"。
//
// 边界：fresh 为空（上游临时漏带展开数据）时原样返回 previous，
// 避免一次瞬时缺失清空已持久化的行明细。
func Merge(fresh, previous []model.Item, keyOf KeyFunc) []model.Item {
	if len(fresh) == 0 {
		return previous
	}

	prevStatus := make(map[string]string, len(previous))
	for _, item := range previous {
		prevStatus[keyOf(item)] = item.Status
	}

	final := make([]model.Item, 0, len(fresh))
	merged := make(map[string]struct{}, len(fresh))
	for _, item := range fresh {
		key := keyOf(item)
		if _, dup := merged[key]; dup {
			continue
		}
		merged[key] = struct{}{}

		if status, ok := prevStatus[key]; ok && status != "" {
			item.Status = status
		} else {
			item.Status = model.ItemStatusNew
		}
		final = append(final, item)
	}

	return final
}
