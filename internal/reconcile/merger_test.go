package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrith4444/clover-poller/internal/model"
	"github.com/asrith4444/clover-poller/pkg/config"
)

func TestMerge_PreservesPersistedStatus(t *testing.T) {
	previous := []model.Item{
		{ID: "1", Name: "Latte", Status: model.ItemStatusReady},
	}
	fresh := []model.Item{
		{ID: "1", Name: "Latte"},
		{ID: "2", Name: "Muffin"},
	}

	final := Merge(fresh, previous, KeyByID)

	require.Len(t, final, 2)
	assert.Equal(t, model.ItemStatusReady, final[0].Status, "persisted status must survive re-sync")
	assert.Equal(t, "1", final[0].ID)
	assert.Equal(t, model.ItemStatusNew, final[1].Status)
	assert.Equal(t, "2", final[1].ID)
}

func TestMerge_PreservesStatusRegardlessOfFetchOrder(t *testing.T) {
	previous := []model.Item{
		{ID: "2", Name: "Muffin", Status: model.ItemStatusDone},
		{ID: "1", Name: "Latte", Status: model.ItemStatusInProgress},
	}
	fresh := []model.Item{
		{ID: "1", Name: "Latte"},
		{ID: "2", Name: "Muffin"},
	}

	final := Merge(fresh, previous, KeyByID)

	require.Len(t, final, 2)
	assert.Equal(t, model.ItemStatusInProgress, final[0].Status)
	assert.Equal(t, model.ItemStatusDone, final[1].Status)
}

func TestMerge_EmptyFreshReturnsPreviousUnchanged(t *testing.T) {
	// 上游临时漏带展开数据时不得清空已持久化的行明细
	previous := []model.Item{
		{ID: "1", Name: "Latte", Status: model.ItemStatusReady},
		{ID: "2", Name: "Muffin", Status: model.ItemStatusNew},
	}

	final := Merge(nil, previous, KeyByID)

	assert.Equal(t, previous, final)
}

func TestMerge_DropsItemsRemovedUpstream(t *testing.T) {
	// 合并以 fresh 为准，不是并集
	previous := []model.Item{
		{ID: "1", Name: "Latte", Status: model.ItemStatusReady},
		{ID: "9", Name: "Scone", Status: model.ItemStatusDone},
	}
	fresh := []model.Item{
		{ID: "1", Name: "Latte"},
	}

	final := Merge(fresh, previous, KeyByID)

	require.Len(t, final, 1)
	assert.Equal(t, "1", final[0].ID)
	assert.Equal(t, model.ItemStatusReady, final[0].Status)
}

func TestMerge_NameKeyVariant(t *testing.T) {
	previous := []model.Item{
		{Name: "Latte", Status: model.ItemStatusInProgress},
	}
	fresh := []model.Item{
		{Name: "Latte"},
		{Name: "Muffin"},
	}

	final := Merge(fresh, previous, KeyByName)

	require.Len(t, final, 2)
	assert.Equal(t, model.ItemStatusInProgress, final[0].Status)
	assert.Equal(t, model.ItemStatusNew, final[1].Status)
}

func TestMerge_DuplicateFreshKeysCollapsed(t *testing.T) {
	// 结果对 fresh 中每个不同合并键恰好产出一条
	fresh := []model.Item{
		{Name: "Latte"},
		{Name: "Latte"},
	}

	final := Merge(fresh, nil, KeyByName)

	require.Len(t, final, 1)
	assert.Equal(t, model.ItemStatusNew, final[0].Status)
}

func TestKeyFuncFor(t *testing.T) {
	item := model.Item{ID: "42", Name: "Latte"}

	assert.Equal(t, "42", KeyFuncFor(config.ItemKeyID)(item))
	assert.Equal(t, "Latte", KeyFuncFor(config.ItemKeyName)(item))
}
