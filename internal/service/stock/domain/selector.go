// internal/service/stock/domain/selector.go
package domain

import "sort"

// WarehouseStock 是仓库选择策略的输入视图: 某个 SKU 在一个仓库里的可用情况。
type WarehouseStock struct {
	WarehouseID string
	Priority    int
	Available   int
	Enabled     bool
}

// SelectWarehouses 是纯函数的仓库选择策略:
// 候选 = 所有启用且有该 SKU 记录的仓库；指定了 hint 则只保留 hint 仓；
// 按优先级升序排列。调用方按序尝试条件锁定，第一个成功者胜出。
func SelectWarehouses(candidates []WarehouseStock, hint string) []WarehouseStock {
	selected := make([]WarehouseStock, 0, len(candidates))
	for _, c := range candidates {
		if !c.Enabled {
			continue
		}
		if hint != "" && c.WarehouseID != hint {
			continue
		}
		selected = append(selected, c)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority < selected[j].Priority
	})
	return selected
}
