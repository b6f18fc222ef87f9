package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectWarehousesOrdersByPriority(t *testing.T) {
	candidates := []WarehouseStock{
		{WarehouseID: "wh-east", Priority: 2, Available: 5, Enabled: true},
		{WarehouseID: "wh-main", Priority: 1, Available: 0, Enabled: true},
		{WarehouseID: "wh-south", Priority: 3, Available: 9, Enabled: true},
	}

	selected := SelectWarehouses(candidates, "")

	assert.Len(t, selected, 3)
	assert.Equal(t, "wh-main", selected[0].WarehouseID)
	assert.Equal(t, "wh-east", selected[1].WarehouseID)
	assert.Equal(t, "wh-south", selected[2].WarehouseID)
}

func TestSelectWarehousesSkipsDisabled(t *testing.T) {
	candidates := []WarehouseStock{
		{WarehouseID: "wh-main", Priority: 1, Enabled: false},
		{WarehouseID: "wh-east", Priority: 2, Enabled: true},
	}

	selected := SelectWarehouses(candidates, "")

	assert.Len(t, selected, 1)
	assert.Equal(t, "wh-east", selected[0].WarehouseID)
}

func TestSelectWarehousesHonorsHint(t *testing.T) {
	candidates := []WarehouseStock{
		{WarehouseID: "wh-main", Priority: 1, Enabled: true},
		{WarehouseID: "wh-east", Priority: 2, Enabled: true},
	}

	selected := SelectWarehouses(candidates, "wh-east")
	assert.Len(t, selected, 1)
	assert.Equal(t, "wh-east", selected[0].WarehouseID)

	// hint 指向停用仓时候选为空，锁定自然失败
	candidates[1].Enabled = false
	assert.Empty(t, SelectWarehouses(candidates, "wh-east"))
}
