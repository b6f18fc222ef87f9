package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockRecordApplyLock(t *testing.T) {
	r := &StockRecord{SkuID: "sku-1", WarehouseID: "wh-1", ActualStock: 10, LockedStock: 3, Status: RecordEnabled}

	assert.Equal(t, 7, r.AvailableStock())
	assert.True(t, r.CanLock(7))
	assert.False(t, r.CanLock(8))

	assert.NoError(t, r.ApplyLock(5))
	assert.Equal(t, 8, r.LockedStock)
	assert.Equal(t, 2, r.AvailableStock())

	assert.ErrorIs(t, r.ApplyLock(3), ErrInsufficientStock)
	assert.ErrorIs(t, r.ApplyLock(0), ErrInvalidQuantity)
	assert.ErrorIs(t, r.ApplyLock(-1), ErrInvalidQuantity)
}

func TestStockRecordDisabledCannotLock(t *testing.T) {
	r := &StockRecord{SkuID: "sku-1", WarehouseID: "wh-1", ActualStock: 10, Status: RecordDisabled}

	assert.False(t, r.CanLock(1))
	assert.ErrorIs(t, r.ApplyLock(1), ErrInsufficientStock)
}

func TestStockRecordApplyUnlock(t *testing.T) {
	r := &StockRecord{ActualStock: 10, LockedStock: 4, Status: RecordEnabled}

	assert.NoError(t, r.ApplyUnlock(4))
	assert.Equal(t, 0, r.LockedStock)
	assert.Equal(t, 10, r.ActualStock)

	assert.ErrorIs(t, r.ApplyUnlock(1), ErrInvalidState)
}

func TestStockRecordApplyDeduct(t *testing.T) {
	r := &StockRecord{ActualStock: 10, LockedStock: 4, Status: RecordEnabled}

	assert.NoError(t, r.ApplyDeduct(4))
	assert.Equal(t, 6, r.ActualStock)
	assert.Equal(t, 0, r.LockedStock)

	// 没有锁定就不能扣
	assert.ErrorIs(t, r.ApplyDeduct(1), ErrInvalidState)
}

func TestStockRecordInvariantHoldsAfterMixedOps(t *testing.T) {
	r := &StockRecord{ActualStock: 5, Status: RecordEnabled}

	assert.NoError(t, r.ApplyInbound(5))
	assert.NoError(t, r.ApplyLock(6))
	assert.NoError(t, r.ApplyDeduct(2))
	assert.NoError(t, r.ApplyUnlock(4))

	assert.GreaterOrEqual(t, r.LockedStock, 0)
	assert.GreaterOrEqual(t, r.ActualStock, r.LockedStock)
}
