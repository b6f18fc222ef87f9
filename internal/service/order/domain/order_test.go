package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderStartsUnpaid(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{Province: "广东省"})

	assert.NotEmpty(t, order.OrderRef)
	assert.Equal(t, StatusUnpaid, order.Status)
	assert.Equal(t, "广东省", order.Shipping.Province)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})

	changed := order.MarkPaid("wechat", "tx-1")
	require.True(t, changed)
	assert.Equal(t, StatusAwaitingShipment, order.Status)
	assert.Equal(t, "tx-1", order.TransactionRef)
	require.NotNil(t, order.PaidAt)

	// 重复回调不再改变状态
	assert.False(t, order.MarkPaid("alipay", "tx-2"))
	assert.Equal(t, "tx-1", order.TransactionRef)
}

func TestCancelOnlyFromUnpaid(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})

	changed, err := order.Cancel("payment timeout")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusClosed, order.Status)
	assert.Equal(t, "payment timeout", order.CloseReason)

	// 已关闭的订单幂等返回
	changed, err = order.Cancel("again")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "payment timeout", order.CloseReason)
}

func TestCancelPaidOrderRejected(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})
	order.MarkPaid("wechat", "tx-1")

	_, err := order.Cancel("too late")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, StatusAwaitingShipment, order.Status)
}

func TestFulfillmentFlow(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})
	order.MarkPaid("wechat", "tx-1")

	require.NoError(t, order.Ship())
	assert.Equal(t, StatusShipped, order.Status)

	require.NoError(t, order.ConfirmReceipt())
	assert.Equal(t, StatusCompleted, order.Status)

	require.NoError(t, order.Settle())
	require.NotNil(t, order.SettledAt)

	// 结算只能发生一次
	assert.ErrorIs(t, order.Settle(), ErrInvalidTransition)
}

func TestTransitionGuards(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})

	// 未支付不能发货，未发货不能收货
	assert.ErrorIs(t, order.Ship(), ErrInvalidTransition)
	assert.ErrorIs(t, order.ConfirmReceipt(), ErrInvalidTransition)
	assert.ErrorIs(t, order.Settle(), ErrInvalidTransition)
}

func TestEarnedPoints(t *testing.T) {
	order := NewOrder("buyer-1", ShippingSnapshot{})
	order.Payable = 12345 // 123.45 元

	assert.Equal(t, int64(123), order.EarnedPoints())

	order.Payable = 99
	assert.Equal(t, int64(0), order.EarnedPoints())
}
