package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticElector struct{ leader bool }

func (e staticElector) IsLeader() bool { return e.leader }

func newSweeper(f *fixture, leader bool) *OrderSweeper {
	return NewOrderSweeper(f.repo, f.svc, f.points, staticElector{leader: leader}, SweeperConfig{
		Interval:      10 * time.Millisecond,
		PaymentWindow: 30 * time.Minute,
		ConfirmGrace:  7 * 24 * time.Hour,
		SettleGrace:   24 * time.Hour,
		BatchSize:     100,
	})
}

func TestSweepUnpaidClosesStaleOrders(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	// 把订单拨回支付窗口之外
	f.repo.mu.Lock()
	f.repo.orders[result.OrderRef].CreatedAt = time.Now().Add(-time.Hour)
	f.repo.mu.Unlock()

	sweeper := newSweeper(f, true)
	require.NoError(t, sweeper.sweepUnpaid(context.Background()))

	order, err := f.repo.FindByRef(context.Background(), result.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", string(order.Status))
	assert.Equal(t, 1, f.reservation.unlockCalls)
}

func TestSweepUnpaidSkipsFreshOrders(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	sweeper := newSweeper(f, true)
	require.NoError(t, sweeper.sweepUnpaid(context.Background()))

	order, err := f.repo.FindByRef(context.Background(), result.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, "UNPAID", string(order.Status))
}

func TestSweepShippedAutoConfirms(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))
	require.NoError(t, f.svc.ShipOrder(context.Background(), result.OrderRef, "merchant"))

	stale := time.Now().Add(-8 * 24 * time.Hour)
	f.repo.mu.Lock()
	f.repo.orders[result.OrderRef].ShippedAt = &stale
	f.repo.mu.Unlock()

	sweeper := newSweeper(f, true)
	require.NoError(t, sweeper.sweepShipped(context.Background()))

	order, err := f.repo.FindByRef(context.Background(), result.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", string(order.Status))
}

func TestSweepUnsettledCreditsPointsOnce(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))
	require.NoError(t, f.svc.ShipOrder(context.Background(), result.OrderRef, "merchant"))
	require.NoError(t, f.svc.ConfirmReceipt(context.Background(), result.OrderRef, "buyer"))

	stale := time.Now().Add(-2 * 24 * time.Hour)
	f.repo.mu.Lock()
	f.repo.orders[result.OrderRef].ReceivedAt = &stale
	f.repo.mu.Unlock()

	sweeper := newSweeper(f, true)
	require.NoError(t, sweeper.sweepUnsettled(context.Background()))

	// 实付 2900 分，返 29 积分
	assert.Equal(t, 1, f.points.creditCalls)
	assert.Equal(t, int64(29), f.points.credited)

	// 结算守卫保证重复扫描不重复返积分
	require.NoError(t, sweeper.sweepUnsettled(context.Background()))
	assert.Equal(t, 1, f.points.creditCalls)
}

func TestLoopGatedByLeadership(t *testing.T) {
	f := newFixture(passLocker{})

	var rounds atomic.Int64
	count := func(context.Context) error {
		rounds.Add(1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = newSweeper(f, false).loop(ctx, "auto_cancel", count)
	assert.Equal(t, int64(0), rounds.Load())

	ctx, cancel = context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = newSweeper(f, true).loop(ctx, "auto_cancel", count)
	assert.Greater(t, rounds.Load(), int64(0))
}
