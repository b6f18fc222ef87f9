// internal/service/order/application/sweeper.go
package application

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// LeaderElector 是扫描任务的选主门禁，多实例部署时只有主节点扫库。
type LeaderElector interface {
	IsLeader() bool
}

// SweeperConfig 是三个后台扫描任务的时间参数。
type SweeperConfig struct {
	Interval      time.Duration // 扫描周期
	PaymentWindow time.Duration // 超过此时长未支付则关单
	ConfirmGrace  time.Duration // 发货后超过此时长自动确认收货
	SettleGrace   time.Duration // 收货后超过此时长自动结算返积分
	BatchSize     int           // 单轮处理上限
}

// OrderSweeper 驱动订单生命周期的三个兜底扫描:
// 超时关单、超时自动收货、完成订单结算返积分。
// 延迟队列是关单的主通道，扫描只兜底消息丢失的情况，
// 守卫流转保证两条通道并发时只有一条生效。
type OrderSweeper struct {
	repo    domain.OrderRepository
	svc     *OrderApplicationService
	points  port.PointsService
	elector LeaderElector
	cfg     SweeperConfig
}

func NewOrderSweeper(repo domain.OrderRepository, svc *OrderApplicationService,
	points port.PointsService, elector LeaderElector, cfg SweeperConfig) *OrderSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &OrderSweeper{repo: repo, svc: svc, points: points, elector: elector, cfg: cfg}
}

// Run 阻塞运行全部扫描循环，直到 ctx 取消。
func (w *OrderSweeper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.loop(ctx, "auto_cancel", w.sweepUnpaid) })
	g.Go(func() error { return w.loop(ctx, "auto_confirm", w.sweepShipped) })
	g.Go(func() error { return w.loop(ctx, "auto_settle", w.sweepUnsettled) })
	return g.Wait()
}

func (w *OrderSweeper) loop(ctx context.Context, name string, sweep func(ctx context.Context) error) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !w.elector.IsLeader() {
			continue
		}
		if err := sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Ctx(ctx).Error().Err(err).Str("sweeper", name).Msg("sweep round failed")
		}
	}
}

// sweepUnpaid 关闭超过支付窗口仍未支付的订单。
func (w *OrderSweeper) sweepUnpaid(ctx context.Context) error {
	cutoff := time.Now().Add(-w.cfg.PaymentWindow)
	refs, err := w.repo.FindUnpaidBefore(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		err := w.svc.CancelOrder(ctx, ref, "system", "payment timeout")
		if err != nil && !errors.Is(err, domain.ErrNotCancellable) {
			logger.Ctx(ctx).Error().Err(err).Str("order_ref", ref).Msg("auto cancel failed")
			continue
		}
		sweeperRuns.WithLabelValues("auto_cancel").Inc()
	}
	return nil
}

// sweepShipped 对发货后超过确认期的订单自动确认收货。
func (w *OrderSweeper) sweepShipped(ctx context.Context) error {
	cutoff := time.Now().Add(-w.cfg.ConfirmGrace)
	refs, err := w.repo.FindShippedBefore(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		err := w.svc.ConfirmReceipt(ctx, ref, "system")
		if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			logger.Ctx(ctx).Error().Err(err).Str("order_ref", ref).Msg("auto confirm failed")
			continue
		}
		sweeperRuns.WithLabelValues("auto_confirm").Inc()
	}
	return nil
}

// sweepUnsettled 对完成但未结算的订单返还积分并标记结算。
// MarkSettled 守卫写保证积分只返一次。
func (w *OrderSweeper) sweepUnsettled(ctx context.Context) error {
	cutoff := time.Now().Add(-w.cfg.SettleGrace)
	refs, err := w.repo.FindUnsettledBefore(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		order, err := w.repo.FindByRef(ctx, ref)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_ref", ref).Msg("settle load failed")
			continue
		}
		ok, err := w.repo.MarkSettled(ctx, ref, time.Now())
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_ref", ref).Msg("settle guard failed")
			continue
		}
		if !ok {
			continue
		}
		if earned := order.EarnedPoints(); earned > 0 {
			if _, err := w.points.Credit(ctx, order.BuyerID, earned); err != nil {
				logger.Ctx(ctx).Error().Err(err).
					Str("order_ref", ref).
					Int64("points", earned).
					Msg("CRITICAL: points credit failed after settlement, manual intervention required")
				compensationFailures.Inc()
				continue
			}
		}
		if err := w.repo.AppendHistory(ctx, domain.NewOperateHistory(
			ref, "system", domain.StatusCompleted, "order settled, points credited")); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_ref", ref).Msg("append settle history failed")
		}
		sweeperRuns.WithLabelValues("auto_settle").Inc()
	}
	return nil
}
