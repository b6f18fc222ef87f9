// internal/service/stock/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/logger"
	"mall/internal/service/stock/domain"
)

// OrderLocker 是订单级互斥锁的出站端口。
// 它只负责挡住同一 orderRef 的并发重复请求，不参与账本行的串行化——
// 那是条件写原语的职责。拿不到锁时返回 domain.ErrLockTimeout。
type OrderLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// TimeoutScheduler 在锁定成功后调度一次支付超时检查。
type TimeoutScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderRef string, deadline time.Time) error
}

// ReservationService 组合仓库选择策略、库存账本、流水和预占工单，
// 对外提供 lock/unlock/deduct/query 操作。
type ReservationService struct {
	ledger     domain.Ledger
	workOrders domain.WorkOrderRepository
	movements  domain.MovementLog
	locker     OrderLocker
	scheduler  TimeoutScheduler
	tracer     trace.Tracer

	paymentWindow time.Duration
}

func NewReservationService(ledger domain.Ledger, workOrders domain.WorkOrderRepository,
	movements domain.MovementLog, locker OrderLocker, scheduler TimeoutScheduler,
	tracer trace.Tracer, paymentWindow time.Duration) *ReservationService {
	return &ReservationService{
		ledger:        ledger,
		workOrders:    workOrders,
		movements:     movements,
		locker:        locker,
		scheduler:     scheduler,
		tracer:        tracer,
		paymentWindow: paymentWindow,
	}
}

// LockStock 为一个订单锁定库存，整单 all-or-nothing。
// 明细按请求顺序处理，第一条失败即停止，并把已锁定的明细逐条解锁还原。
// 幂等策略: 同一 orderRef 再次调用直接返回已有工单的结果，不重复锁定。
func (s *ReservationService) LockStock(ctx context.Context, req *LockRequest) (*LockResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.LockStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.ref", req.OrderRef),
		attribute.Int("lines", len(req.Lines)),
	)

	if req.OrderRef == "" || len(req.Lines) == 0 {
		return nil, fmt.Errorf("lock request must carry an order ref and at least one line")
	}

	var result *LockResult
	err := s.locker.WithLock(ctx, "stock:order:"+req.OrderRef, func(ctx context.Context) error {
		var err error
		result, err = s.lockLocked(ctx, req)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			lockResults.WithLabelValues("contention").Inc()
			span.AddEvent("per-order mutex not acquired, caller should retry")
		} else {
			lockResults.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "lock stock failed")
		}
		return nil, err
	}

	if result.Success {
		lockResults.WithLabelValues("locked").Inc()
	} else {
		lockResults.WithLabelValues("insufficient").Inc()
	}
	return result, nil
}

// lockLocked 在持有订单级互斥锁的前提下执行锁定。
func (s *ReservationService) lockLocked(ctx context.Context, req *LockRequest) (*LockResult, error) {
	// 幂等: 已有工单直接返回其结果
	if existing, err := s.workOrders.FindByOrderRef(ctx, req.OrderRef); err == nil {
		logger.Ctx(ctx).Info().Str("orderRef", req.OrderRef).Str("status", string(existing.Status)).
			Msg("lock request replayed, returning existing work order result")
		return lockResultFromWorkOrder(existing), nil
	} else if !errors.Is(err, domain.ErrWorkOrderNotFound) {
		return nil, err
	}

	wo := domain.NewWorkOrder(req.OrderRef)
	if err := s.workOrders.Create(ctx, wo); err != nil {
		if errors.Is(err, domain.ErrWorkOrderExists) {
			// 互斥锁过期后的竞速兜底: 唯一索引挡住了第二个创建者
			existing, ferr := s.workOrders.FindByOrderRef(ctx, req.OrderRef)
			if ferr != nil {
				return nil, ferr
			}
			return lockResultFromWorkOrder(existing), nil
		}
		return nil, err
	}

	result := &LockResult{WorkOrderID: wo.ID}

	for _, line := range req.Lines {
		warehouseID, reason, err := s.lockLine(ctx, req.OrderRef, line)
		if err != nil {
			return nil, err
		}
		if warehouseID == "" {
			// 首条失败: 停止处理剩余明细，已锁定的整单回滚
			s.rollbackLocked(ctx, req.OrderRef, wo)
			result.Lines = append(result.Lines, LineResult{
				SkuID: line.SkuID, Qty: line.Qty, Reason: reason,
			})
			wo.Lines = append(wo.Lines, domain.ReservationLine{
				SkuID:         line.SkuID,
				RequestedQty:  line.Qty,
				Status:        domain.LineUnlocked,
				FailureReason: reason,
			})
			if err := wo.MarkUnlocked(reason); err != nil {
				return nil, err
			}
			if err := s.workOrders.Save(ctx, wo); err != nil {
				return nil, err
			}
			result.Success = false
			result.FailureReason = reason
			return result, nil
		}

		wo.AddLockedLine(line.SkuID, line.Qty, warehouseID)
		result.Lines = append(result.Lines, LineResult{
			SkuID: line.SkuID, Qty: line.Qty, WarehouseID: warehouseID, Success: true,
		})
	}

	if err := wo.MarkLocked(); err != nil {
		return nil, err
	}
	if err := s.workOrders.Save(ctx, wo); err != nil {
		return nil, err
	}

	// 调度支付超时检查。失败只记日志: 定时兜底扫描仍会关单。
	if s.scheduler != nil {
		deadline := time.Now().Add(s.paymentWindow)
		if err := s.scheduler.SchedulePaymentTimeout(ctx, req.OrderRef, deadline); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("orderRef", req.OrderRef).
				Msg("failed to schedule payment timeout check")
		}
	}

	result.Success = true
	return result, nil
}

// lockLine 按仓库选择策略为一条明细锁定库存。
// 返回锁定成功的仓库 ID；所有候选仓都失败时返回空串和原因。
func (s *ReservationService) lockLine(ctx context.Context, orderRef string, line LockLine) (string, string, error) {
	if line.Qty <= 0 {
		return "", domain.ErrInvalidQuantity.Error(), nil
	}
	candidates, err := s.ledger.FindCandidates(ctx, line.SkuID)
	if err != nil {
		return "", "", err
	}
	selected := domain.SelectWarehouses(candidates, line.WarehouseHint)
	if len(selected) == 0 {
		return "", domain.ErrInsufficientStock.Error(), nil
	}

	for _, candidate := range selected {
		err := s.ledger.Lock(ctx, line.SkuID, candidate.WarehouseID, line.Qty, orderRef)
		if err == nil {
			ledgerMutations.WithLabelValues(string(domain.OpLock)).Inc()
			return candidate.WarehouseID, "", nil
		}
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrRecordNotFound) {
			continue // 下一个候选仓
		}
		return "", "", err
	}
	return "", domain.ErrInsufficientStock.Error(), nil
}

// rollbackLocked 把本次请求里已锁定的明细逐条解锁（请求级 all-or-nothing）。
func (s *ReservationService) rollbackLocked(ctx context.Context, orderRef string, wo *domain.WorkOrder) {
	for i := range wo.Lines {
		line := &wo.Lines[i]
		if line.Status != domain.LineLocked {
			continue
		}
		if err := s.ledger.Unlock(ctx, line.SkuID, line.AssignedWarehouse, line.LockedQty, orderRef); err != nil {
			// 回滚失败意味着锁定的库存卡住了，必须暴露给运维
			invariantViolations.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("orderRef", orderRef).Str("sku", line.SkuID).Str("warehouse", line.AssignedWarehouse).
				Msg("CRITICAL: failed to roll back locked line, stock is stuck")
			continue
		}
		ledgerMutations.WithLabelValues(string(domain.OpUnlock)).Inc()
		line.Status = domain.LineUnlocked
	}
}

// UnlockStock 按订单号释放整单锁定。重复调用是 no-op。
func (s *ReservationService) UnlockStock(ctx context.Context, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.UnlockStock")
	defer span.End()
	span.SetAttributes(attribute.String("order.ref", orderRef))

	wo, err := s.workOrders.FindByOrderRef(ctx, orderRef)
	if err != nil {
		return err
	}
	return s.unlock(ctx, wo)
}

// UnlockStockByWorkOrder 按工单 ID 释放，供运维和任务回放使用。
func (s *ReservationService) UnlockStockByWorkOrder(ctx context.Context, workOrderID string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.UnlockStockByWorkOrder")
	defer span.End()

	wo, err := s.workOrders.FindByID(ctx, workOrderID)
	if err != nil {
		return err
	}
	return s.unlock(ctx, wo)
}

func (s *ReservationService) unlock(ctx context.Context, wo *domain.WorkOrder) error {
	switch wo.Status {
	case domain.WorkOrderUnlocked, domain.WorkOrderDeducted:
		return nil // 已是终态，幂等
	case domain.WorkOrderNew, domain.WorkOrderLocked:
	}

	// 逐行解锁并逐行落盘: 中途失败后重试只会处理剩余的 LOCKED 行，
	// 不会对同一行二次解锁。
	for i := range wo.Lines {
		line := &wo.Lines[i]
		if line.Status != domain.LineLocked {
			continue
		}
		if err := s.ledger.Unlock(ctx, line.SkuID, line.AssignedWarehouse, line.LockedQty, wo.OrderRef); err != nil {
			if errors.Is(err, domain.ErrInvalidState) {
				invariantViolations.Inc()
				logger.Ctx(ctx).Error().Err(err).
					Str("orderRef", wo.OrderRef).Str("sku", line.SkuID).
					Msg("CRITICAL: unlock guard failed, work-order discipline was bypassed")
			}
			return err
		}
		ledgerMutations.WithLabelValues(string(domain.OpUnlock)).Inc()
		line.Status = domain.LineUnlocked
		if err := s.workOrders.Save(ctx, wo); err != nil {
			return err
		}
	}

	if err := wo.MarkUnlocked(""); err != nil {
		return err
	}
	return s.workOrders.Save(ctx, wo)
}

// DeductStock 支付成功后把整单锁定转为实扣。
// 要求工单处于 LOCKED；已 DEDUCTED 时幂等返回成功。
func (s *ReservationService) DeductStock(ctx context.Context, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.DeductStock")
	defer span.End()
	span.SetAttributes(attribute.String("order.ref", orderRef))

	wo, err := s.workOrders.FindByOrderRef(ctx, orderRef)
	if err != nil {
		return err
	}

	switch wo.Status {
	case domain.WorkOrderDeducted:
		return nil // 幂等
	case domain.WorkOrderLocked:
	default:
		span.SetStatus(codes.Error, "deduct on non-locked work order")
		return fmt.Errorf("%w: deduct requires LOCKED, got %s", domain.ErrInvalidStateTransition, wo.Status)
	}

	for i := range wo.Lines {
		line := &wo.Lines[i]
		if line.Status != domain.LineLocked {
			continue
		}
		if err := s.ledger.Deduct(ctx, line.SkuID, line.AssignedWarehouse, line.LockedQty, orderRef); err != nil {
			// 按不变式这里不可达；一旦发生必须带完整上下文暴露，调用方整体重试
			invariantViolations.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("orderRef", orderRef).Str("sku", line.SkuID).Str("warehouse", line.AssignedWarehouse).
				Int("qty", line.LockedQty).
				Msg("CRITICAL: deduct guard failed on locked line")
			return err
		}
		ledgerMutations.WithLabelValues(string(domain.OpDeduct)).Inc()
		line.Status = domain.LineDeducted
		if err := s.workOrders.Save(ctx, wo); err != nil {
			return err
		}
	}

	if err := wo.MarkDeducted(); err != nil {
		return err
	}
	return s.workOrders.Save(ctx, wo)
}

// AddStock 入库/调整。
func (s *ReservationService) AddStock(ctx context.Context, skuID, warehouseID string, qty int, note string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.AddStock")
	defer span.End()

	if err := s.ledger.AddStock(ctx, skuID, warehouseID, qty, note); err != nil {
		span.RecordError(err)
		return err
	}
	ledgerMutations.WithLabelValues(string(domain.OpStockIn)).Inc()
	return nil
}

// HasStock 只读查询: 每个 SKU 在启用仓库里是否还有可售库存。
func (s *ReservationService) HasStock(ctx context.Context, skuIDs []string) (map[string]bool, error) {
	views, err := s.GetStock(ctx, skuIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(skuIDs))
	for _, v := range views {
		result[v.SkuID] = v.Available > 0
	}
	return result, nil
}

// GetStock 只读查询: 每个 SKU 跨启用仓库汇总的库存视图。
func (s *ReservationService) GetStock(ctx context.Context, skuIDs []string) ([]StockView, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.GetStock")
	defer span.End()

	views := make([]StockView, 0, len(skuIDs))
	for _, skuID := range skuIDs {
		records, err := s.ledger.FindBySku(ctx, skuID)
		if err != nil {
			return nil, err
		}
		view := StockView{SkuID: skuID}
		for _, rec := range records {
			if rec.Status != domain.RecordEnabled {
				continue
			}
			view.Actual += rec.ActualStock
			view.Locked += rec.LockedStock
			view.Available += rec.AvailableStock()
			view.Warehouses = append(view.Warehouses, WarehouseView{
				WarehouseID: rec.WarehouseID,
				Available:   rec.AvailableStock(),
				Actual:      rec.ActualStock,
				Locked:      rec.LockedStock,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

// GetWorkOrder 按订单号查询工单。
func (s *ReservationService) GetWorkOrder(ctx context.Context, orderRef string) (*domain.WorkOrder, error) {
	return s.workOrders.FindByOrderRef(ctx, orderRef)
}

// Movements 按 SKU 查询流水。
func (s *ReservationService) Movements(ctx context.Context, skuID string, limit int) ([]domain.StockMovement, error) {
	return s.movements.FindBySku(ctx, skuID, limit)
}
