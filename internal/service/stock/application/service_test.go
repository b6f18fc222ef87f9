package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"mall/internal/service/stock/domain"
)

// ---- 测试替身 ----

type warehouseMeta struct {
	priority int
	enabled  bool
}

// memLedger 是账本的内存实现，守卫语义与 GORM 实现一致。
type memLedger struct {
	mu         sync.Mutex
	records    map[string]*domain.StockRecord // key: sku|warehouse
	warehouses map[string]warehouseMeta
}

func newMemLedger() *memLedger {
	return &memLedger{
		records:    make(map[string]*domain.StockRecord),
		warehouses: make(map[string]warehouseMeta),
	}
}

func (l *memLedger) addWarehouse(id string, priority int, enabled bool) {
	l.warehouses[id] = warehouseMeta{priority: priority, enabled: enabled}
}

func (l *memLedger) seed(skuID, warehouseID string, actual int) {
	l.records[skuID+"|"+warehouseID] = &domain.StockRecord{
		SkuID: skuID, WarehouseID: warehouseID,
		ActualStock: actual, Status: domain.RecordEnabled,
	}
}

func (l *memLedger) Lock(_ context.Context, skuID, warehouseID string, qty int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[skuID+"|"+warehouseID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	return rec.ApplyLock(qty)
}

func (l *memLedger) Unlock(_ context.Context, skuID, warehouseID string, qty int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[skuID+"|"+warehouseID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	return rec.ApplyUnlock(qty)
}

func (l *memLedger) Deduct(_ context.Context, skuID, warehouseID string, qty int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[skuID+"|"+warehouseID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	return rec.ApplyDeduct(qty)
}

func (l *memLedger) AddStock(_ context.Context, skuID, warehouseID string, qty int, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := skuID + "|" + warehouseID
	rec, ok := l.records[key]
	if !ok {
		rec = &domain.StockRecord{SkuID: skuID, WarehouseID: warehouseID, Status: domain.RecordEnabled}
		l.records[key] = rec
	}
	return rec.ApplyInbound(qty)
}

func (l *memLedger) FindBySku(_ context.Context, skuID string) ([]domain.StockRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.StockRecord
	for _, rec := range l.records {
		if rec.SkuID == skuID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (l *memLedger) FindCandidates(_ context.Context, skuID string) ([]domain.WarehouseStock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.WarehouseStock
	for _, rec := range l.records {
		if rec.SkuID != skuID {
			continue
		}
		meta := l.warehouses[rec.WarehouseID]
		out = append(out, domain.WarehouseStock{
			WarehouseID: rec.WarehouseID,
			Priority:    meta.priority,
			Available:   rec.AvailableStock(),
			Enabled:     meta.enabled && rec.Status == domain.RecordEnabled,
		})
	}
	return out, nil
}

func (l *memLedger) record(skuID, warehouseID string) domain.StockRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.records[skuID+"|"+warehouseID]
}

// memWorkOrders 模拟带唯一索引的工单表，Save/Find 交换深拷贝。
type memWorkOrders struct {
	mu    sync.Mutex
	byRef map[string]*domain.WorkOrder
}

func newMemWorkOrders() *memWorkOrders {
	return &memWorkOrders{byRef: make(map[string]*domain.WorkOrder)}
}

func cloneWO(wo *domain.WorkOrder) *domain.WorkOrder {
	cp := *wo
	cp.Lines = append([]domain.ReservationLine(nil), wo.Lines...)
	return &cp
}

func (r *memWorkOrders) Create(_ context.Context, wo *domain.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byRef[wo.OrderRef]; exists {
		return domain.ErrWorkOrderExists
	}
	r.byRef[wo.OrderRef] = cloneWO(wo)
	return nil
}

func (r *memWorkOrders) Save(_ context.Context, wo *domain.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRef[wo.OrderRef] = cloneWO(wo)
	return nil
}

func (r *memWorkOrders) FindByOrderRef(_ context.Context, orderRef string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wo, ok := r.byRef[orderRef]
	if !ok {
		return nil, domain.ErrWorkOrderNotFound
	}
	return cloneWO(wo), nil
}

func (r *memWorkOrders) FindByID(_ context.Context, id string) (*domain.WorkOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wo := range r.byRef {
		if wo.ID == id {
			return cloneWO(wo), nil
		}
	}
	return nil, domain.ErrWorkOrderNotFound
}

type noopMovements struct{}

func (noopMovements) FindBySku(context.Context, string, int) ([]domain.StockMovement, error) {
	return nil, nil
}

// passLocker 直接执行回调。账本内部已经是原子的，测试无需真正互斥。
type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingScheduler) SchedulePaymentTimeout(_ context.Context, orderRef string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderRef)
	return nil
}

func newTestService(ledger *memLedger, workOrders *memWorkOrders, scheduler *recordingScheduler) *ReservationService {
	return NewReservationService(ledger, workOrders, noopMovements{}, passLocker{}, scheduler,
		otel.Tracer("test"), 30*time.Minute)
}

// ---- 用例 ----

func TestLockStockSuccess(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	scheduler := &recordingScheduler{}
	svc := newTestService(ledger, newMemWorkOrders(), scheduler)

	result, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1",
		Lines:    []LockLine{{SkuID: "sku-1", Qty: 3}},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "wh-main", result.Lines[0].WarehouseID)

	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 3, rec.LockedStock)
	assert.Equal(t, 7, rec.AvailableStock())
	assert.Equal(t, []string{"order-1"}, scheduler.calls)
}

func TestLockStockAllOrNothing(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	ledger.seed("sku-2", "wh-main", 1)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	result, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1",
		Lines: []LockLine{
			{SkuID: "sku-1", Qty: 4},
			{SkuID: "sku-2", Qty: 2}, // 超出可售
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)

	// 第一条已锁定的明细必须回滚
	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 0, rec.LockedStock)
	assert.Equal(t, 10, rec.AvailableStock())

	wo, err := svc.GetWorkOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkOrderUnlocked, wo.Status)
}

func TestLockStockIdempotentReplay(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	req := &LockRequest{OrderRef: "order-1", Lines: []LockLine{{SkuID: "sku-1", Qty: 3}}}
	first, err := svc.LockStock(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.LockStock(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.WorkOrderID, second.WorkOrderID)
	assert.True(t, second.Success)

	// 重放不会二次锁定
	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 3, rec.LockedStock)
}

func TestConcurrentLockNoOversell(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	const attempts = 20
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.LockStock(context.Background(), &LockRequest{
				OrderRef: fmt.Sprintf("order-%d", i),
				Lines:    []LockLine{{SkuID: "sku-1", Qty: 1}},
			})
			if err == nil && result.Success {
				results[i] = true
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 10, succeeded)

	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 10, rec.LockedStock)
	assert.Equal(t, 0, rec.AvailableStock())
	assert.Equal(t, 10, rec.ActualStock)
}

func TestUnlockStockIsIdempotent(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	_, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1", Lines: []LockLine{{SkuID: "sku-1", Qty: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.UnlockStock(context.Background(), "order-1"))
	require.NoError(t, svc.UnlockStock(context.Background(), "order-1"))

	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 0, rec.LockedStock)
	assert.Equal(t, 10, rec.ActualStock)
}

func TestDeductStock(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	_, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1", Lines: []LockLine{{SkuID: "sku-1", Qty: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeductStock(context.Background(), "order-1"))
	rec := ledger.record("sku-1", "wh-main")
	assert.Equal(t, 6, rec.ActualStock)
	assert.Equal(t, 0, rec.LockedStock)

	// 重复扣减幂等
	require.NoError(t, svc.DeductStock(context.Background(), "order-1"))
	rec = ledger.record("sku-1", "wh-main")
	assert.Equal(t, 6, rec.ActualStock)
}

func TestDeductRequiresLockedWorkOrder(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 10)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	_, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1", Lines: []LockLine{{SkuID: "sku-1", Qty: 4}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.UnlockStock(context.Background(), "order-1"))

	err = svc.DeductStock(context.Background(), "order-1")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestLockStockPrefersHigherPriorityWarehouse(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.addWarehouse("wh-east", 2, true)
	ledger.seed("sku-1", "wh-main", 5)
	ledger.seed("sku-1", "wh-east", 5)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	result, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1", Lines: []LockLine{{SkuID: "sku-1", Qty: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "wh-main", result.Lines[0].WarehouseID)

	// 主仓余量不足时落到次优仓
	result, err = svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-2", Lines: []LockLine{{SkuID: "sku-1", Qty: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "wh-east", result.Lines[0].WarehouseID)
}

func TestLockStockHonorsWarehouseHint(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.addWarehouse("wh-east", 2, true)
	ledger.seed("sku-1", "wh-main", 5)
	ledger.seed("sku-1", "wh-east", 5)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	result, err := svc.LockStock(context.Background(), &LockRequest{
		OrderRef: "order-1",
		Lines:    []LockLine{{SkuID: "sku-1", Qty: 3, WarehouseHint: "wh-east"}},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "wh-east", result.Lines[0].WarehouseID)
}

func TestHasStockAggregatesEnabledWarehouses(t *testing.T) {
	ledger := newMemLedger()
	ledger.addWarehouse("wh-main", 1, true)
	ledger.seed("sku-1", "wh-main", 2)
	ledger.seed("sku-2", "wh-main", 0)
	svc := newTestService(ledger, newMemWorkOrders(), &recordingScheduler{})

	result, err := svc.HasStock(context.Background(), []string{"sku-1", "sku-2"})
	require.NoError(t, err)
	assert.True(t, result["sku-1"])
	assert.False(t, result["sku-2"])
}
