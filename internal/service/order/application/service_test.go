package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// ---- 测试替身 ----

// memOrderRepo 是订单仓储的内存实现，Transition/MarkSettled 的守卫语义
// 与 GORM 实现一致。
type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	histories []domain.OperateHistory
	createErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order, history *domain.OperateHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[order.OrderRef] = cloneOrder(order)
	if history != nil {
		r.histories = append(r.histories, *history)
	}
	return nil
}

func (r *memOrderRepo) FindByRef(_ context.Context, orderRef string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderRef]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *memOrderRepo) Transition(_ context.Context, orderRef string, from, to domain.Status, set map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderRef]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	for k, v := range set {
		switch k {
		case "pay_type":
			order.PayType = v.(string)
		case "transaction_ref":
			order.TransactionRef = v.(string)
		case "close_reason":
			order.CloseReason = v.(string)
		case "paid_at":
			at := v.(time.Time)
			order.PaidAt = &at
		case "shipped_at":
			at := v.(time.Time)
			order.ShippedAt = &at
		case "received_at":
			at := v.(time.Time)
			order.ReceivedAt = &at
		}
	}
	return true, nil
}

func (r *memOrderRepo) AppendHistory(_ context.Context, history *domain.OperateHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, *history)
	return nil
}

func (r *memOrderRepo) FindUnpaidBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(func(o *domain.Order) bool {
		return o.Status == domain.StatusUnpaid && o.CreatedAt.Before(cutoff)
	}, limit), nil
}

func (r *memOrderRepo) FindShippedBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(func(o *domain.Order) bool {
		return o.Status == domain.StatusShipped && o.ShippedAt != nil && o.ShippedAt.Before(cutoff)
	}, limit), nil
}

func (r *memOrderRepo) FindUnsettledBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	return r.findRefs(func(o *domain.Order) bool {
		return o.Status == domain.StatusCompleted && o.SettledAt == nil &&
			o.ReceivedAt != nil && o.ReceivedAt.Before(cutoff)
	}, limit), nil
}

func (r *memOrderRepo) findRefs(match func(*domain.Order) bool, limit int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []string
	for ref, order := range r.orders {
		if match(order) && len(refs) < limit {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (r *memOrderRepo) MarkSettled(_ context.Context, orderRef string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderRef]
	if !ok || order.Status != domain.StatusCompleted || order.SettledAt != nil {
		return false, nil
	}
	order.SettledAt = &at
	return true, nil
}

// fakeReservation 记录库存引擎的调用并返回可配置结果。
type fakeReservation struct {
	mu          sync.Mutex
	lockCalls   int
	unlockCalls int
	deductCalls int
	rejectLock  bool
	deductErr   error
}

func (f *fakeReservation) LockStock(_ context.Context, orderRef string, lines []port.LockLine) (*port.LockStockResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls++
	if f.rejectLock {
		return &port.LockStockResult{Success: false, FailureReason: "insufficient stock"}, nil
	}
	result := &port.LockStockResult{Success: true, WorkOrderID: "wo-" + orderRef}
	for _, line := range lines {
		result.Lines = append(result.Lines, port.LockLineResult{
			SkuID: line.SkuID, Qty: line.Qty, WarehouseID: "wh-main", Success: true,
		})
	}
	return result, nil
}

func (f *fakeReservation) UnlockStock(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlockCalls++
	return nil
}

func (f *fakeReservation) DeductStock(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deductCalls++
	return f.deductErr
}

func (f *fakeReservation) HasStock(_ context.Context, skuIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(skuIDs))
	for _, id := range skuIDs {
		out[id] = true
	}
	return out, nil
}

type fakeUsers struct {
	points int64
}

func (f *fakeUsers) GetProfile(_ context.Context, shopperID string) (*port.Profile, error) {
	return &port.Profile{ShopperID: shopperID, Nickname: "测试买家", Points: f.points}, nil
}

func (f *fakeUsers) GetAddress(_ context.Context, addressID string) (*port.Address, error) {
	return &port.Address{
		AddressID: addressID, ReceiverName: "张三", ReceiverPhone: "13800000000",
		Province: "广东省", City: "深圳市", Detail: "科技园",
	}, nil
}

type fakeCatalog struct {
	skus map[string]port.SkuSnapshot
}

func (f *fakeCatalog) GetSkusByIds(_ context.Context, skuIDs []string) ([]port.SkuSnapshot, error) {
	var out []port.SkuSnapshot
	for _, id := range skuIDs {
		if s, ok := f.skus[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePromotions struct {
	mu           sync.Mutex
	quoteAmount  int64
	consumeOK    bool
	consumeCalls int
	releaseCalls int
}

func (f *fakePromotions) Quote(context.Context, string, string, int64) (int64, error) {
	return f.quoteAmount, nil
}

func (f *fakePromotions) Consume(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumeCalls++
	return f.consumeOK, nil
}

func (f *fakePromotions) Release(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	return true, nil
}

type fakePoints struct {
	mu          sync.Mutex
	deductOK    bool
	deductCalls int
	refundCalls int
	creditCalls int
	credited    int64
}

func (f *fakePoints) Deduct(context.Context, string, int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deductCalls++
	return f.deductOK, nil
}

func (f *fakePoints) Refund(context.Context, string, int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	return true, nil
}

func (f *fakePoints) Credit(_ context.Context, _ string, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++
	f.credited += amount
	return true, nil
}

type fakeCarts struct {
	mu         sync.Mutex
	clearCalls int
}

func (f *fakeCarts) Clear(context.Context, []string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return true, nil
}

type fixedFreight struct{ fee int64 }

func (f fixedFreight) Calculate(context.Context, port.FreightInput) (int64, error) {
	return f.fee, nil
}

type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type contendedLocker struct{}

func (contendedLocker) WithLock(context.Context, string, func(ctx context.Context) error) error {
	return domain.ErrDuplicateSubmission
}

type fixture struct {
	repo        *memOrderRepo
	reservation *fakeReservation
	promotions  *fakePromotions
	points      *fakePoints
	carts       *fakeCarts
	svc         *OrderApplicationService
}

func newFixture(locker ShopperLocker) *fixture {
	f := &fixture{
		repo:        newMemOrderRepo(),
		reservation: &fakeReservation{},
		promotions:  &fakePromotions{quoteAmount: 300, consumeOK: true},
		points:      &fakePoints{deductOK: true},
		carts:       &fakeCarts{},
	}
	f.svc = NewOrderApplicationService(
		f.repo, locker, otel.Tracer("test"),
		f.reservation,
		&fakeUsers{points: 10_000},
		&fakeCatalog{skus: map[string]port.SkuSnapshot{
			"sku-1": {ID: "sku-1", Name: "机械键盘", Price: 1000, Weight: 1.2},
			"sku-2": {ID: "sku-2", Name: "鼠标垫", Price: 500, Weight: 0.3},
		}},
		f.promotions, f.points, f.carts,
		fixedFreight{fee: 800},
		1, // 1 积分抵 1 分
	)
	return f
}

func defaultCommand() *domain.CreateOrderCommand {
	return &domain.CreateOrderCommand{
		BuyerID:   "buyer-1",
		AddressID: "addr-1",
		Lines: []domain.CommandLine{
			{SkuID: "sku-1", Qty: 2, SubmittedPrice: 1000},
			{SkuID: "sku-2", Qty: 1, SubmittedPrice: 500},
		},
		DiscountID:  "coupon-1",
		UsePoints:   100,
		CartLineIDs: []string{"cart-1", "cart-2"},
	}
}

// ---- 用例 ----

func TestCreateOrderSuccess(t *testing.T) {
	f := newFixture(passLocker{})

	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	// 2500(小计) + 800(运费) - 300(券) - 100(积分) = 2900
	assert.Equal(t, int64(2900), result.Payable)
	assert.Equal(t, string(domain.StatusUnpaid), result.Status)

	order, err := f.repo.FindByRef(context.Background(), result.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), order.GoodsTotal)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "wh-main", order.Items[0].Warehouse)
	assert.Equal(t, "张三", order.Shipping.ReceiverName)

	assert.Equal(t, 1, f.reservation.lockCalls)
	assert.Equal(t, 0, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.consumeCalls)
	assert.Equal(t, 1, f.points.deductCalls)
	assert.Equal(t, 1, f.carts.clearCalls)
}

func TestCreateOrderPriceChanged(t *testing.T) {
	f := newFixture(passLocker{})

	cmd := defaultCommand()
	cmd.Lines[0].SubmittedPrice = 900 // 页面价已过期

	_, err := f.svc.CreateOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrPriceChanged)

	// 价格核对在预占之前，库存引擎不应被触碰
	assert.Equal(t, 0, f.reservation.lockCalls)
	assert.Empty(t, f.repo.orders)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(passLocker{})
	f.reservation.rejectLock = true

	_, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// 引擎整单拒绝时无需解锁补偿，后续步骤未执行
	assert.Equal(t, 0, f.reservation.unlockCalls)
	assert.Equal(t, 0, f.promotions.consumeCalls)
	assert.Equal(t, 0, f.points.deductCalls)
}

func TestCreateOrderCompensatesOnDiscountFailure(t *testing.T) {
	f := newFixture(passLocker{})
	f.promotions.consumeOK = false

	_, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	assert.ErrorIs(t, err, domain.ErrDiscountFailed)

	// 已锁定的库存被补偿释放；积分步骤未执行，不应退积分
	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 0, f.points.refundCalls)
	assert.Empty(t, f.repo.orders)
}

func TestCreateOrderCompensatesOnPointsFailure(t *testing.T) {
	f := newFixture(passLocker{})
	f.points.deductOK = false

	_, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	assert.ErrorIs(t, err, domain.ErrPointsFailed)

	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.releaseCalls)
	assert.Equal(t, 0, f.points.refundCalls)
}

func TestCreateOrderCompensatesOnPersistFailure(t *testing.T) {
	f := newFixture(passLocker{})
	f.repo.createErr = errors.New("db gone")

	_, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.Error(t, err)

	// 落库失败触发全部补偿
	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.releaseCalls)
	assert.Equal(t, 1, f.points.refundCalls)
	assert.Equal(t, 0, f.carts.clearCalls)
}

func TestCreateOrderDuplicateSubmission(t *testing.T) {
	f := newFixture(contendedLocker{})

	_, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Equal(t, 0, f.reservation.lockCalls)
}

func TestPaymentCallbackIdempotent(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))

	order, err := f.repo.FindByRef(context.Background(), result.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingShipment, order.Status)
	assert.Equal(t, "tx-1", order.TransactionRef)
	assert.Equal(t, 1, f.reservation.deductCalls)

	// 重复回调: 状态不变，实扣重放（引擎侧幂等）
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))
	order, _ = f.repo.FindByRef(context.Background(), result.OrderRef)
	assert.Equal(t, domain.StatusAwaitingShipment, order.Status)
	assert.Equal(t, 2, f.reservation.deductCalls)
}

func TestPaymentCallbackForClosedOrder(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelOrder(context.Background(), result.OrderRef, "buyer", "changed mind"))

	// 支付与关单竞争: 回调被接受但不改状态，留痕等待人工退款
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-late"))

	order, _ := f.repo.FindByRef(context.Background(), result.OrderRef)
	assert.Equal(t, domain.StatusClosed, order.Status)
	assert.Equal(t, 0, f.reservation.deductCalls)
}

func TestCancelOrderReleasesResourcesOnce(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(context.Background(), result.OrderRef, "buyer", "changed mind"))
	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.releaseCalls)
	assert.Equal(t, 1, f.points.refundCalls)

	// 重复取消幂等，不重复释放
	require.NoError(t, f.svc.CancelOrder(context.Background(), result.OrderRef, "buyer", "again"))
	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.releaseCalls)
}

func TestCancelOrderConcurrentReleasesOnce(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	// 用户取消与超时关单同时到达，守卫流转保证资源只释放一次
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.CancelOrder(context.Background(), result.OrderRef, "system", "payment timeout")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.reservation.unlockCalls)
	assert.Equal(t, 1, f.promotions.releaseCalls)
	assert.Equal(t, 1, f.points.refundCalls)
}

func TestCancelPaidOrderRejected(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))

	err = f.svc.CancelOrder(context.Background(), result.OrderRef, "buyer", "too late")
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.Equal(t, 0, f.reservation.unlockCalls)
}

func TestProcessTimeoutCheckSkipsPaidOrder(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)
	require.NoError(t, f.svc.PaymentCallback(context.Background(), result.OrderRef, "wechat", "tx-1"))

	err = f.svc.ProcessTimeoutCheck(context.Background(), &domain.PaymentTimeoutCheckEvent{
		OrderRef: result.OrderRef,
		Deadline: time.Now(),
	})
	require.NoError(t, err)

	order, _ := f.repo.FindByRef(context.Background(), result.OrderRef)
	assert.Equal(t, domain.StatusAwaitingShipment, order.Status)
}

func TestProcessTimeoutCheckCancelsUnpaidOrder(t *testing.T) {
	f := newFixture(passLocker{})
	result, err := f.svc.CreateOrder(context.Background(), defaultCommand())
	require.NoError(t, err)

	err = f.svc.ProcessTimeoutCheck(context.Background(), &domain.PaymentTimeoutCheckEvent{
		OrderRef: result.OrderRef,
		Deadline: time.Now(),
	})
	require.NoError(t, err)

	order, _ := f.repo.FindByRef(context.Background(), result.OrderRef)
	assert.Equal(t, domain.StatusClosed, order.Status)
	assert.Equal(t, 1, f.reservation.unlockCalls)
}
