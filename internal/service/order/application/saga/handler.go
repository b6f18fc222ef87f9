package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// OrderContext 在下单 Saga 流程中传递上下文数据。
// 所有外部依赖都是抽象端口，便于测试时替换为假实现。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	Command *domain.CreateOrderCommand
	Order   *domain.Order

	// 链路中间产物，由前序步骤填充、后序步骤消费。
	Profile   *port.Profile
	Address   *port.Address
	Snapshots map[string]port.SkuSnapshot

	// 出站端口
	Reservation port.ReservationService
	Users       port.UserService
	Catalog     port.CatalogService
	Promotions  port.PromotionService
	Points      port.PointsService
	Carts       port.CartService
	Freight     port.FreightCalculator

	// 补偿栈：后注册的先执行（LIFO）。
	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 依次执行已注册的补偿函数。
// 补偿函数自身必须处理失败（记日志/打点），这里不中断后续补偿。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Str("order_ref", c.Order.OrderRef).
		Int("count", len(c.compensations)).
		Msg("executing compensation functions")
	for _, comp := range c.compensations {
		comp(ctx)
	}
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
