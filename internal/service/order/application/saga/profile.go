package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mall/internal/service/order/domain"
)

// ProfileHandler 负责买家档案与收货地址的校验步骤。
// 地址在这里快照进订单，后续地址变更不影响本单。
type ProfileHandler struct {
	NextHandler
}

func (h *ProfileHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Profile")
	defer span.End()

	span.SetAttributes(attribute.String("buyer_id", orderCtx.Command.BuyerID))

	profile, err := orderCtx.Users.GetProfile(ctx, orderCtx.Command.BuyerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "buyer profile lookup failed")
		return fmt.Errorf("get buyer profile: %w", err)
	}
	orderCtx.Profile = profile

	address, err := orderCtx.Users.GetAddress(ctx, orderCtx.Command.AddressID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shipping address lookup failed")
		return fmt.Errorf("get shipping address: %w", err)
	}
	orderCtx.Address = address

	orderCtx.Order.Shipping = domain.ShippingSnapshot{
		ReceiverName:  address.ReceiverName,
		ReceiverPhone: address.ReceiverPhone,
		Province:      address.Province,
		City:          address.City,
		Detail:        address.Detail,
	}

	span.AddEvent("buyer profile and address resolved")

	return h.executeNext(orderCtx)
}
