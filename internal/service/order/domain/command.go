// internal/service/order/domain/command.go
package domain

// CommandLine 是下单命令里的一条商品行。
// SubmittedPrice 是页面展示给买家的价格，下单时与目录权威价核对。
type CommandLine struct {
	SkuID          string `json:"skuId"`
	Qty            int    `json:"qty"`
	SubmittedPrice int64  `json:"submittedPrice"`
	WarehouseHint  string `json:"warehouseHint,omitempty"`
}

// CreateOrderCommand 是创建订单的入参载体。
type CreateOrderCommand struct {
	BuyerID     string        `json:"buyerId"`
	AddressID   string        `json:"addressId"`
	Lines       []CommandLine `json:"lines"`
	DiscountID  string        `json:"discountId,omitempty"`
	UsePoints   int64         `json:"usePoints,omitempty"`
	CartLineIDs []string      `json:"cartLineIds,omitempty"`
}
