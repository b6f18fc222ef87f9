// internal/service/order/domain/port/user.go
package port

import "context"

// Profile 是买家档案的只读视图。
type Profile struct {
	ShopperID string
	Nickname  string
	Points    int64
}

// Address 是收货地址的只读视图。
type Address struct {
	AddressID     string
	ReceiverName  string
	ReceiverPhone string
	Province      string
	City          string
	Detail        string
}

// UserService 是用户/地址服务的出站端口。
// 实体不存在时返回 domain.ErrNotFound。
type UserService interface {
	GetProfile(ctx context.Context, shopperID string) (*Profile, error)
	GetAddress(ctx context.Context, addressID string) (*Address, error)
}
