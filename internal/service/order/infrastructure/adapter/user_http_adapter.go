// internal/service/order/infrastructure/adapter/user_http_adapter.go
package adapter

import (
	"context"
	"net/url"

	"mall/internal/pkg/constants"
	"mall/internal/pkg/httpclient"
	"mall/internal/service/order/domain/port"
)

// UserHTTPAdapter 实现 port.UserService。
type UserHTTPAdapter struct {
	client *httpclient.Client
}

func NewUserHTTPAdapter(client *httpclient.Client) *UserHTTPAdapter {
	return &UserHTTPAdapter{client: client}
}

func (a *UserHTTPAdapter) GetProfile(ctx context.Context, shopperID string) (*port.Profile, error) {
	params := url.Values{}
	params.Set("shopperId", shopperID)

	var reply struct {
		ShopperID string `json:"shopperId"`
		Nickname  string `json:"nickname"`
		Points    int64  `json:"points"`
	}
	if err := a.client.GetJSON(ctx, constants.UserService, constants.UserProfilePath, params, &reply); err != nil {
		return nil, err
	}
	return &port.Profile{
		ShopperID: reply.ShopperID,
		Nickname:  reply.Nickname,
		Points:    reply.Points,
	}, nil
}

func (a *UserHTTPAdapter) GetAddress(ctx context.Context, addressID string) (*port.Address, error) {
	params := url.Values{}
	params.Set("addressId", addressID)

	var reply struct {
		AddressID     string `json:"addressId"`
		ReceiverName  string `json:"receiverName"`
		ReceiverPhone string `json:"receiverPhone"`
		Province      string `json:"province"`
		City          string `json:"city"`
		Detail        string `json:"detail"`
	}
	if err := a.client.GetJSON(ctx, constants.UserService, constants.UserAddressPath, params, &reply); err != nil {
		return nil, err
	}
	return &port.Address{
		AddressID:     reply.AddressID,
		ReceiverName:  reply.ReceiverName,
		ReceiverPhone: reply.ReceiverPhone,
		Province:      reply.Province,
		City:          reply.City,
		Detail:        reply.Detail,
	}, nil
}
