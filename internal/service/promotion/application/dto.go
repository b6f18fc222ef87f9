// internal/service/promotion/application/dto.go
package application

import "time"

// QuoteResult 是报价应答，金额单位分。
type QuoteResult struct {
	Amount int64 `json:"amount"`
}

// OutcomeResult 是核销/退回应答。
type OutcomeResult struct {
	Success bool `json:"success"`
}

// GrantResult 是发券应答。
type GrantResult struct {
	Code    string    `json:"code"`
	ValidTo time.Time `json:"validTo"`
}
