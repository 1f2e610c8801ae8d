package dto

import "atelier/internal/core/types"

// RegisterPaymentRequest records a full or partial payment on an account.
type RegisterPaymentRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
}
