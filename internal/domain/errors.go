package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrItemNotFound       = errors.New("item not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrTransient          = errors.New("transient conflict")
	ErrProviderValidation = errors.New("provider validation failed")
	ErrPermissionDenied   = errors.New("permission denied")
)

// DuplicatePaymentError не является ошибкой для вызывающей стороны: повторное
// уведомление от провайдера подтверждается без повторного зачисления.
type DuplicatePaymentError struct {
	Payment *Payment
}

func NewDuplicatePaymentError(payment *Payment) error {
	return &DuplicatePaymentError{Payment: payment}
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf(
		"payment %s/%s already credited for user with id %d",
		e.Payment.Provider,
		e.Payment.ExternalID,
		e.Payment.UserID,
	)
}
