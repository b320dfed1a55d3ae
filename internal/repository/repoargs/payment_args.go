package repoargs

import "github.com/shopspring/decimal"

type CreatePayment struct {
	Provider   string
	ExternalID string
	UserID     int64
	Amount     decimal.Decimal
	Currency   string
}

type CreateReferralEarning struct {
	ReferrerID int64
	ReferralID int64
	PaymentID  int64
	Amount     decimal.Decimal
}
