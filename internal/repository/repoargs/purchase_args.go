package repoargs

import "github.com/shopspring/decimal"

type CreatePurchase struct {
	UniqueID string
	BuyerID  int64
	ItemName string
	TokenID  *int64
	Value    string
	Price    decimal.Decimal
}
