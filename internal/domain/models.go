package domain

import (
	"github.com/shopspring/decimal"

	"time"
)

type User struct {
	ID           int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Role         RoleType
	Balance      decimal.Decimal
	ReferrerID   *int64
	RegisteredAt time.Time
}

type Item struct {
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Description string
	Category    string
	Price       decimal.Decimal
	Unbounded   bool
}

type StockToken struct {
	ID        int64
	ItemName  string
	Value     string
	Reusable  bool
	Consumed  bool
	CreatedAt time.Time
}

type Purchase struct {
	ID        int64
	CreatedAt time.Time
	UniqueID  string
	BuyerID   int64
	ItemName  string
	TokenID   *int64
	Value     string
	Price     decimal.Decimal
}

type Payment struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Provider    string
	ExternalID  string
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Status      PaymentStatusType
	Attempts    uint
	NeedsReview bool
	ConfirmedAt *time.Time
	CreditedAt  *time.Time
	FailedAt    *time.Time
}

type ReferralEarning struct {
	ID         int64
	CreatedAt  time.Time
	ReferrerID int64
	ReferralID int64
	PaymentID  int64
	Amount     decimal.Decimal
}

type Broadcast struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    BroadcastStatusType
	Message   string
	Total     int64
	Cursor    int64
}

type RecoveryCheckpoint struct {
	ScanType  string
	Position  string
	UpdatedAt time.Time
}
