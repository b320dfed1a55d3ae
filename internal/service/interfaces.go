package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type UserRepository interface {
	Create(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateRole(ctx context.Context, id int64, role domain.RoleType) (*domain.User, error)
	CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) (*domain.User, error)
	DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) (*domain.User, error)
	ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

type ItemRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Item, error)
	ClaimToken(ctx context.Context, itemName string) (*domain.StockToken, error)
	ReusableToken(ctx context.Context, itemName string) (*domain.StockToken, error)
	AvailableTokenCount(ctx context.Context, itemName string) (int64, error)
	AddToken(ctx context.Context, itemName, value string, reusable bool) (*domain.StockToken, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, args repoargs.CreatePurchase) (*domain.Purchase, error)
	GetByBuyerID(ctx context.Context, buyerID int64) ([]domain.Purchase, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, args repoargs.CreatePayment) (*domain.Payment, error)
	FindByID(ctx context.Context, id int64) (*domain.Payment, error)
	FindByExternalID(ctx context.Context, provider, externalID string) (*domain.Payment, error)
	LockByID(ctx context.Context, id int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.PaymentStatusType) (*domain.Payment, error)
	GetStale(ctx context.Context, status domain.PaymentStatusType, cutoff time.Time, limit uint) ([]domain.Payment, error)
	IncrementAttempts(ctx context.Context, id int64) (uint, error)
	MarkNeedsReview(ctx context.Context, id int64) error
}

type ReferralRepository interface {
	Create(ctx context.Context, args repoargs.CreateReferralEarning) (*domain.ReferralEarning, error)
	SumByReferrer(ctx context.Context, referrerID int64) (decimal.Decimal, error)
}

type BroadcastRepository interface {
	Create(ctx context.Context, id, message string, total int64) (*domain.Broadcast, error)
	AdvanceCursor(ctx context.Context, id string, cursor int64) error
	UpdateStatus(ctx context.Context, id string, status domain.BroadcastStatusType) error
	GetUnfinished(ctx context.Context, limit uint) ([]domain.Broadcast, error)
}

type CheckpointRepository interface {
	Upsert(ctx context.Context, scanType, position string) error
	Find(ctx context.Context, scanType string) (*domain.RecoveryCheckpoint, error)
}

// Sender доставляет сообщение получателю. Реализуется транспортом чата —
// внешним коллаборатором ядра.
type Sender interface {
	SendTo(ctx context.Context, userID int64, message string) error
}

// Readiness сообщает о деградации зависимостей. Денежные операции при деградации
// закрываются (fail-closed), в отличие от admission-слоя.
type Readiness interface {
	Degraded() bool
}
