package recovery

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
)

type PaymentServicer interface {
	StalePayments(ctx context.Context, status domain.PaymentStatusType, olderThan time.Duration, limit uint) ([]domain.Payment, error)
	Credit(ctx context.Context, paymentID int64) (*domain.Payment, error)
	Confirm(ctx context.Context, paymentID int64) (*domain.Payment, error)
	MarkFailed(ctx context.Context, paymentID int64) error
	RegisterRecoveryAttempt(ctx context.Context, paymentID int64) (uint, error)
	FlagForReview(ctx context.Context, paymentID int64) error
}

type BroadcastServicer interface {
	Unfinished(ctx context.Context, limit uint) ([]domain.Broadcast, error)
	Resume(ctx context.Context, broadcast domain.Broadcast) error
}

type Checkpointer interface {
	Upsert(ctx context.Context, scanType, position string) error
	Find(ctx context.Context, scanType string) (*domain.RecoveryCheckpoint, error)
}

// ProviderStatusType — статус платежа на стороне провайдера при контрольном опросе.
type ProviderStatusType string

const (
	ProviderStatusPaid    ProviderStatusType = "paid"
	ProviderStatusExpired ProviderStatusType = "expired"
	ProviderStatusFailed  ProviderStatusType = "failed"
	ProviderStatusActive  ProviderStatusType = "active"
)

// ProviderChecker опрашивает провайдера о судьбе зависшего платежа.
// Реализуется провайдер-специфичным клиентом — внешним коллаборатором.
type ProviderChecker interface {
	CheckPayment(ctx context.Context, provider, externalID string) (ProviderStatusType, error)
}

// Notifier уведомляет плательщика о зачислении, восстановленном постфактум.
type Notifier interface {
	NotifyCredited(ctx context.Context, userID int64, payment domain.Payment) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}
