package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/events"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

type PaymentService struct {
	uow             uow.UOW
	paymentRepo     PaymentRepository
	referralPercent decimal.Decimal
	readiness       Readiness
	emitter         events.Emitter
	l               *logrus.Entry
}

func NewPaymentService(
	u uow.UOW,
	referralPercent decimal.Decimal,
	readiness Readiness,
	emitter events.Emitter,
	l *logrus.Logger,
) (*PaymentService, error) {
	paymentRepo, paymentRepoErr := uow.GetRepositoryAs[PaymentRepository](u, uow.RepositoryName(repoargs.PaymentRepoName))
	if paymentRepoErr != nil {
		return nil, paymentRepoErr
	}
	return &PaymentService{
		uow:             u,
		paymentRepo:     paymentRepo,
		referralPercent: referralPercent,
		readiness:       readiness,
		emitter:         emitter,
		l:               l.WithField("component", "payment"),
	}, nil
}

type IngestArgs struct {
	Provider   string
	ExternalID string
	UserID     int64
	Amount     decimal.Decimal
	Currency   string
	// Confirmed — результат провайдер-специфичной валидации (подпись, сумма).
	// Сама валидация — забота внешнего коллаборатора.
	Confirmed bool
}

// Ingest обрабатывает уведомление о платеже от внешнего провайдера.
//
// Алгоритм работы:
//  1. Поиск платежа по ключу идемпотентности (provider, external_id). Уже зачисленный
//     платеж возвращает *domain.DuplicatePaymentError — повторное уведомление
//     подтверждается без повторного зачисления; провайдеры ретраят штатно.
//  2. Новый платеж вставляется в статусе PENDING; проигранная гонка конкурентной
//     вставки (ErrDuplicateKey) перечитывает существующую запись.
//  3. Непрошедшая валидация переводит платеж в FAILED без зачисления.
//  4. Подтвержденный платеж переходит в CONFIRMED и зачисляется через Credit.
//     Падение между CONFIRMED и CREDITED доводится менеджером восстановления
//     через тот же идемпотентный Credit.
func (s *PaymentService) Ingest(ctx context.Context, args IngestArgs) (*domain.Payment, error) {
	if s.readiness != nil && s.readiness.Degraded() {
		return nil, fmt.Errorf("ingest payment: store degraded: %w", domain.ErrTransient)
	}

	payment, findErr := s.paymentRepo.FindByExternalID(ctx, args.Provider, args.ExternalID)
	switch {
	case findErr == nil:
		if payment.Status == domain.PaymentStatusCredited {
			return nil, domain.NewDuplicatePaymentError(payment)
		}
	case errors.Is(findErr, domain.ErrRecordNotFound):
		var createErr error
		payment, createErr = s.paymentRepo.Create(ctx, repoargs.CreatePayment{
			Provider:   args.Provider,
			ExternalID: args.ExternalID,
			UserID:     args.UserID,
			Amount:     args.Amount,
			Currency:   args.Currency,
		})
		if createErr != nil {
			if !errors.Is(createErr, domain.ErrDuplicateKey) {
				return nil, fmt.Errorf("ingest payment: %w", createErr)
			}
			// гонка с конкурентным уведомлением: запись уже вставлена, перечитываем.
			payment, findErr = s.paymentRepo.FindByExternalID(ctx, args.Provider, args.ExternalID)
			if findErr != nil {
				return nil, fmt.Errorf("ingest payment: %w", findErr)
			}
			if payment.Status == domain.PaymentStatusCredited {
				return nil, domain.NewDuplicatePaymentError(payment)
			}
		}
	default:
		return nil, fmt.Errorf("ingest payment: %w", findErr)
	}

	if payment.Status == domain.PaymentStatusPending {
		if !args.Confirmed {
			return nil, s.markFailed(ctx, payment)
		}
		confirmed, confirmErr := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed)
		switch {
		case confirmErr == nil:
			payment = confirmed
		case errors.Is(confirmErr, domain.ErrRecordNotFound):
			// проигранная гонка: конкурентное уведомление уже увело платеж из
			// PENDING. Снимок устарел — перечитываем, зачисленный платеж
			// подтверждается как дубль, статус назад не откатывается.
			current, reReadErr := s.paymentRepo.FindByID(ctx, payment.ID)
			if reReadErr != nil {
				return nil, fmt.Errorf("ingest payment: %w", reReadErr)
			}
			if current.Status == domain.PaymentStatusCredited {
				return nil, domain.NewDuplicatePaymentError(current)
			}
			payment = current
		default:
			return nil, fmt.Errorf("ingest payment: %w", confirmErr)
		}
	}

	if payment.Status == domain.PaymentStatusFailed {
		return nil, fmt.Errorf("payment %s/%s rejected: %w", payment.Provider, payment.ExternalID, domain.ErrProviderValidation)
	}

	return s.Credit(ctx, payment.ID)
}

// Confirm переводит платеж из PENDING в CONFIRMED. Используется восстановлением,
// когда провайдер подтвердил зависший платеж постфактум. Переход условный:
// если живой трафик успел раньше, возвращается актуальное состояние платежа,
// а повторное зачисление отсекает статус-гард в Credit.
func (s *PaymentService) Confirm(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	payment, err := s.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("confirming payment %d: %w", paymentID, err)
	}
	current, findErr := s.paymentRepo.FindByID(ctx, paymentID)
	if findErr != nil {
		return nil, fmt.Errorf("confirming payment %d: %w", paymentID, findErr)
	}
	return current, nil
}

// Credit зачисляет подтвержденный платеж ровно один раз.
//
// Вся работа — одна транзакция: зачисление баланса плательщика, комиссия реферера
// (если есть), запись начисления и переход в CREDITED. Платеж читается под
// блокировкой строки, статус-гард делает повторный вход идемпотентным —
// и ретраи провайдера, и восстановление после падения безопасны.
func (s *PaymentService) Credit(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	var credited *domain.Payment
	var alreadyCredited bool

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		paymentRepo, paymentRepoErr := uow.GetAs[PaymentRepository](tx, uow.RepositoryName(repoargs.PaymentRepoName))
		if paymentRepoErr != nil {
			return paymentRepoErr //nolint:wrapcheck
		}

		payment, lockErr := paymentRepo.LockByID(c, paymentID)
		if lockErr != nil {
			return lockErr //nolint:wrapcheck
		}

		switch payment.Status {
		case domain.PaymentStatusCredited:
			// идемпотентный повтор: баланс уже зачислен.
			credited = payment
			alreadyCredited = true
			return nil
		case domain.PaymentStatusFailed:
			return fmt.Errorf("payment %d is failed: %w", paymentID, domain.ErrProviderValidation)
		case domain.PaymentStatusPending:
			return fmt.Errorf("payment %d is not confirmed yet: %w", paymentID, domain.ErrProviderValidation)
		case domain.PaymentStatusConfirmed:
		}

		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}

		payer, creditErr := userRepo.CreditBalance(c, payment.UserID, payment.Amount)
		if creditErr != nil {
			return creditErr //nolint:wrapcheck
		}

		if payer.ReferrerID != nil && s.referralPercent.IsPositive() {
			commission := referralCommission(payment.Amount, s.referralPercent)
			if commission.IsPositive() {
				if _, refErr := userRepo.CreditBalance(c, *payer.ReferrerID, commission); refErr != nil {
					return refErr //nolint:wrapcheck
				}
				referralRepo, referralRepoErr := uow.GetAs[ReferralRepository](tx, uow.RepositoryName(repoargs.ReferralRepoName))
				if referralRepoErr != nil {
					return referralRepoErr //nolint:wrapcheck
				}
				if _, earnErr := referralRepo.Create(c, repoargs.CreateReferralEarning{
					ReferrerID: *payer.ReferrerID,
					ReferralID: payment.UserID,
					PaymentID:  payment.ID,
					Amount:     commission,
				}); earnErr != nil {
					return earnErr //nolint:wrapcheck
				}
			}
		}

		var statusErr error
		credited, statusErr = paymentRepo.UpdateStatus(c, payment.ID, domain.PaymentStatusConfirmed, domain.PaymentStatusCredited)
		return statusErr //nolint:wrapcheck
	})

	if txErr != nil {
		return nil, fmt.Errorf("crediting payment %d: %w", paymentID, txErr)
	}

	if !alreadyCredited {
		s.emitter.Emit(events.Event{Type: events.TypePaymentCredited, Fields: map[string]any{
			"paymentID":  credited.ID,
			"provider":   credited.Provider,
			"externalID": credited.ExternalID,
			"userID":     credited.UserID,
			"amount":     credited.Amount.String(),
		}})
	}
	return credited, nil
}

// StalePayments возвращает платежи, зависшие в статусе status дольше olderThan.
func (s *PaymentService) StalePayments(
	ctx context.Context,
	status domain.PaymentStatusType,
	olderThan time.Duration,
	limit uint,
) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.GetStale(ctx, status, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return payments, nil
}

// MarkFailed закрывает зависший PENDING платеж, истекший или отклоненный на
// стороне провайдера. Переход условный: платеж, который живой трафик успел
// зачислить, штампом FAILED не перечеркивается.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID int64) error {
	payment, err := s.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusPending, domain.PaymentStatusFailed)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			s.l.WithField("paymentID", paymentID).Info("payment left PENDING concurrently, not failing")
			return nil
		}
		return fmt.Errorf("failing payment %d: %w", paymentID, err)
	}
	s.emitFailed(payment)
	return nil
}

func (s *PaymentService) RegisterRecoveryAttempt(ctx context.Context, paymentID int64) (uint, error) {
	attempts, err := s.paymentRepo.IncrementAttempts(ctx, paymentID)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return attempts, nil
}

// FlagForReview выводит платеж из автоматического восстановления: после исчерпания
// ретраев кандидат не выбрасывается, а помечается для ручного разбора оператором.
func (s *PaymentService) FlagForReview(ctx context.Context, paymentID int64) error {
	return s.paymentRepo.MarkNeedsReview(ctx, paymentID) //nolint:wrapcheck
}

func (s *PaymentService) markFailed(ctx context.Context, payment *domain.Payment) error {
	failed, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed)
	switch {
	case err == nil:
		s.emitFailed(failed)
	case errors.Is(err, domain.ErrRecordNotFound):
		// конкурент уже увел платеж из PENDING, его статус не трогаем.
	default:
		return fmt.Errorf("ingest payment: %w", err)
	}
	return fmt.Errorf("payment %s/%s rejected: %w", payment.Provider, payment.ExternalID, domain.ErrProviderValidation)
}

func (s *PaymentService) emitFailed(payment *domain.Payment) {
	s.emitter.Emit(events.Event{Type: events.TypePaymentFailed, Fields: map[string]any{
		"paymentID":  payment.ID,
		"provider":   payment.Provider,
		"externalID": payment.ExternalID,
		"userID":     payment.UserID,
	}})
}

// referralCommission считает комиссию реферера: amount × percent / 100,
// округление half-up до минорной единицы валюты, ровно один раз в момент
// зачисления. Позже сумма никогда не пересчитывается — читается из записи.
func referralCommission(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}
