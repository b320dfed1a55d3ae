package pgrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const paymentColumns = "id, created_at, updated_at, provider, external_id, user_id, amount, currency, " +
	"status, attempts, needs_review, confirmed_at, credited_at, failed_at"

type PaymentRepository struct {
	conn uow.DBTX
}

func NewPaymentRepository(conn uow.DBTX) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

// Create вставляет платеж в статусе PENDING. Пара (provider, external_id) уникальна —
// это ключ идемпотентности; повторная вставка вернет domain.ErrDuplicateKey.
func (p *PaymentRepository) Create(ctx context.Context, args repoargs.CreatePayment) (*domain.Payment, error) {
	row := p.conn.QueryRow(ctx, `
		INSERT INTO payments (provider, external_id, user_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		args.Provider, args.ExternalID, args.UserID, args.Amount, args.Currency, domain.PaymentStatusPending,
	)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, convertErr(err, "creating payment %s/%s", args.Provider, args.ExternalID)
	}
	return payment, nil
}

func (p *PaymentRepository) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := p.conn.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, convertErr(err, "finding payment with id %d", id)
	}
	return payment, nil
}

func (p *PaymentRepository) FindByExternalID(ctx context.Context, provider, externalID string) (*domain.Payment, error) {
	row := p.conn.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE provider = $1 AND external_id = $2`,
		provider, externalID,
	)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, convertErr(err, "finding payment %s/%s", provider, externalID)
	}
	return payment, nil
}

// LockByID читает платеж под блокировкой строки. Зачисление выполняется только под
// этой блокировкой: повторный вход (ретрай провайдера, восстановление) увидит
// актуальный статус и не зачислит баланс дважды.
func (p *PaymentRepository) LockByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := p.conn.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, convertErr(err, "locking payment with id %d", id)
	}
	return payment, nil
}

// UpdateStatus переводит платеж из статуса from в статус to. Переход строго
// условный: строка обновляется только если платеж все еще в from. Ноль строк
// (конкурент успел сменить статус) возвращает domain.ErrRecordNotFound —
// вызывающий перечитывает запись и трактует повтор как дубль, а не
// перезаписывает CREDITED назад.
func (p *PaymentRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	from, to domain.PaymentStatusType,
) (*domain.Payment, error) {
	var stampColumn string
	switch to {
	case domain.PaymentStatusConfirmed:
		stampColumn = "confirmed_at"
	case domain.PaymentStatusCredited:
		stampColumn = "credited_at"
	case domain.PaymentStatusFailed:
		stampColumn = "failed_at"
	default:
		stampColumn = "updated_at"
	}

	row := p.conn.QueryRow(ctx, `
		UPDATE payments SET status = $3, updated_at = now(), `+stampColumn+` = now()
		WHERE id = $1 AND status = $2
		RETURNING `+paymentColumns,
		id, from, to,
	)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, convertErr(err, "updating payment %d from status %s to %s", id, from, to)
	}
	return payment, nil
}

// GetStale возвращает платежи, зависшие в статусе status дольше cutoff. Кандидаты
// для восстановления: финальную проверку статуса делает зачисление под блокировкой,
// поэтому пересечение с живым трафиком безопасно.
func (p *PaymentRepository) GetStale(
	ctx context.Context,
	status domain.PaymentStatusType,
	cutoff time.Time,
	limit uint,
) ([]domain.Payment, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := p.conn.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = $1 AND updated_at < $2 AND NOT needs_review
		ORDER BY id ASC
		LIMIT $3`,
		status, cutoff, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting stale payments in status %s", status)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning payment")
		}
		payments = append(payments, *payment)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting stale payments in status %s", status)
	}
	return payments, nil
}

func (p *PaymentRepository) IncrementAttempts(ctx context.Context, id int64) (uint, error) {
	var attempts uint
	err := p.conn.QueryRow(ctx, `
		UPDATE payments SET attempts = attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, convertErr(err, "incrementing attempts for payment %d", id)
	}
	return attempts, nil
}

// MarkNeedsReview выводит платеж из автоматического восстановления для ручного разбора.
func (p *PaymentRepository) MarkNeedsReview(ctx context.Context, id int64) error {
	tag, err := p.conn.Exec(ctx, `
		UPDATE payments SET needs_review = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return convertErr(err, "marking payment %d for review", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/marking payment %d for review] %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&payment.Provider,
		&payment.ExternalID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Attempts,
		&payment.NeedsReview,
		&payment.ConfirmedAt,
		&payment.CreditedAt,
		&payment.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
