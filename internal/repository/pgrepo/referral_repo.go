package pgrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const earningColumns = "id, created_at, referrer_id, referral_id, payment_id, amount"

type ReferralRepository struct {
	conn uow.DBTX
}

func NewReferralRepository(conn uow.DBTX) *ReferralRepository {
	return &ReferralRepository{conn: conn}
}

// Create вставляет начисление рефереру. Уникальность payment_id гарантирует не больше
// одного начисления на платеж.
func (r *ReferralRepository) Create(
	ctx context.Context,
	args repoargs.CreateReferralEarning,
) (*domain.ReferralEarning, error) {
	row := r.conn.QueryRow(ctx, `
		INSERT INTO referral_earnings (referrer_id, referral_id, payment_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING `+earningColumns,
		args.ReferrerID, args.ReferralID, args.PaymentID, args.Amount,
	)
	earning, err := scanEarning(row)
	if err != nil {
		return nil, convertErr(err, "creating referral earning for payment %d", args.PaymentID)
	}
	return earning, nil
}

func (r *ReferralRepository) SumByReferrer(ctx context.Context, referrerID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn.QueryRow(ctx, `
		SELECT coalesce(sum(amount), 0) FROM referral_earnings WHERE referrer_id = $1`,
		referrerID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, convertErr(err, "summing referral earnings for referrer %d", referrerID)
	}
	return sum, nil
}

func scanEarning(row rowScanner) (*domain.ReferralEarning, error) {
	var earning domain.ReferralEarning
	err := row.Scan(
		&earning.ID,
		&earning.CreatedAt,
		&earning.ReferrerID,
		&earning.ReferralID,
		&earning.PaymentID,
		&earning.Amount,
	)
	if err != nil {
		return nil, err
	}
	return &earning, nil
}
