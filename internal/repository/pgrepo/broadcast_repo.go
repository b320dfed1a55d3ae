package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const broadcastColumns = "id, created_at, updated_at, status, message, total, sent_cursor"

type BroadcastRepository struct {
	conn uow.DBTX
}

func NewBroadcastRepository(conn uow.DBTX) *BroadcastRepository {
	return &BroadcastRepository{conn: conn}
}

func (b *BroadcastRepository) Create(ctx context.Context, id, message string, total int64) (*domain.Broadcast, error) {
	row := b.conn.QueryRow(ctx, `
		INSERT INTO broadcasts (id, status, message, total, sent_cursor)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING `+broadcastColumns,
		id, domain.BroadcastStatusRunning, message, total,
	)
	broadcast, err := scanBroadcast(row)
	if err != nil {
		return nil, convertErr(err, "creating broadcast %s", id)
	}
	return broadcast, nil
}

// AdvanceCursor фиксирует прогресс рассылки до отправки следующей пачки. Курсор
// только растет: рестарт продолжит с последней зафиксированной позиции.
func (b *BroadcastRepository) AdvanceCursor(ctx context.Context, id string, cursor int64) error {
	tag, err := b.conn.Exec(ctx, `
		UPDATE broadcasts SET sent_cursor = $2, updated_at = now()
		WHERE id = $1 AND sent_cursor < $2`,
		id, cursor,
	)
	if err != nil {
		return convertErr(err, "advancing cursor for broadcast %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/advancing cursor for broadcast %s] %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

func (b *BroadcastRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.BroadcastStatusType,
) error {
	tag, err := b.conn.Exec(ctx, `
		UPDATE broadcasts SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return convertErr(err, "updating broadcast %s to status %s", id, status)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/updating broadcast %s] %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

// GetUnfinished возвращает рассылки, не доведенные до конца (прерванные рестартом).
func (b *BroadcastRepository) GetUnfinished(ctx context.Context, limit uint) ([]domain.Broadcast, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := b.conn.Query(ctx, `
		SELECT `+broadcastColumns+` FROM broadcasts
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC
		LIMIT $3`,
		domain.BroadcastStatusRunning, domain.BroadcastStatusInterrupted, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting unfinished broadcasts")
	}
	defer rows.Close()

	var broadcasts []domain.Broadcast
	for rows.Next() {
		broadcast, scanErr := scanBroadcast(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning broadcast")
		}
		broadcasts = append(broadcasts, *broadcast)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting unfinished broadcasts")
	}
	return broadcasts, nil
}

func scanBroadcast(row rowScanner) (*domain.Broadcast, error) {
	var broadcast domain.Broadcast
	err := row.Scan(
		&broadcast.ID,
		&broadcast.CreatedAt,
		&broadcast.UpdatedAt,
		&broadcast.Status,
		&broadcast.Message,
		&broadcast.Total,
		&broadcast.Cursor,
	)
	if err != nil {
		return nil, err
	}
	return &broadcast, nil
}
