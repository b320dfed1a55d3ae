package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

type CheckpointRepository struct {
	conn uow.DBTX
}

func NewCheckpointRepository(conn uow.DBTX) *CheckpointRepository {
	return &CheckpointRepository{conn: conn}
}

// Upsert сохраняет позицию последнего обработанного кандидата для типа сканирования.
// Маркер живет в системе записи, а не в кеше: он обязан переживать рестарты.
func (c *CheckpointRepository) Upsert(ctx context.Context, scanType, position string) error {
	_, err := c.conn.Exec(ctx, `
		INSERT INTO recovery_checkpoints (scan_type, position, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (scan_type) DO UPDATE SET position = EXCLUDED.position, updated_at = now()`,
		scanType, position,
	)
	if err != nil {
		return convertErr(err, "upserting checkpoint for scan `%s`", scanType)
	}
	return nil
}

func (c *CheckpointRepository) Find(ctx context.Context, scanType string) (*domain.RecoveryCheckpoint, error) {
	var checkpoint domain.RecoveryCheckpoint
	err := c.conn.QueryRow(ctx, `
		SELECT scan_type, position, updated_at FROM recovery_checkpoints WHERE scan_type = $1`,
		scanType,
	).Scan(&checkpoint.ScanType, &checkpoint.Position, &checkpoint.UpdatedAt)
	if err != nil {
		return nil, convertErr(err, "finding checkpoint for scan `%s`", scanType)
	}
	return &checkpoint, nil
}
