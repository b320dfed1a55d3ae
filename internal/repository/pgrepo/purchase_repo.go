package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const purchaseColumns = "id, created_at, unique_id, buyer_id, item_name, token_id, value, price"

type PurchaseRepository struct {
	conn uow.DBTX
}

func NewPurchaseRepository(conn uow.DBTX) *PurchaseRepository {
	return &PurchaseRepository{conn: conn}
}

func (p *PurchaseRepository) Create(ctx context.Context, args repoargs.CreatePurchase) (*domain.Purchase, error) {
	row := p.conn.QueryRow(ctx, `
		INSERT INTO purchases (unique_id, buyer_id, item_name, token_id, value, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+purchaseColumns,
		args.UniqueID, args.BuyerID, args.ItemName, args.TokenID, args.Value, args.Price,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		return nil, convertErr(err, "creating purchase for buyer %d, item `%s`", args.BuyerID, args.ItemName)
	}
	return purchase, nil
}

// GetByBuyerID возвращает покупки юзера, отсортированные по дате создания по убыванию.
func (p *PurchaseRepository) GetByBuyerID(ctx context.Context, buyerID int64) ([]domain.Purchase, error) {
	rows, err := p.conn.Query(ctx, `
		SELECT `+purchaseColumns+` FROM purchases
		WHERE buyer_id = $1
		ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, convertErr(err, "getting purchases by buyerID %d", buyerID)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		purchase, scanErr := scanPurchase(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning purchase")
		}
		purchases = append(purchases, *purchase)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting purchases by buyerID %d", buyerID)
	}
	return purchases, nil
}

func scanPurchase(row rowScanner) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := row.Scan(
		&purchase.ID,
		&purchase.CreatedAt,
		&purchase.UniqueID,
		&purchase.BuyerID,
		&purchase.ItemName,
		&purchase.TokenID,
		&purchase.Value,
		&purchase.Price,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
