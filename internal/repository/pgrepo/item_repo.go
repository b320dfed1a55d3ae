package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const (
	itemColumns  = "name, created_at, updated_at, description, category, price, unbounded"
	tokenColumns = "id, item_name, value, reusable, consumed, created_at"
)

type ItemRepository struct {
	conn uow.DBTX
}

func NewItemRepository(conn uow.DBTX) *ItemRepository {
	return &ItemRepository{conn: conn}
}

func (i *ItemRepository) FindByName(ctx context.Context, name string) (*domain.Item, error) {
	row := i.conn.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE name = $1`, name)
	item, err := scanItem(row)
	if err != nil {
		return nil, convertErr(err, "finding item by name `%s`", name)
	}
	return item, nil
}

// ClaimToken атомарно забирает один свободный одноразовый токен товара.
// FOR UPDATE SKIP LOCKED не дает двум конкурентным покупкам забрать один и тот же
// последний токен: строку получает ровно одна транзакция, остальные видят пустой
// результат (domain.ErrRecordNotFound).
func (i *ItemRepository) ClaimToken(ctx context.Context, itemName string) (*domain.StockToken, error) {
	row := i.conn.QueryRow(ctx, `
		UPDATE stock_tokens SET consumed = TRUE
		WHERE id = (
			SELECT id FROM stock_tokens
			WHERE item_name = $1 AND NOT consumed AND NOT reusable
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+tokenColumns,
		itemName,
	)
	token, err := scanToken(row)
	if err != nil {
		return nil, convertErr(err, "claiming stock token for item `%s`", itemName)
	}
	return token, nil
}

// ReusableToken возвращает многоразовый токен безлимитного товара. Такой токен не
// потребляется покупкой, поэтому блокировка строки не нужна.
func (i *ItemRepository) ReusableToken(ctx context.Context, itemName string) (*domain.StockToken, error) {
	row := i.conn.QueryRow(ctx, `
		SELECT `+tokenColumns+` FROM stock_tokens
		WHERE item_name = $1 AND reusable
		ORDER BY id
		LIMIT 1`,
		itemName,
	)
	token, err := scanToken(row)
	if err != nil {
		return nil, convertErr(err, "getting reusable token for item `%s`", itemName)
	}
	return token, nil
}

func (i *ItemRepository) AvailableTokenCount(ctx context.Context, itemName string) (int64, error) {
	var count int64
	err := i.conn.QueryRow(ctx, `
		SELECT count(*) FROM stock_tokens
		WHERE item_name = $1 AND NOT consumed AND NOT reusable`,
		itemName,
	).Scan(&count)
	if err != nil {
		return 0, convertErr(err, "counting stock tokens for item `%s`", itemName)
	}
	return count, nil
}

// AddToken пополняет запас товара. Вызывается административным контуром вне
// транзакции покупки; уникальность (item_name, value) отсекает повторное добавление.
func (i *ItemRepository) AddToken(ctx context.Context, itemName, value string, reusable bool) (*domain.StockToken, error) {
	row := i.conn.QueryRow(ctx, `
		INSERT INTO stock_tokens (item_name, value, reusable)
		VALUES ($1, $2, $3)
		RETURNING `+tokenColumns,
		itemName, value, reusable,
	)
	token, err := scanToken(row)
	if err != nil {
		return nil, convertErr(err, "adding stock token for item `%s`", itemName)
	}
	return token, nil
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.Name,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Description,
		&item.Category,
		&item.Price,
		&item.Unbounded,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanToken(row rowScanner) (*domain.StockToken, error) {
	var token domain.StockToken
	err := row.Scan(
		&token.ID,
		&token.ItemName,
		&token.Value,
		&token.Reusable,
		&token.Consumed,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
