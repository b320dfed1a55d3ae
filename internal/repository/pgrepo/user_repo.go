package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const userColumns = "id, created_at, updated_at, role, balance, referrer_id, registered_at"

type UserRepository struct {
	conn uow.DBTX
}

func NewUserRepository(conn uow.DBTX) *UserRepository {
	return &UserRepository{conn: conn}
}

func (u *UserRepository) Create(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `
		INSERT INTO users (id, role, referrer_id)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		args.ID, args.Role, args.ReferrerID,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user with id %d", args.ID)
	}
	return user, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by id %d", id)
	}
	return user, nil
}

func (u *UserRepository) UpdateRole(ctx context.Context, id int64, role domain.RoleType) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, role,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "updating role for user with id %d", id)
	}
	return user, nil
}

// CreditBalance увеличивает баланс юзера на amount. Строка блокируется самим UPDATE,
// поэтому конкурентные зачисления сериализуются на уровне БД.
func (u *UserRepository) CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `
		UPDATE users SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, amount,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "crediting balance for user with id %d", id)
	}
	return user, nil
}

// DebitBalance списывает amount с баланса юзера. Условие balance >= amount гарантирует,
// что баланс никогда не уходит в минус; в этом случае возвращается domain.ErrInsufficientFunds.
func (u *UserRepository) DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `
		UPDATE users SET balance = balance - $2, updated_at = now()
		WHERE id = $1 AND balance >= $2
		RETURNING `+userColumns,
		id, amount,
	)
	user, err := scanUser(row)
	if err == nil {
		return user, nil
	}

	converted := convertErr(err, "debiting balance for user with id %d", id)
	if !errors.Is(converted, domain.ErrRecordNotFound) {
		return nil, converted
	}

	// UPDATE не нашел строку: различаем отсутствие юзера и нехватку средств.
	if _, findErr := u.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("[repository/debiting balance for user with id %d] %w", id, domain.ErrInsufficientFunds)
}

// ListIDs возвращает id юзеров строго больше afterID, по возрастанию. Используется
// рассылкой для постраничного обхода получателей от сохраненного курсора.
func (u *UserRepository) ListIDs(ctx context.Context, afterID int64, limit uint) ([]int64, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}

	rows, err := u.conn.Query(ctx, `
		SELECT id FROM users WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		afterID, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "listing user ids after %d", afterID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, convertErr(scanErr, "scanning user id")
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "listing user ids after %d", afterID)
	}
	return ids, nil
}

func (u *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := u.conn.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, convertErr(err, "counting users")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Role,
		&user.Balance,
		&user.ReferrerID,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
