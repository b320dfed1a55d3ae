package uow

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
)

const (
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// IsSerializationFailure определяет, завершился ли коммит конфликтом сериализации
// или дедлоком. Такая транзакция откатилась целиком и её безопасно повторить.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode
}
