package repoargs

import "github.com/fsdevblog/groph-shop/internal/domain"

type CreateUser struct {
	ID         int64
	ReferrerID *int64
	Role       domain.RoleType
}
