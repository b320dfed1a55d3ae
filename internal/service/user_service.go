package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/cache"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const roleCacheTTL = 5 * time.Minute

type UserService struct {
	uow          uow.UOW
	userRepo     UserRepository
	referralRepo ReferralRepository
	cache        *cache.Manager
	l            *logrus.Entry
}

func NewUserService(u uow.UOW, cacheManager *cache.Manager, l *logrus.Logger) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	referralRepo, referralRepoErr := uow.GetRepositoryAs[ReferralRepository](u, uow.RepositoryName(repoargs.ReferralRepoName))
	if referralRepoErr != nil {
		return nil, referralRepoErr
	}
	return &UserService{
		uow:          u,
		userRepo:     userRepo,
		referralRepo: referralRepo,
		cache:        cacheManager,
		l:            l.WithField("component", "user"),
	}, nil
}

func roleCacheKey(userID int64) string {
	return fmt.Sprintf("user:role:%d", userID)
}

// Register создает юзера при первом контакте. Повторный вызов идемпотентен:
// возвращается существующая запись, реферер при этом не перезаписывается —
// реферальная связь фиксируется ровно один раз при регистрации.
func (s *UserService) Register(ctx context.Context, userID int64, referrerID *int64) (*domain.User, error) {
	// самореферал не дает связи.
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}

	user, createErr := s.userRepo.Create(ctx, repoargs.CreateUser{
		ID:         userID,
		ReferrerID: referrerID,
		Role:       domain.RoleUser,
	})
	if createErr == nil {
		return user, nil
	}
	if !errors.Is(createErr, domain.ErrDuplicateKey) {
		return nil, fmt.Errorf("registering user %d: %w", userID, createErr)
	}

	existing, findErr := s.userRepo.FindByID(ctx, userID)
	if findErr != nil {
		return nil, fmt.Errorf("registering user %d: %w", userID, findErr)
	}
	return existing, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return user, nil
}

// Role возвращает роль юзера. Значение кешируется: роль читается на каждом
// входящем сообщении, а меняется редко. Мутация роли инвалидирует ключ.
func (s *UserService) Role(ctx context.Context, userID int64) (domain.RoleType, error) {
	if s.cache == nil {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return "", err //nolint:wrapcheck
		}
		return user.Role, nil
	}

	role, err := cache.Fetch(ctx, s.cache, roleCacheKey(userID), roleCacheTTL,
		func(c context.Context) (domain.RoleType, error) {
			user, findErr := s.userRepo.FindByID(c, userID)
			if findErr != nil {
				return "", findErr //nolint:wrapcheck
			}
			return user.Role, nil
		})
	if err != nil {
		return "", err
	}
	return role, nil
}

// GrantRole меняет роль юзера. Право выдачи проверяется по роли инициатора:
// раздавать и отзывать роли может только владелец.
func (s *UserService) GrantRole(ctx context.Context, granterID, targetID int64, role domain.RoleType) (*domain.User, error) {
	granter, granterErr := s.userRepo.FindByID(ctx, granterID)
	if granterErr != nil {
		return nil, fmt.Errorf("granting role: %w", granterErr)
	}
	if !granter.Role.CanGrant(role) {
		return nil, fmt.Errorf("user %d can not grant role %s: %w", granterID, role, domain.ErrPermissionDenied)
	}

	updated, updateErr := s.userRepo.UpdateRole(ctx, targetID, role)
	if updateErr != nil {
		return nil, fmt.Errorf("granting role: %w", updateErr)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, roleCacheKey(targetID))
	}
	s.l.WithFields(logrus.Fields{
		"granterID": granterID,
		"targetID":  targetID,
		"role":      role,
	}).Info("role granted")
	return updated, nil
}

func (s *UserService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	return user.Balance, nil
}

// ReferralEarnings возвращает суммарную комиссию, начисленную рефереру.
func (s *UserService) ReferralEarnings(ctx context.Context, referrerID int64) (decimal.Decimal, error) {
	sum, err := s.referralRepo.SumByReferrer(ctx, referrerID)
	if err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	return sum, nil
}
