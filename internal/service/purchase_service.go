package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/events"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const (
	purchaseMaxRetries   = 3
	purchaseRetryBackoff = 50 * time.Millisecond
)

type PurchaseService struct {
	uow          uow.UOW
	purchaseRepo PurchaseRepository
	itemRepo     ItemRepository
	readiness    Readiness
	emitter      events.Emitter
	l            *logrus.Entry
}

func NewPurchaseService(
	u uow.UOW,
	readiness Readiness,
	emitter events.Emitter,
	l *logrus.Logger,
) (*PurchaseService, error) {
	purchaseRepo, purchaseRepoErr := uow.GetRepositoryAs[PurchaseRepository](u, uow.RepositoryName(repoargs.PurchaseRepoName))
	if purchaseRepoErr != nil {
		return nil, purchaseRepoErr
	}
	itemRepo, itemRepoErr := uow.GetRepositoryAs[ItemRepository](u, uow.RepositoryName(repoargs.ItemRepoName))
	if itemRepoErr != nil {
		return nil, itemRepoErr
	}
	return &PurchaseService{
		uow:          u,
		purchaseRepo: purchaseRepo,
		itemRepo:     itemRepo,
		readiness:    readiness,
		emitter:      emitter,
		l:            l.WithField("component", "purchase"),
	}, nil
}

// Receipt — результат успешной покупки: чек и раскрытое покупателю значение токена.
type Receipt struct {
	Purchase   *domain.Purchase
	Item       *domain.Item
	NewBalance decimal.Decimal
}

// Purchase выполняет атомарную покупку товара.
//
// Алгоритм работы:
//  1. Внутри одной SERIALIZABLE транзакции: чтение товара, захват стокового токена,
//     списание баланса и создание записи о покупке.
//  2. Конфликт сериализации или дедлок повторяется до purchaseMaxRetries раз
//     с джиттер-паузой; откат полный, покупатель не списывается.
//  3. Терминальные ошибки (ErrItemNotFound, ErrOutOfStock, ErrInsufficientFunds)
//     не ретраятся.
func (s *PurchaseService) Purchase(ctx context.Context, buyerID int64, itemName string) (*Receipt, error) {
	if s.readiness != nil && s.readiness.Degraded() {
		// денежный путь при деградации закрыт, в отличие от admission.
		return nil, fmt.Errorf("purchase: store degraded: %w", domain.ErrTransient)
	}

	var lastErr error
	for attempt := 0; attempt < purchaseMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(jitter(float64(purchaseRetryBackoff)*float64(attempt+1), 0.15, 0.15))
			select {
			case <-ctx.Done():
				return nil, ctx.Err() //nolint:wrapcheck
			case <-time.After(backoff):
			}
		}

		receipt, err := s.purchaseOnce(ctx, buyerID, itemName)
		if err == nil {
			s.emitter.Emit(events.Event{Type: events.TypePurchaseCompleted, Fields: map[string]any{
				"buyerID":  buyerID,
				"item":     itemName,
				"price":    receipt.Item.Price.String(),
				"uniqueID": receipt.Purchase.UniqueID,
			}})
			return receipt, nil
		}

		if !s.isRetryable(err) {
			s.emitFailure(buyerID, itemName, err)
			return nil, err
		}
		lastErr = err
		s.l.WithError(err).WithFields(logrus.Fields{
			"buyerID": buyerID,
			"item":    itemName,
			"attempt": attempt + 1,
		}).Warn("serialization conflict, retrying purchase")
	}

	s.emitFailure(buyerID, itemName, lastErr)
	return nil, fmt.Errorf("purchase after %d attempts: %w", purchaseMaxRetries, domain.ErrTransient)
}

func (s *PurchaseService) purchaseOnce(ctx context.Context, buyerID int64, itemName string) (*Receipt, error) {
	var receipt Receipt

	txErr := s.uow.DoWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(c context.Context, tx uow.TX) error {
		itemRepo, itemRepoErr := uow.GetAs[ItemRepository](tx, uow.RepositoryName(repoargs.ItemRepoName))
		if itemRepoErr != nil {
			return itemRepoErr //nolint:wrapcheck
		}

		item, itemErr := itemRepo.FindByName(c, itemName)
		if itemErr != nil {
			if errors.Is(itemErr, domain.ErrRecordNotFound) {
				return fmt.Errorf("item `%s`: %w", itemName, domain.ErrItemNotFound)
			}
			return itemErr //nolint:wrapcheck
		}

		// Захват токена. Для конечного стока ровно одна из конкурентных транзакций
		// получает последний токен, остальные увидят ErrOutOfStock. Безлимитный товар
		// на стоке не отказывает никогда.
		var token *domain.StockToken
		var tokenErr error
		if item.Unbounded {
			token, tokenErr = itemRepo.ReusableToken(c, itemName)
		} else {
			token, tokenErr = itemRepo.ClaimToken(c, itemName)
		}
		if tokenErr != nil {
			if errors.Is(tokenErr, domain.ErrRecordNotFound) {
				return fmt.Errorf("item `%s`: %w", itemName, domain.ErrOutOfStock)
			}
			return tokenErr //nolint:wrapcheck
		}

		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}

		// При нехватке средств транзакция откатывается целиком, захваченный токен
		// освобождается вместе с ней.
		buyer, debitErr := userRepo.DebitBalance(c, buyerID, item.Price)
		if debitErr != nil {
			return debitErr //nolint:wrapcheck
		}

		purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
		if purchaseRepoErr != nil {
			return purchaseRepoErr //nolint:wrapcheck
		}

		var tokenID *int64
		if !item.Unbounded {
			tokenID = &token.ID
		}
		purchase, purchaseErr := purchaseRepo.Create(c, repoargs.CreatePurchase{
			UniqueID: uuid.NewString(),
			BuyerID:  buyerID,
			ItemName: item.Name,
			TokenID:  tokenID,
			Value:    token.Value,
			Price:    item.Price,
		})
		if purchaseErr != nil {
			return purchaseErr //nolint:wrapcheck
		}

		receipt = Receipt{
			Purchase:   purchase,
			Item:       item,
			NewBalance: buyer.Balance,
		}
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}
	return &receipt, nil
}

func (s *PurchaseService) isRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient) || uow.IsSerializationFailure(err)
}

func (s *PurchaseService) emitFailure(buyerID int64, itemName string, err error) {
	reason := "unknown"
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		reason = "item_not_found"
	case errors.Is(err, domain.ErrOutOfStock):
		reason = "out_of_stock"
	case errors.Is(err, domain.ErrInsufficientFunds):
		reason = "insufficient_funds"
	case errors.Is(err, domain.ErrTransient):
		reason = "transient"
	}
	s.emitter.Emit(events.Event{Type: events.TypePurchaseFailed, Fields: map[string]any{
		"buyerID": buyerID,
		"item":    itemName,
		"reason":  reason,
	}})
}

// Purchases возвращает покупки юзера, отсортированные по дате создания по убыванию.
func (s *PurchaseService) Purchases(ctx context.Context, buyerID int64) ([]domain.Purchase, error) {
	purchases, err := s.purchaseRepo.GetByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return purchases, nil
}

// StockLeft возвращает число свободных токенов конечного товара (для карточки товара).
func (s *PurchaseService) StockLeft(ctx context.Context, itemName string) (int64, error) {
	count, err := s.itemRepo.AvailableTokenCount(ctx, itemName)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return count, nil
}
