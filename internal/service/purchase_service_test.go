package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/events"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service/mocks"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-shop/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type PurchaseServiceTestSuite struct {
	suite.Suite
	mockCtrl         *gomock.Controller
	mockUOW          *uowmocks.MockUOW
	mockTX           *uowmocks.MockTX
	mockUserRepo     *mocks.MockUserRepository
	mockItemRepo     *mocks.MockItemRepository
	mockPurchaseRepo *mocks.MockPurchaseRepository
	purchaseService  *PurchaseService
}

func TestPurchaseServiceSuite(t *testing.T) {
	suite.Run(t, new(PurchaseServiceTestSuite))
}

func (s *PurchaseServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockItemRepo = mocks.NewMockItemRepository(s.mockCtrl)
	s.mockPurchaseRepo = mocks.NewMockPurchaseRepository(s.mockCtrl)

	// Мок получения репозиториев из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.PurchaseRepoName)).
		Return(s.mockPurchaseRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.ItemRepoName)).
		Return(s.mockItemRepo, nil).AnyTimes()

	purchaseService, servErr := NewPurchaseService(s.mockUOW, nil, events.NewBus(logrus.New()), logrus.New())
	s.Require().NoError(servErr)
	s.purchaseService = purchaseService
}

func (s *PurchaseServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectTxRepos настраивает получение репозиториев из транзакции.
func (s *PurchaseServiceTestSuite) expectTxRepos() {
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.ItemRepoName)).
		Return(s.mockItemRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.PurchaseRepoName)).
		Return(s.mockPurchaseRepo, nil).AnyTimes()
}

// expectSerializableTx прогоняет fn внутри мока транзакции.
func (s *PurchaseServiceTestSuite) expectSerializableTx() *gomock.Call {
	return s.mockUOW.EXPECT().
		DoWithOptions(gomock.Any(), pgx.TxOptions{IsoLevel: pgx.Serializable}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ pgx.TxOptions, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *PurchaseServiceTestSuite) TestPurchase() {
	var buyerID int64 = 42
	item := domain.Item{
		Name:      "vpn-key",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Category:  "subscriptions",
		Price:     decimal.NewFromInt(30),
	}
	token := domain.StockToken{
		ID:       7,
		ItemName: item.Name,
		Value:    "KEY-AAAA-BBBB",
	}
	buyer := domain.User{
		ID:      buyerID,
		Balance: decimal.NewFromInt(70),
	}

	s.expectTxRepos()
	s.expectSerializableTx()

	s.mockItemRepo.EXPECT().FindByName(gomock.Any(), item.Name).Return(&item, nil)
	s.mockItemRepo.EXPECT().ClaimToken(gomock.Any(), item.Name).Return(&token, nil)
	s.mockUserRepo.EXPECT().DebitBalance(gomock.Any(), buyerID, item.Price).Return(&buyer, nil)
	s.mockPurchaseRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreatePurchase) (*domain.Purchase, error) {
			s.Equal(buyerID, args.BuyerID)
			s.Equal(item.Name, args.ItemName)
			s.Require().NotNil(args.TokenID)
			s.Equal(token.ID, *args.TokenID)
			s.Equal(token.Value, args.Value)
			s.NotEmpty(args.UniqueID)
			return &domain.Purchase{
				ID:       1,
				UniqueID: args.UniqueID,
				BuyerID:  args.BuyerID,
				ItemName: args.ItemName,
				TokenID:  args.TokenID,
				Value:    args.Value,
				Price:    args.Price,
			}, nil
		})

	receipt, err := s.purchaseService.Purchase(context.Background(), buyerID, item.Name)

	s.Require().NoError(err)
	s.Equal(token.Value, receipt.Purchase.Value)
	s.True(receipt.NewBalance.Equal(decimal.NewFromInt(70)))
}

func (s *PurchaseServiceTestSuite) TestPurchaseUnboundedItem() {
	var buyerID int64 = 42
	item := domain.Item{
		Name:      "donate",
		Price:     decimal.NewFromInt(10),
		Unbounded: true,
	}
	token := domain.StockToken{
		ID:       1,
		ItemName: item.Name,
		Value:    "thanks",
		Reusable: true,
	}

	s.expectTxRepos()
	s.expectSerializableTx()

	s.mockItemRepo.EXPECT().FindByName(gomock.Any(), item.Name).Return(&item, nil)
	// безлимитный товар не захватывает одноразовый токен.
	s.mockItemRepo.EXPECT().ReusableToken(gomock.Any(), item.Name).Return(&token, nil)
	s.mockUserRepo.EXPECT().DebitBalance(gomock.Any(), buyerID, item.Price).
		Return(&domain.User{ID: buyerID, Balance: decimal.NewFromInt(90)}, nil)
	s.mockPurchaseRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreatePurchase) (*domain.Purchase, error) {
			s.Nil(args.TokenID)
			return &domain.Purchase{ID: 1, BuyerID: args.BuyerID, Value: args.Value}, nil
		})

	_, err := s.purchaseService.Purchase(context.Background(), buyerID, item.Name)
	s.Require().NoError(err)
}

func (s *PurchaseServiceTestSuite) TestPurchaseTerminalErrors() {
	var buyerID int64 = 42
	item := domain.Item{
		Name:  "vpn-key",
		Price: decimal.NewFromInt(30),
	}

	s.Run("item not found", func() {
		s.expectTxRepos()
		s.expectSerializableTx()
		s.mockItemRepo.EXPECT().FindByName(gomock.Any(), "missing").
			Return(nil, domain.ErrRecordNotFound)

		_, err := s.purchaseService.Purchase(context.Background(), buyerID, "missing")
		s.Require().ErrorIs(err, domain.ErrItemNotFound)
	})

	s.Run("out of stock", func() {
		s.expectTxRepos()
		s.expectSerializableTx()
		s.mockItemRepo.EXPECT().FindByName(gomock.Any(), item.Name).Return(&item, nil)
		s.mockItemRepo.EXPECT().ClaimToken(gomock.Any(), item.Name).
			Return(nil, domain.ErrRecordNotFound)

		_, err := s.purchaseService.Purchase(context.Background(), buyerID, item.Name)
		s.Require().ErrorIs(err, domain.ErrOutOfStock)
	})

	s.Run("insufficient funds", func() {
		s.expectTxRepos()
		s.expectSerializableTx()
		s.mockItemRepo.EXPECT().FindByName(gomock.Any(), item.Name).Return(&item, nil)
		s.mockItemRepo.EXPECT().ClaimToken(gomock.Any(), item.Name).
			Return(&domain.StockToken{ID: 1, Value: "KEY"}, nil)
		s.mockUserRepo.EXPECT().DebitBalance(gomock.Any(), buyerID, item.Price).
			Return(nil, domain.ErrInsufficientFunds)

		_, err := s.purchaseService.Purchase(context.Background(), buyerID, item.Name)
		s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
	})
}

func (s *PurchaseServiceTestSuite) TestPurchaseRetriesSerializationConflict() {
	var buyerID int64 = 42
	item := domain.Item{
		Name:  "vpn-key",
		Price: decimal.NewFromInt(30),
	}
	serializationErr := &pgconn.PgError{Code: "40001"}

	s.expectTxRepos()

	// первая попытка падает на конфликте сериализации, вторая проходит.
	s.mockUOW.EXPECT().
		DoWithOptions(gomock.Any(), pgx.TxOptions{IsoLevel: pgx.Serializable}, gomock.Any()).
		Return(serializationErr)
	s.expectSerializableTx()

	s.mockItemRepo.EXPECT().FindByName(gomock.Any(), item.Name).Return(&item, nil)
	s.mockItemRepo.EXPECT().ClaimToken(gomock.Any(), item.Name).
		Return(&domain.StockToken{ID: 1, Value: "KEY"}, nil)
	s.mockUserRepo.EXPECT().DebitBalance(gomock.Any(), buyerID, item.Price).
		Return(&domain.User{ID: buyerID, Balance: decimal.Zero}, nil)
	s.mockPurchaseRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(&domain.Purchase{ID: 1}, nil)

	_, err := s.purchaseService.Purchase(context.Background(), buyerID, item.Name)
	s.Require().NoError(err)
}

func (s *PurchaseServiceTestSuite) TestPurchaseExhaustsRetries() {
	serializationErr := &pgconn.PgError{Code: "40001"}

	s.mockUOW.EXPECT().
		DoWithOptions(gomock.Any(), pgx.TxOptions{IsoLevel: pgx.Serializable}, gomock.Any()).
		Return(serializationErr).
		Times(purchaseMaxRetries)

	_, err := s.purchaseService.Purchase(context.Background(), 42, "vpn-key")
	s.Require().ErrorIs(err, domain.ErrTransient)
}

func (s *PurchaseServiceTestSuite) TestPurchaseFailsClosedWhenDegraded() {
	readiness := mocks.NewMockReadiness(s.mockCtrl)
	readiness.EXPECT().Degraded().Return(true)

	svc, err := NewPurchaseService(s.mockUOW, readiness, events.NewBus(logrus.New()), logrus.New())
	s.Require().NoError(err)

	_, purchaseErr := svc.Purchase(context.Background(), 42, "vpn-key")
	s.Require().ErrorIs(purchaseErr, domain.ErrTransient)
}

func (s *PurchaseServiceTestSuite) TestStockLeft() {
	s.mockItemRepo.EXPECT().AvailableTokenCount(gomock.Any(), "vpn-key").Return(int64(3), nil)

	count, err := s.purchaseService.StockLeft(context.Background(), "vpn-key")
	s.Require().NoError(err)
	s.Equal(int64(3), count)
}
