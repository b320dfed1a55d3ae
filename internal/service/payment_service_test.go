package service

import (
	"context"
	"testing"
	"time"

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

type PaymentServiceTestSuite struct {
	suite.Suite
	mockCtrl         *gomock.Controller
	mockUOW          *uowmocks.MockUOW
	mockTX           *uowmocks.MockTX
	mockPaymentRepo  *mocks.MockPaymentRepository
	mockUserRepo     *mocks.MockUserRepository
	mockReferralRepo *mocks.MockReferralRepository
	paymentService   *PaymentService
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockPaymentRepo = mocks.NewMockPaymentRepository(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockReferralRepo = mocks.NewMockReferralRepository(s.mockCtrl)

	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.PaymentRepoName)).
		Return(s.mockPaymentRepo, nil).AnyTimes()

	paymentService, servErr := NewPaymentService(
		s.mockUOW,
		decimal.NewFromInt(10),
		nil,
		events.NewBus(logrus.New()),
		logrus.New(),
	)
	s.Require().NoError(servErr)
	s.paymentService = paymentService
}

func (s *PaymentServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PaymentServiceTestSuite) expectTxRepos() {
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.PaymentRepoName)).
		Return(s.mockPaymentRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.ReferralRepoName)).
		Return(s.mockReferralRepo, nil).AnyTimes()
}

func (s *PaymentServiceTestSuite) expectDo() *gomock.Call {
	return s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *PaymentServiceTestSuite) TestIngest() {
	args := IngestArgs{
		Provider:   "cryptopay",
		ExternalID: "inv-100",
		UserID:     42,
		Amount:     decimal.NewFromInt(150),
		Currency:   "USD",
		Confirmed:  true,
	}
	pending := domain.Payment{
		ID:         1,
		Provider:   args.Provider,
		ExternalID: args.ExternalID,
		UserID:     args.UserID,
		Amount:     args.Amount,
		Currency:   args.Currency,
		Status:     domain.PaymentStatusPending,
	}
	confirmed := pending
	confirmed.Status = domain.PaymentStatusConfirmed
	credited := pending
	credited.Status = domain.PaymentStatusCredited

	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), args.Provider, args.ExternalID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockPaymentRepo.EXPECT().
		Create(gomock.Any(), repoargs.CreatePayment{
			Provider:   args.Provider,
			ExternalID: args.ExternalID,
			UserID:     args.UserID,
			Amount:     args.Amount,
			Currency:   args.Currency,
		}).
		Return(&pending, nil)
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), pending.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed).
		Return(&confirmed, nil)

	s.expectTxRepos()
	s.expectDo()
	s.mockPaymentRepo.EXPECT().LockByID(gomock.Any(), pending.ID).Return(&confirmed, nil)
	s.mockUserRepo.EXPECT().CreditBalance(gomock.Any(), args.UserID, args.Amount).
		Return(&domain.User{ID: args.UserID, Balance: args.Amount}, nil)
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), pending.ID, domain.PaymentStatusConfirmed, domain.PaymentStatusCredited).
		Return(&credited, nil)

	payment, err := s.paymentService.Ingest(context.Background(), args)

	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCredited, payment.Status)
}

func (s *PaymentServiceTestSuite) TestIngestDuplicateCredited() {
	credited := domain.Payment{
		ID:         1,
		Provider:   "cryptopay",
		ExternalID: "inv-100",
		Status:     domain.PaymentStatusCredited,
	}

	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), credited.Provider, credited.ExternalID).
		Return(&credited, nil)

	_, err := s.paymentService.Ingest(context.Background(), IngestArgs{
		Provider:   credited.Provider,
		ExternalID: credited.ExternalID,
		Confirmed:  true,
	})

	// повторное уведомление — не ошибка зачисления, а идемпотентный дубль.
	var dup *domain.DuplicatePaymentError
	s.Require().ErrorAs(err, &dup)
	s.Equal(credited.ID, dup.Payment.ID)
}

func (s *PaymentServiceTestSuite) TestIngestLostInsertRace() {
	args := IngestArgs{
		Provider:   "cryptopay",
		ExternalID: "inv-100",
		UserID:     42,
		Amount:     decimal.NewFromInt(150),
		Currency:   "USD",
		Confirmed:  true,
	}
	credited := domain.Payment{
		ID:         1,
		Provider:   args.Provider,
		ExternalID: args.ExternalID,
		Status:     domain.PaymentStatusCredited,
	}

	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), args.Provider, args.ExternalID).
		Return(nil, domain.ErrRecordNotFound)
	// конкурентное уведомление успело вставить и зачислить платеж.
	s.mockPaymentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateKey)
	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), args.Provider, args.ExternalID).
		Return(&credited, nil)

	_, err := s.paymentService.Ingest(context.Background(), args)

	var dup *domain.DuplicatePaymentError
	s.Require().ErrorAs(err, &dup)
}

func (s *PaymentServiceTestSuite) TestIngestReplayRacesConcurrentCredit() {
	args := IngestArgs{
		Provider:   "cryptopay",
		ExternalID: "inv-100",
		UserID:     42,
		Amount:     decimal.NewFromInt(150),
		Currency:   "USD",
		Confirmed:  true,
	}
	pending := domain.Payment{
		ID:         1,
		Provider:   args.Provider,
		ExternalID: args.ExternalID,
		UserID:     args.UserID,
		Amount:     args.Amount,
		Status:     domain.PaymentStatusPending,
	}
	credited := pending
	credited.Status = domain.PaymentStatusCredited

	// повтор уведомления прочитал платеж еще PENDING, но конкурент успел
	// зачислить между чтением и переходом. Условный переход промахивается,
	// CREDITED назад не откатывается, и баланс второй раз не трогается.
	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), args.Provider, args.ExternalID).
		Return(&pending, nil)
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), pending.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed).
		Return(nil, domain.ErrRecordNotFound)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), pending.ID).Return(&credited, nil)

	_, err := s.paymentService.Ingest(context.Background(), args)

	var dup *domain.DuplicatePaymentError
	s.Require().ErrorAs(err, &dup)
	s.Equal(credited.ID, dup.Payment.ID)
}

func (s *PaymentServiceTestSuite) TestIngestValidationFailed() {
	args := IngestArgs{
		Provider:   "cryptopay",
		ExternalID: "inv-200",
		UserID:     42,
		Amount:     decimal.NewFromInt(150),
		Currency:   "USD",
		Confirmed:  false,
	}
	pending := domain.Payment{
		ID:       2,
		Provider: args.Provider,
		Status:   domain.PaymentStatusPending,
	}
	failed := pending
	failed.Status = domain.PaymentStatusFailed

	s.mockPaymentRepo.EXPECT().FindByExternalID(gomock.Any(), args.Provider, args.ExternalID).
		Return(nil, domain.ErrRecordNotFound)
	s.mockPaymentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&pending, nil)
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), pending.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed).
		Return(&failed, nil)

	_, err := s.paymentService.Ingest(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrProviderValidation)
}

func (s *PaymentServiceTestSuite) TestCreditWithReferralCommission() {
	var referrerID int64 = 7
	amount := decimal.RequireFromString("150.75")
	// 10% от 150.75 = 15.075, half-up до минорной единицы — 15.08.
	commission := decimal.RequireFromString("15.08")
	confirmed := domain.Payment{
		ID:     1,
		UserID: 42,
		Amount: amount,
		Status: domain.PaymentStatusConfirmed,
	}
	credited := confirmed
	credited.Status = domain.PaymentStatusCredited

	s.expectTxRepos()
	s.expectDo()

	s.mockPaymentRepo.EXPECT().LockByID(gomock.Any(), confirmed.ID).Return(&confirmed, nil)
	s.mockUserRepo.EXPECT().CreditBalance(gomock.Any(), confirmed.UserID, amount).
		Return(&domain.User{ID: confirmed.UserID, ReferrerID: &referrerID, Balance: amount}, nil)
	s.mockUserRepo.EXPECT().
		CreditBalance(gomock.Any(), referrerID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, got decimal.Decimal) (*domain.User, error) {
			s.True(commission.Equal(got), "commission %s != %s", got, commission)
			return &domain.User{ID: referrerID, Balance: got}, nil
		})
	s.mockReferralRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreateReferralEarning) (*domain.ReferralEarning, error) {
			s.Equal(referrerID, args.ReferrerID)
			s.Equal(confirmed.UserID, args.ReferralID)
			s.Equal(confirmed.ID, args.PaymentID)
			s.True(commission.Equal(args.Amount))
			return &domain.ReferralEarning{ID: 1, Amount: args.Amount}, nil
		})
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), confirmed.ID, domain.PaymentStatusConfirmed, domain.PaymentStatusCredited).
		Return(&credited, nil)

	payment, err := s.paymentService.Credit(context.Background(), confirmed.ID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCredited, payment.Status)
}

func (s *PaymentServiceTestSuite) TestCreditIdempotentReplay() {
	credited := domain.Payment{
		ID:     1,
		UserID: 42,
		Status: domain.PaymentStatusCredited,
	}

	s.expectTxRepos()
	s.expectDo()
	// статус-гард: баланс повторно не трогается.
	s.mockPaymentRepo.EXPECT().LockByID(gomock.Any(), credited.ID).Return(&credited, nil)

	payment, err := s.paymentService.Credit(context.Background(), credited.ID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCredited, payment.Status)
}

func (s *PaymentServiceTestSuite) TestCreditRejectsUnconfirmed() {
	pending := domain.Payment{
		ID:     1,
		Status: domain.PaymentStatusPending,
	}

	s.expectTxRepos()
	s.expectDo()
	s.mockPaymentRepo.EXPECT().LockByID(gomock.Any(), pending.ID).Return(&pending, nil)

	_, err := s.paymentService.Credit(context.Background(), pending.ID)
	s.Require().ErrorIs(err, domain.ErrProviderValidation)
}

func (s *PaymentServiceTestSuite) TestConfirmAfterLiveCredit() {
	credited := domain.Payment{
		ID:     1,
		UserID: 42,
		Status: domain.PaymentStatusCredited,
	}

	// восстановление догоняет платеж, который живой трафик уже довел до
	// CREDITED: статус не регрессирует, возвращается актуальное состояние.
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), credited.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed).
		Return(nil, domain.ErrRecordNotFound)
	s.mockPaymentRepo.EXPECT().FindByID(gomock.Any(), credited.ID).Return(&credited, nil)

	payment, err := s.paymentService.Confirm(context.Background(), credited.ID)

	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusCredited, payment.Status)
}

func (s *PaymentServiceTestSuite) TestMarkFailedDoesNotOverwriteCredited() {
	var paymentID int64 = 1

	// провайдер считает инвойс истекшим, но платеж уже зачислен конкурентно:
	// штамп FAILED поверх CREDITED не ставится.
	s.mockPaymentRepo.EXPECT().
		UpdateStatus(gomock.Any(), paymentID, domain.PaymentStatusPending, domain.PaymentStatusFailed).
		Return(nil, domain.ErrRecordNotFound)

	s.Require().NoError(s.paymentService.MarkFailed(context.Background(), paymentID))
}

func (s *PaymentServiceTestSuite) TestStalePayments() {
	stale := []domain.Payment{{ID: 1, Status: domain.PaymentStatusConfirmed}}

	s.mockPaymentRepo.EXPECT().
		GetStale(gomock.Any(), domain.PaymentStatusConfirmed, gomock.Any(), uint(10)).
		DoAndReturn(func(_ context.Context, _ domain.PaymentStatusType, cutoff time.Time, _ uint) ([]domain.Payment, error) {
			s.WithinDuration(time.Now().Add(-2*time.Minute), cutoff, 5*time.Second)
			return stale, nil
		})

	payments, err := s.paymentService.StalePayments(context.Background(), domain.PaymentStatusConfirmed, 2*time.Minute, 10)
	s.Require().NoError(err)
	s.Len(payments, 1)
}
