package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/cache"
	"github.com/fsdevblog/groph-shop/internal/events"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

type AppServices struct {
	UserService      *UserService
	PurchaseService  *PurchaseService
	PaymentService   *PaymentService
	BroadcastService *BroadcastService
}

type FactoryArgs struct {
	CacheManager    *cache.Manager
	Sender          Sender
	Readiness       Readiness
	Emitter         events.Emitter
	ReferralPercent decimal.Decimal
}

func Factory(unitOfWork uow.UOW, args FactoryArgs, l *logrus.Logger) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, args.CacheManager, l)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	purchaseService, purchaseServiceErr := NewPurchaseService(unitOfWork, args.Readiness, args.Emitter, l)
	if purchaseServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", purchaseServiceErr.Error())
	}

	paymentService, paymentServiceErr := NewPaymentService(unitOfWork, args.ReferralPercent, args.Readiness, args.Emitter, l)
	if paymentServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", paymentServiceErr.Error())
	}

	broadcastService, broadcastServiceErr := NewBroadcastService(unitOfWork, args.Sender, l)
	if broadcastServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", broadcastServiceErr.Error())
	}

	return &AppServices{
		UserService:      userService,
		PurchaseService:  purchaseService,
		PaymentService:   paymentService,
		BroadcastService: broadcastService,
	}, nil
}
