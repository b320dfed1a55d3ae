package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/admission"
	"github.com/fsdevblog/groph-shop/internal/cache"
	"github.com/fsdevblog/groph-shop/internal/config"
	"github.com/fsdevblog/groph-shop/internal/events"
	"github.com/fsdevblog/groph-shop/internal/recovery"
	"github.com/fsdevblog/groph-shop/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/fsdevblog/groph-shop/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventLogBuffer = 256

type App struct {
	Config *config.Config
	Logger *logrus.Logger

	sender   service.Sender
	provider recovery.ProviderChecker
	notifier recovery.Notifier
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// SetSender подключает транспорт доставки сообщений (чат-бот). Без него
// рассылки доставляются в никуда с записью в лог.
func (a *App) SetSender(sender service.Sender) *App {
	a.sender = sender
	return a
}

// SetProviderChecker подключает клиент опроса платежного провайдера,
// используемый восстановлением зависших PENDING платежей.
func (a *App) SetProviderChecker(provider recovery.ProviderChecker) *App {
	a.provider = provider
	return a
}

// SetNotifier подключает уведомление плательщика о восстановленном зачислении.
func (a *App) SetNotifier(notifier recovery.Notifier) *App {
	a.notifier = notifier
	return a
}

// Core — собранное ядро: сервисы, лимитер и шина событий. Отдается транспорту
// (внешнему коллаборатору), который гейтит вход через Limiter и зовет сервисы.
type Core struct {
	Services *service.AppServices
	Limiter  *admission.Limiter
	Events   *events.Bus
	Gate     *recovery.Gate
	Recovery *recovery.Manager

	closeFns []func()
}

func (c *Core) Close() {
	for i := len(c.closeFns) - 1; i >= 0; i-- {
		c.closeFns[i]()
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app with config: %+v", a.Config)

	core, coreErr := a.Bootstrap(notifyCtx)
	if coreErr != nil {
		return fmt.Errorf("app run: %s", coreErr.Error())
	}
	defer core.Close()

	go a.logEvents(core.Events.Subscribe(eventLogBuffer))

	recoveryDone := make(chan struct{})
	go func() {
		defer close(recoveryDone)
		core.Recovery.Run(notifyCtx)
	}()

	<-notifyCtx.Done()
	// дожидаемся, пока восстановление дочитает начатый проход.
	<-recoveryDone
	return notifyCtx.Err() //nolint:wrapcheck
}

// Bootstrap поднимает соединения и собирает ядро без запуска фоновых циклов.
func (a *App) Bootstrap(ctx context.Context) (*Core, error) {
	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, pgrepo.PoolSettings{
		MaxConns:        a.Config.DBPoolMaxConns,
		MinConns:        a.Config.DBPoolMinConns,
		MaxConnLifetime: a.Config.DBPoolMaxConnLifetime,
	}, a.Logger)
	if connErr != nil {
		return nil, fmt.Errorf("bootstrap: %s", connErr.Error())
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	cacheManager := cache.New(rdb, a.Logger)

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		conn.Close()
		return nil, fmt.Errorf("bootstrap: %s", uowErr.Error())
	}

	bus := events.NewBus(a.Logger)
	gate := recovery.NewGate()

	sender := a.sender
	if sender == nil {
		sender = &logSender{l: a.Logger.WithField("component", "broadcast")}
	}

	services, servicesErr := service.Factory(unitOfWork, service.FactoryArgs{
		CacheManager:    cacheManager,
		Sender:          sender,
		Readiness:       gate,
		Emitter:         bus,
		ReferralPercent: a.Config.ReferralPercent,
	}, a.Logger)
	if servicesErr != nil {
		conn.Close()
		return nil, fmt.Errorf("bootstrap: %s", servicesErr.Error())
	}
	services.BroadcastService.
		SetBatchSize(a.Config.BroadcastBatchSize).
		SetBatchDelay(a.Config.BroadcastBatchDelay)

	admissionConf := admission.DefaultConfig()
	admissionConf.BanDuration = a.Config.AdmissionBanDuration
	admissionConf.AdminBypass = a.Config.AdmissionAdminBypass
	limiter := admission.New(rdb, admissionConf, a.Logger)

	manager := recovery.New(recovery.Deps{
		Payments:   services.PaymentService,
		Broadcasts: services.BroadcastService,
		Checkpoint: pgrepo.NewCheckpointRepository(conn),
		Provider:   a.provider,
		Notifier:   a.notifier,
		Store:      conn,
		Cache:      cacheManager,
		Gate:       gate,
		Emitter:    bus,
	}, a.Logger).
		SetScanInterval(a.Config.RecoveryScanInterval).
		SetHealthInterval(a.Config.RecoveryHealthInterval).
		SetMaxAttempts(a.Config.RecoveryMaxAttempts)

	return &Core{
		Services: services,
		Limiter:  limiter,
		Events:   bus,
		Gate:     gate,
		Recovery: manager,
		closeFns: []func(){
			conn.Close,
			func() {
				if err := rdb.Close(); err != nil {
					a.Logger.WithError(err).Warn("redis close")
				}
			},
			bus.Close,
		},
	}, nil
}

func (a *App) logEvents(ch <-chan events.Event) {
	for event := range ch {
		a.Logger.WithFields(logrus.Fields{
			"type":   event.Type,
			"fields": event.Fields,
		}).Debug("core event")
	}
}

// logSender — заглушка транспорта: сообщение пишется в лог. Боевой транспорт
// подключается через SetSender.
type logSender struct {
	l *logrus.Entry
}

func (s *logSender) SendTo(_ context.Context, userID int64, message string) error {
	s.l.WithFields(logrus.Fields{
		"userID": userID,
		"len":    len(message),
	}).Debug("no sender attached, message dropped")
	return nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewUserRepository(dbtx)
		},
		repoargs.ItemRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewItemRepository(dbtx)
		},
		repoargs.PurchaseRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewPurchaseRepository(dbtx)
		},
		repoargs.PaymentRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewPaymentRepository(dbtx)
		},
		repoargs.ReferralRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewReferralRepository(dbtx)
		},
		repoargs.BroadcastRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewBroadcastRepository(dbtx)
		},
		repoargs.CheckpointRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewCheckpointRepository(dbtx)
		},
	}

	for name, factoryFn := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factoryFn); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
