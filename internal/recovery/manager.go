// Package recovery доводит до конца состояние, оставленное падениями: зависшие
// платежи и прерванные рассылки. Все повторные прогоны идут через те же
// идемпотентные сервисные пути, что и живой трафик.
package recovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/events"
)

const (
	ScanTypePayments   = "payments"
	ScanTypeBroadcasts = "broadcasts"

	defaultScanInterval     = time.Minute
	defaultHealthInterval   = 15 * time.Second
	defaultConfirmedGrace   = 2 * time.Minute
	defaultPendingCutoff    = 15 * time.Minute
	defaultCandidateTimeout = 10 * time.Second
	defaultLimitPerScan     = 50
	defaultMaxAttempts      = 5
	maxHealthBackoff        = 5 * time.Minute
)

// stateType — фаза цикла восстановления для одного типа скана.
type stateType string

const (
	stateIdle       stateType = "IDLE"
	stateScanning   stateType = "SCANNING"
	stateRecovering stateType = "RECOVERING"
)

// Manager гоняет три независимых фоновых цикла: восстановление платежей,
// возобновление рассылок и health-проверки хранилищ.
type Manager struct {
	payments   PaymentServicer
	broadcasts BroadcastServicer
	checkpoint Checkpointer
	provider   ProviderChecker
	notifier   Notifier
	store      Pinger
	cache      Pinger
	gate       *Gate
	emitter    events.Emitter
	l          *logrus.Entry

	scanInterval     time.Duration
	healthInterval   time.Duration
	confirmedGrace   time.Duration
	pendingCutoff    time.Duration
	candidateTimeout time.Duration
	limitPerScan     uint
	maxAttempts      uint

	paymentState   atomic.Value
	broadcastState atomic.Value
}

type Deps struct {
	Payments   PaymentServicer
	Broadcasts BroadcastServicer
	Checkpoint Checkpointer
	// Provider опционален: без него зависшие PENDING платежи не трогаются.
	Provider ProviderChecker
	// Notifier опционален: отказ уведомления не откатывает зачисление.
	Notifier Notifier
	Store    Pinger
	Cache    Pinger
	Gate     *Gate
	Emitter  events.Emitter
}

func New(deps Deps, l *logrus.Logger) *Manager {
	m := &Manager{
		payments:   deps.Payments,
		broadcasts: deps.Broadcasts,
		checkpoint: deps.Checkpoint,
		provider:   deps.Provider,
		notifier:   deps.Notifier,
		store:      deps.Store,
		cache:      deps.Cache,
		gate:       deps.Gate,
		emitter:    deps.Emitter,
		l: l.WithFields(logrus.Fields{
			"component": "recovery",
			"module":    "manager",
		}),
		scanInterval:     defaultScanInterval,
		healthInterval:   defaultHealthInterval,
		confirmedGrace:   defaultConfirmedGrace,
		pendingCutoff:    defaultPendingCutoff,
		candidateTimeout: defaultCandidateTimeout,
		limitPerScan:     defaultLimitPerScan,
		maxAttempts:      defaultMaxAttempts,
	}
	m.paymentState.Store(stateIdle)
	m.broadcastState.Store(stateIdle)
	return m
}

// SetScanInterval задает паузу между циклами восстановления.
func (m *Manager) SetScanInterval(interval time.Duration) *Manager {
	if interval > 0 {
		m.scanInterval = interval
	}
	return m
}

func (m *Manager) SetHealthInterval(interval time.Duration) *Manager {
	if interval > 0 {
		m.healthInterval = interval
	}
	return m
}

// SetConfirmedGrace задает грейс-период: CONFIRMED платеж моложе него считается
// обрабатываемым живым трафиком и кандидатом не становится.
func (m *Manager) SetConfirmedGrace(grace time.Duration) *Manager {
	if grace > 0 {
		m.confirmedGrace = grace
	}
	return m
}

func (m *Manager) SetPendingCutoff(cutoff time.Duration) *Manager {
	if cutoff > 0 {
		m.pendingCutoff = cutoff
	}
	return m
}

func (m *Manager) SetCandidateTimeout(timeout time.Duration) *Manager {
	if timeout > 0 {
		m.candidateTimeout = timeout
	}
	return m
}

func (m *Manager) SetLimitPerScan(limit uint) *Manager {
	if limit > 0 {
		m.limitPerScan = limit
	}
	return m
}

// SetMaxAttempts задает предел автоматических повторов, после которого кандидат
// уходит на ручной разбор.
func (m *Manager) SetMaxAttempts(attempts uint) *Manager {
	if attempts > 0 {
		m.maxAttempts = attempts
	}
	return m
}

// Run запускает фоновые циклы и блокируется до отмены контекста. Возврат
// происходит только после того, как начатые прогоны дочитаны до конца —
// остановка не бросает кандидата на полпути.
func (m *Manager) Run(ctx context.Context) {
	m.l.WithFields(logrus.Fields{
		"scanInterval":   m.scanInterval,
		"healthInterval": m.healthInterval,
		"limitPerScan":   m.limitPerScan,
	}).Info("Starting")

	m.logResumePoints(ctx)

	wg := new(sync.WaitGroup)
	wg.Add(3)

	go func() {
		defer wg.Done()
		m.loop(ctx, ScanTypePayments, m.paymentSweep)
	}()
	go func() {
		defer wg.Done()
		m.loop(ctx, ScanTypeBroadcasts, m.broadcastSweep)
	}()
	go func() {
		defer wg.Done()
		m.healthLoop(ctx)
	}()

	wg.Wait()
	m.l.Info("Got stop signal, exiting...")
}

// PaymentState и BroadcastState отдают текущую фазу цикла (для интроспекции).
func (m *Manager) PaymentState() string {
	return string(m.paymentState.Load().(stateType))
}

func (m *Manager) BroadcastState() string {
	return string(m.broadcastState.Load().(stateType))
}

func (m *Manager) loop(ctx context.Context, scanType string, sweep func(context.Context) error) {
	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				m.l.WithError(err).WithField("scan", scanType).Error("sweep failed")
				continue
			}
			m.advanceCheckpoint(ctx, scanType)
		}
	}
}

// logResumePoints показывает при старте, когда каждый скан в последний раз
// доходил до конца. Большой разрыв после рестарта — сигнал оператору, что
// кандидаты могли копиться.
func (m *Manager) logResumePoints(ctx context.Context) {
	for _, scanType := range []string{ScanTypePayments, ScanTypeBroadcasts} {
		checkpoint, err := m.checkpoint.Find(ctx, scanType)
		switch {
		case err == nil:
			m.l.WithFields(logrus.Fields{
				"scan":      scanType,
				"lastSweep": checkpoint.Position,
			}).Info("resuming scans")
		case errors.Is(err, domain.ErrRecordNotFound):
			m.l.WithField("scan", scanType).Info("no prior sweep marker, starting fresh")
		default:
			m.l.WithError(err).WithField("scan", scanType).Warn("sweep marker not read")
		}
	}
}

// advanceCheckpoint фиксирует момент последнего полного прохода. Маркер
// монотонный и переживает рестарты: по нему видно, когда восстановление
// последний раз доходило до конца.
func (m *Manager) advanceCheckpoint(ctx context.Context, scanType string) {
	position := time.Now().UTC().Format(time.RFC3339)
	if err := m.checkpoint.Upsert(ctx, scanType, position); err != nil {
		m.l.WithError(err).WithField("scan", scanType).Warn("checkpoint not advanced")
	}
}

// paymentSweep прогоняет один цикл восстановления платежей.
//
// Алгоритм работы:
//  1. CONFIRMED старше грейс-периода — падение между подтверждением и зачислением.
//     Кандидат доводится повторным Credit (идемпотентен, двойного зачисления не
//     бывает), плательщик уведомляется.
//  2. PENDING старше отсечки — уведомление потерялось. Судьба платежа уточняется
//     у провайдера: оплачен — подтверждаем и зачисляем, истек/отклонен — FAILED,
//     еще активен — не трогаем.
//  3. Каждый кандидат считает попытки; исчерпавший лимит помечается для ручного
//     разбора и из авто-восстановления выбывает. Ошибка по кандидату логируется
//     и не прерывает проход — повтор на следующем цикле.
func (m *Manager) paymentSweep(ctx context.Context) error {
	m.paymentState.Store(stateScanning)
	defer m.paymentState.Store(stateIdle)

	confirmed, confirmedErr := m.payments.StalePayments(ctx, domain.PaymentStatusConfirmed, m.confirmedGrace, m.limitPerScan)
	if confirmedErr != nil {
		return confirmedErr //nolint:wrapcheck
	}

	var pending []domain.Payment
	if m.provider != nil {
		var pendingErr error
		pending, pendingErr = m.payments.StalePayments(ctx, domain.PaymentStatusPending, m.pendingCutoff, m.limitPerScan)
		if pendingErr != nil {
			return pendingErr //nolint:wrapcheck
		}
	}

	if len(confirmed) == 0 && len(pending) == 0 {
		return nil
	}

	m.paymentState.Store(stateRecovering)

	var recovered, failed, flagged uint
	for _, payment := range confirmed {
		if ctx.Err() != nil {
			break
		}
		switch m.recoverConfirmed(ctx, payment) {
		case outcomeRecovered:
			recovered++
		case outcomeFlagged:
			flagged++
		case outcomeStuck:
			failed++
		case outcomeSkipped:
		}
	}
	for _, payment := range pending {
		if ctx.Err() != nil {
			break
		}
		switch m.recoverPending(ctx, payment) {
		case outcomeRecovered:
			recovered++
		case outcomeFlagged:
			flagged++
		case outcomeStuck:
			failed++
		case outcomeSkipped:
		}
	}

	m.emitter.Emit(events.Event{Type: events.TypeRecoveryCycle, Fields: map[string]any{
		"scan":       ScanTypePayments,
		"candidates": len(confirmed) + len(pending),
		"recovered":  recovered,
		"stuck":      failed,
		"flagged":    flagged,
	}})
	return nil
}

type outcomeType int

const (
	outcomeRecovered outcomeType = iota
	outcomeStuck
	outcomeFlagged
	outcomeSkipped
)

func (m *Manager) recoverConfirmed(ctx context.Context, payment domain.Payment) outcomeType {
	l := m.l.WithFields(logrus.Fields{
		"paymentID":  payment.ID,
		"provider":   payment.Provider,
		"externalID": payment.ExternalID,
	})

	candidateCtx, cancel := context.WithTimeout(ctx, m.candidateTimeout)
	defer cancel()

	flagged, attemptErr := m.registerAttempt(candidateCtx, payment.ID)
	if attemptErr != nil {
		l.WithError(attemptErr).Error("recovery attempt not registered")
		return outcomeStuck
	}
	if flagged {
		l.Warn("retry budget exhausted, flagged for operator review")
		return outcomeFlagged
	}

	credited, creditErr := m.payments.Credit(candidateCtx, payment.ID)
	if creditErr != nil {
		// кандидат не выбрасывается: повтор на следующем цикле.
		l.WithError(creditErr).Error("stale confirmed payment not credited")
		return outcomeStuck
	}

	l.Info("stale confirmed payment credited")
	m.notify(candidateCtx, credited)
	return outcomeRecovered
}

func (m *Manager) recoverPending(ctx context.Context, payment domain.Payment) outcomeType {
	l := m.l.WithFields(logrus.Fields{
		"paymentID":  payment.ID,
		"provider":   payment.Provider,
		"externalID": payment.ExternalID,
	})

	candidateCtx, cancel := context.WithTimeout(ctx, m.candidateTimeout)
	defer cancel()

	status, checkErr := m.provider.CheckPayment(candidateCtx, payment.Provider, payment.ExternalID)
	if checkErr != nil {
		l.WithError(checkErr).Error("provider status check failed")
		return outcomeStuck
	}

	switch status {
	case ProviderStatusActive:
		// платеж еще живой на стороне провайдера, уведомление может прийти штатно.
		return outcomeSkipped
	case ProviderStatusExpired, ProviderStatusFailed:
		if failErr := m.payments.MarkFailed(candidateCtx, payment.ID); failErr != nil {
			l.WithError(failErr).Error("stale pending payment not failed")
			return outcomeStuck
		}
		l.WithField("providerStatus", status).Info("stale pending payment failed")
		return outcomeRecovered
	case ProviderStatusPaid:
	}

	flagged, attemptErr := m.registerAttempt(candidateCtx, payment.ID)
	if attemptErr != nil {
		l.WithError(attemptErr).Error("recovery attempt not registered")
		return outcomeStuck
	}
	if flagged {
		l.Warn("retry budget exhausted, flagged for operator review")
		return outcomeFlagged
	}

	if _, confirmErr := m.payments.Confirm(candidateCtx, payment.ID); confirmErr != nil {
		l.WithError(confirmErr).Error("stale pending payment not confirmed")
		return outcomeStuck
	}
	credited, creditErr := m.payments.Credit(candidateCtx, payment.ID)
	if creditErr != nil {
		l.WithError(creditErr).Error("stale pending payment not credited")
		return outcomeStuck
	}

	l.Info("stale pending payment credited after provider re-check")
	m.notify(candidateCtx, credited)
	return outcomeRecovered
}

// registerAttempt инкрементирует счетчик попыток и, при исчерпании бюджета,
// выводит платеж на ручной разбор. Возвращает true, если кандидат выведен.
func (m *Manager) registerAttempt(ctx context.Context, paymentID int64) (bool, error) {
	attempts, err := m.payments.RegisterRecoveryAttempt(ctx, paymentID)
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	if attempts <= m.maxAttempts {
		return false, nil
	}
	if flagErr := m.payments.FlagForReview(ctx, paymentID); flagErr != nil {
		return false, flagErr //nolint:wrapcheck
	}
	return true, nil
}

func (m *Manager) notify(ctx context.Context, payment *domain.Payment) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyCredited(ctx, payment.UserID, *payment); err != nil {
		// зачисление уже зафиксировано, недоставленное уведомление его не откатывает.
		m.l.WithError(err).WithField("paymentID", payment.ID).Warn("payer not notified")
	}
}

// broadcastSweep возобновляет рассылки, не доведенные до конца прошлым процессом.
// Resume продолжает с зафиксированного курсора, уже уведомленные получатели
// повторно не обходятся.
func (m *Manager) broadcastSweep(ctx context.Context) error {
	m.broadcastState.Store(stateScanning)
	defer m.broadcastState.Store(stateIdle)

	unfinished, err := m.broadcasts.Unfinished(ctx, m.limitPerScan)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if len(unfinished) == 0 {
		return nil
	}

	m.broadcastState.Store(stateRecovering)

	var resumed, stuck uint
	for _, broadcast := range unfinished {
		if ctx.Err() != nil {
			break
		}
		l := m.l.WithFields(logrus.Fields{
			"broadcastID": broadcast.ID,
			"cursor":      broadcast.Cursor,
		})
		if resumeErr := m.broadcasts.Resume(ctx, broadcast); resumeErr != nil {
			l.WithError(resumeErr).Error("broadcast not resumed")
			stuck++
			continue
		}
		l.Info("broadcast resumed and finished")
		resumed++
	}

	m.emitter.Emit(events.Event{Type: events.TypeRecoveryCycle, Fields: map[string]any{
		"scan":       ScanTypeBroadcasts,
		"candidates": len(unfinished),
		"recovered":  resumed,
		"stuck":      stuck,
	}})
	return nil
}

// healthLoop периодически проверяет доступность БД и Redis. Отказ БД выставляет
// флаг деградации и закрывает денежные пути; отказ Redis только логируется —
// admission-слой переживает его самостоятельно (fail-open), а торговля без
// лимитера дороже остановленной торговли. Повторные проверки идут с
// экспоненциальной паузой до восстановления.
func (m *Manager) healthLoop(ctx context.Context) {
	interval := m.healthInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		healthy := m.probe(ctx)
		wasDegraded := m.gate.Degraded()

		switch {
		case healthy && wasDegraded:
			m.gate.setDegraded(false)
			interval = m.healthInterval
			m.l.Info("dependencies healthy again, gate opened")
			m.emitter.Emit(events.Event{Type: events.TypeHealthChanged, Fields: map[string]any{"degraded": false}})
		case !healthy && !wasDegraded:
			m.gate.setDegraded(true)
			m.l.Warn("dependency probe failed, gate closed")
			m.emitter.Emit(events.Event{Type: events.TypeHealthChanged, Fields: map[string]any{"degraded": true}})
		}

		if !healthy {
			interval *= 2
			if interval > maxHealthBackoff {
				interval = maxHealthBackoff
			}
		} else {
			interval = m.healthInterval
		}
	}
}

func (m *Manager) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.candidateTimeout)
	defer cancel()

	if err := m.cache.Ping(probeCtx); err != nil {
		m.l.WithError(err).Warn("coordination cache unreachable, rate limiting degraded to fail-open")
	}
	if err := m.store.Ping(probeCtx); err != nil {
		m.l.WithError(err).Warn("ledger store unreachable")
		return false
	}
	return true
}
