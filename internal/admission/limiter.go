// Package admission гейтит все входящие действия до транзакционного ядра:
// скользящие счетчики per-actor и per-action с эскалацией во временный бан.
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-shop/internal/domain"
)

type Action string

const (
	ActionPurchase  Action = "purchase"
	ActionPayment   Action = "payment"
	ActionBroadcast Action = "broadcast"
)

type Limit struct {
	Count  int64
	Window time.Duration
}

type Config struct {
	Global      Limit
	BanDuration time.Duration
	AdminBypass bool
	Actions     map[Action]Limit
}

func DefaultConfig() Config {
	return Config{
		Global:      Limit{Count: 30, Window: time.Minute},
		BanDuration: 5 * time.Minute,
		AdminBypass: true,
		Actions: map[Action]Limit{
			ActionPurchase:  {Count: 5, Window: time.Minute},
			ActionPayment:   {Count: 10, Window: time.Minute},
			ActionBroadcast: {Count: 1, Window: time.Hour},
		},
	}
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

var allow = Decision{Allowed: true}

func deny(retryAfter time.Duration) Decision {
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

type Limiter struct {
	rdb  *redis.Client
	conf Config
	l    *logrus.Entry
}

func New(rdb *redis.Client, conf Config, l *logrus.Logger) *Limiter {
	return &Limiter{
		rdb:  rdb,
		conf: conf,
		l:    l.WithField("component", "admission"),
	}
}

// Admit решает, пропускать ли действие актора.
//
// Алгоритм работы:
//  1. Админы пропускаются без счетчиков (если включен AdminBypass).
//  2. Забаненный актор получает отказ сразу, счетчики не инкрементируются.
//  3. Инкремент-и-проверка глобального и per-action счетчиков; превышение
//     любого из них ставит бан на BanDuration.
//
// Недоступность Redis деградирует в fail-open с предупреждением в логе:
// доступность коммерции важнее строгого лимитирования. Это осознанный
// компромисс, а не граница безопасности.
func (l *Limiter) Admit(ctx context.Context, actorID int64, action Action, role domain.RoleType) Decision {
	if l.conf.AdminBypass && role.IsAdmin() {
		return allow
	}

	banKey := fmt.Sprintf("admission:ban:%d", actorID)
	banned, err := l.rdb.Exists(ctx, banKey).Result()
	if err != nil {
		return l.failOpen(err, actorID, action)
	}
	if banned > 0 {
		retryAfter, ttlErr := l.rdb.TTL(ctx, banKey).Result()
		if ttlErr != nil || retryAfter < 0 {
			retryAfter = l.conf.BanDuration
		}
		return deny(retryAfter)
	}

	globalKey := fmt.Sprintf("admission:rl:%d:global", actorID)
	decision, err := l.incrementAndCheck(ctx, globalKey, l.conf.Global)
	if err != nil {
		return l.failOpen(err, actorID, action)
	}
	if !decision.Allowed {
		return l.ban(ctx, actorID, action, "global")
	}

	limit, ok := l.conf.Actions[action]
	if !ok {
		return allow
	}
	actionKey := fmt.Sprintf("admission:rl:%d:%s", actorID, action)
	decision, err = l.incrementAndCheck(ctx, actionKey, limit)
	if err != nil {
		return l.failOpen(err, actorID, action)
	}
	if !decision.Allowed {
		return l.ban(ctx, actorID, action, string(action))
	}
	return allow
}

// incrementAndCheck атомарно инкрементирует счетчик окна. TTL ставится через
// EXPIRE NX на каждом вызове: он ложится только при отсутствии, и счетчик,
// оставшийся без TTL после падения между INCR и EXPIRE, самовосстанавливается
// вместо того, чтобы навсегда зажать актора.
func (l *Limiter) incrementAndCheck(ctx context.Context, key string, limit Limit) (Decision, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return allow, err //nolint:wrapcheck
	}
	if expErr := l.rdb.ExpireNX(ctx, key, limit.Window).Err(); expErr != nil {
		return allow, expErr //nolint:wrapcheck
	}
	if count > limit.Count {
		return deny(limit.Window), nil
	}
	return allow, nil
}

func (l *Limiter) ban(ctx context.Context, actorID int64, action Action, exceeded string) Decision {
	if err := l.rdb.Set(ctx, fmt.Sprintf("admission:ban:%d", actorID), 1, l.conf.BanDuration).Err(); err != nil {
		l.l.WithError(err).WithField("actorID", actorID).Warn("failed to store ban, denying this request only")
	}
	l.l.WithFields(logrus.Fields{
		"actorID":  actorID,
		"action":   action,
		"exceeded": exceeded,
	}).Info("actor banned for exceeding rate limit")
	return deny(l.conf.BanDuration)
}

func (l *Limiter) failOpen(err error, actorID int64, action Action) Decision {
	l.l.WithError(err).WithFields(logrus.Fields{
		"actorID": actorID,
		"action":  action,
	}).Warn("rate limit store unavailable, failing open")
	return allow
}
