// Package events публикует структурированные события ядра для внешнего
// мониторинга. Формат доставки наружу (prometheus, дашборды) — забота подписчика.
package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Type string

const (
	TypePurchaseCompleted Type = "purchase_completed"
	TypePurchaseFailed    Type = "purchase_failed"
	TypePaymentCredited   Type = "payment_credited"
	TypePaymentFailed     Type = "payment_failed"
	TypeRecoveryCycle     Type = "recovery_cycle"
	TypeHealthChanged     Type = "health_changed"
)

type Event struct {
	Type   Type
	At     time.Time
	Fields map[string]any
}

type Emitter interface {
	Emit(event Event)
}

// Bus раздает события всем подписчикам. Отправка неблокирующая: медленный
// подписчик теряет события, но никогда не тормозит денежные операции.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
	l    *logrus.Entry
}

func NewBus(l *logrus.Logger) *Bus {
	return &Bus{
		l: l.WithField("component", "events"),
	}
}

func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.l.WithField("type", event.Type).Debug("subscriber buffer full, event dropped")
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
