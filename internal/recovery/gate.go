package recovery

import "sync/atomic"

// Gate — атомарный флаг деградации хранилищ, выставляется циклом health-проверок.
// Денежные сервисы читают его перед началом операции: при деградации покупка и
// зачисление закрываются до восстановления зависимостей.
type Gate struct {
	degraded atomic.Bool
}

func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) Degraded() bool {
	return g.degraded.Load()
}

func (g *Gate) setDegraded(v bool) {
	g.degraded.Store(v)
}
