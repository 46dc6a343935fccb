package session

import "time"

// Ticker is the recurring trigger behind the auto-save task.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every period.
type TickerFactory func(period time.Duration) Ticker

// NewTimeTicker wraps time.Ticker.
func NewTimeTicker(period time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(period)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// autoSaveTask is one armed instance of the auto-save timer.
// A task is never re-armed: rearm replaces it with a new one.
type autoSaveTask struct {
	ticker Ticker
	stop   chan struct{}
}

func (t *autoSaveTask) cancel() {
	t.ticker.Stop()
	close(t.stop)
}
