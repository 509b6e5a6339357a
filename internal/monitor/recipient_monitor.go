package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/repository"
	"go.uber.org/zap"
)

// RecipientMonitor periodically counts message recipients stuck in pending.
// Rows stay pending when the gateway rejected a dispatch or never called back;
// nothing retries them, so the monitor makes them visible to operators.
type RecipientMonitor struct {
	messages   repository.MessageRepository // Repository used to count stale rows
	interval   time.Duration                // How often to sweep
	staleAfter time.Duration                // Age after which a pending row is reported
	log        *zap.Logger

	mu        sync.Mutex
	lastCount int64 // Count seen at the previous sweep, -1 before the first one
	now       func() time.Time
}

// NewRecipientMonitor creates and returns a new instance of RecipientMonitor.
func NewRecipientMonitor(messages repository.MessageRepository, interval, staleAfter time.Duration, log *zap.Logger) *RecipientMonitor {
	return &RecipientMonitor{
		messages:   messages,
		interval:   interval,
		staleAfter: staleAfter,
		log:        log,
		lastCount:  -1,
		now:        time.Now,
	}
}

// Start runs the sweep immediately, then every interval until ctx is done.
func (m *RecipientMonitor) Start(ctx context.Context) {
	m.log.Info("starting stale recipient monitor",
		zap.Duration("interval", m.interval), zap.Duration("stale_after", m.staleAfter))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("stale recipient monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check counts stale pending recipients, updates the gauge and logs when the
// count changed since the previous sweep. It returns the count.
func (m *RecipientMonitor) Check(ctx context.Context) int64 {
	count, err := m.messages.CountStalePending(ctx, m.now().Add(-m.staleAfter))
	if err != nil {
		m.log.Error("failed to count stale pending recipients", zap.Error(err))
		return 0
	}
	metrics.StalePendingRecipients.Set(float64(count))

	m.mu.Lock()
	previous := m.lastCount
	m.lastCount = count
	m.mu.Unlock()

	switch {
	case count > 0 && count != previous:
		m.log.Warn("recipients stuck in pending",
			zap.Int64("count", count), zap.Int64("previous", previous), zap.Duration("stale_after", m.staleAfter))
	case previous > 0 && count == 0:
		m.log.Info("no more stale pending recipients")
	}
	return count
}
