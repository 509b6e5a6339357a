package workers

import (
	"context"
	"sync"

	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"go.uber.org/zap"
)

// ScanPool persists scan sessions off the redirect path. The redirect handler
// only enqueues, so a slow or failing insert never delays a user.
type ScanPool struct {
	events   chan models.ScanEvent
	sessions repository.ScanSessionRepository
	log      *zap.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// StartScanWorkers launches workerCount goroutines draining a buffer of bufferSize events.
func StartScanWorkers(workerCount, bufferSize int, sessions repository.ScanSessionRepository, log *zap.Logger) *ScanPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	p := &ScanPool{
		events:   make(chan models.ScanEvent, bufferSize),
		sessions: sessions,
		log:      log,
	}

	log.Info("starting scan workers", zap.Int("workers", workerCount), zap.Int("buffer", bufferSize))
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Enqueue hands an event to the workers without blocking. It reports false
// when the buffer is full or the pool is closed and the event was dropped.
func (p *ScanPool) Enqueue(event models.ScanEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- event:
		return true
	default:
		metrics.ScanEventsDroppedTotal.Inc()
		return false
	}
}

// Close stops accepting events and waits for the buffered ones to be written.
func (p *ScanPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *ScanPool) work() {
	defer p.wg.Done()
	for event := range p.events {
		session := event.Session()
		if err := p.sessions.CreateScanSession(context.Background(), session); err != nil {
			metrics.ScanSessionWritesTotal.WithLabelValues("error").Inc()
			p.log.Error("failed to save scan session",
				zap.String("qr_code_id", event.QRCodeID),
				zap.String("user_agent", event.UserAgent),
				zap.String("ip", event.IPAddress),
				zap.Error(err))
			continue
		}
		metrics.ScanSessionWritesTotal.WithLabelValues("ok").Inc()
		p.log.Debug("scan session recorded",
			zap.String("qr_code_id", event.QRCodeID),
			zap.String("scan_session_id", session.ID))
	}
}
