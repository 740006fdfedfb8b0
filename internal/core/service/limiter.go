package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mosaic/internal/core/domain"
	"mosaic/internal/core/port"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of mosaics being built at once. It is the only state shared
// between requests.
type Limiter struct {
	sem          *semaphore.Weighted
	queueTimeout time.Duration
	metrics      port.MetricsRecorder
}

// NewLimiter allows size concurrent holders. Callers beyond that wait up to queueTimeout
// for a permit; a zero queueTimeout sheds them immediately.
func NewLimiter(size int64, queueTimeout time.Duration, metrics port.MetricsRecorder) *Limiter {
	if size < 1 {
		size = 1
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &Limiter{
		sem:          semaphore.NewWeighted(size),
		queueTimeout: queueTimeout,
		metrics:      metrics,
	}
}

// Acquire blocks until a permit is free. The returned release func is safe to call more than once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l.queueTimeout <= 0 {
		if !l.sem.TryAcquire(1) {
			return nil, domain.ErrOverloaded
		}
		return l.releaser(), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.queueTimeout)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("queueTimeout", l.queueTimeout).Msg("no permit available, shedding request")
			return nil, domain.ErrOverloaded
		}
		return nil, err
	}

	return l.releaser(), nil
}

func (l *Limiter) releaser() func() {
	l.metrics.InFlight(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.metrics.InFlight(-1)
			l.sem.Release(1)
		})
	}
}

type noopRecorder struct{}

func (noopRecorder) ObserveStage(port.Stage, time.Duration) {}
func (noopRecorder) ObserveRequest(string, int, time.Duration) {}
func (noopRecorder) InFlight(int) {}
