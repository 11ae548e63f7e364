package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/alejandrodnm/tradewatch/internal/ports"
)

// Multi envía cada evento a todos los sinks. Un sink que falla no impide
// que el resto reciba el evento; los errores se devuelven juntos.
type Multi struct {
	sinks []ports.Notifier
}

// NewMulti crea un fan-out. Los sinks nil se ignoran.
func NewMulti(sinks ...ports.Notifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len devuelve el número de sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Publish implementa ports.Notifier.
func (m *Multi) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Throttled limita la frecuencia de status_update hacia un sink; el resto de
// eventos pasa siempre.
type Throttled struct {
	next    ports.Notifier
	limiter *rate.Limiter

	mu      sync.Mutex
	skipped int
}

// NewThrottled deja pasar como mucho un status_update por interval.
func NewThrottled(next ports.Notifier, interval time.Duration) *Throttled {
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Publish implementa ports.Notifier.
func (t *Throttled) Publish(ctx context.Context, e domain.Event) error {
	if e.Kind == domain.EventStatusUpdate && !t.limiter.AllowN(eventTime(e), 1) {
		t.mu.Lock()
		t.skipped++
		t.mu.Unlock()
		return nil
	}
	return t.next.Publish(ctx, e)
}

// Skipped devuelve cuántos status_update se descartaron.
func (t *Throttled) Skipped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

func eventTime(e domain.Event) time.Time {
	if e.Timestamp.IsZero() {
		return time.Now()
	}
	return e.Timestamp
}
