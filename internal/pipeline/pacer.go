package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// DefaultPaceInterval spaces AirNow day requests to stay within the API's
// hourly request allowance.
const DefaultPaceInterval = 7200 * time.Millisecond

// Pacer allows at most one start per interval. A caller that already spent
// the interval doing work is not delayed.
type Pacer struct {
	limiter *rate.Limiter
	clock   clockwork.Clock
}

// NewPacer returns a pacer on clock. An interval of zero or less disables
// pacing.
func NewPacer(interval time.Duration, clock clockwork.Clock) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1), clock: clock}
}

// Wait blocks until the next start is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("pacer: reservation exceeds burst")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		r.CancelAt(p.clock.Now())
		return ctx.Err()
	case <-p.clock.After(delay):
		return nil
	}
}
