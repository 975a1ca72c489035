package authserver

import (
	"context"
	"time"

	"github.com/Zipties/toolarr/pkg/logging"
)

// DefaultSweepInterval is how often expired codes and tokens are purged.
const DefaultSweepInterval = 60 * time.Second

// Sweeper periodically removes expired state from the stores.
type Sweeper struct {
	codes    *CodeStore
	tokens   *TokenStore
	limiter  *RateLimiter
	metrics  *Metrics
	clock    Clock
	interval time.Duration
}

// NewSweeper creates a sweeper. limiter and metrics may be nil.
func NewSweeper(codes *CodeStore, tokens *TokenStore, limiter *RateLimiter, metrics *Metrics, clock Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		codes:    codes,
		tokens:   tokens,
		limiter:  limiter,
		metrics:  metrics,
		clock:    clock,
		interval: interval,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Debug("OAuth", "Sweeper started (interval: %v)", s.interval)
	for {
		select {
		case <-ctx.Done():
			logging.Debug("OAuth", "Sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep and returns how many codes and tokens it removed.
func (s *Sweeper) SweepOnce() (codes, tokens int) {
	now := s.clock.Now()
	codes = s.codes.Sweep(now)
	tokens = s.tokens.Sweep(now)
	if s.limiter != nil {
		s.limiter.Sweep(now)
	}

	if codes > 0 || tokens > 0 {
		logging.Info("OAuth", "Cleaned up %d expired codes and %d expired tokens", codes, tokens)
	}
	if s.metrics != nil {
		summary := s.metrics.Summary()
		logging.Debug("OAuth", "Auth state: %d codes, %d tokens, %d registrations, %d replays",
			s.codes.Count(), s.tokens.Count(), summary.Registrations, summary.CodeReplays)
	}
	return codes, tokens
}
