package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/slots"
)

const sweepLockName = "sweeper"

// Sweeper periodically expires lapsed holds and frees their slots.
type Sweeper struct {
	lifecycle
	leased bool // last tick acquired the sweep lease
}

func NewSweeper(store ReservationStore, index *slots.Index, clk clock.Clock, opts ...Option) *Sweeper {
	return &Sweeper{lifecycle: newLifecycle(store, index, clk, opts)}
}

// Run sweeps once immediately and then every interval until ctx is
// cancelled. A held sweep lease is given up on the way out.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.sweepInterval).Int("batch_size", s.sweepBatch).Msg("sweeper started")
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.releaseLease()
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.sweepLock != nil {
		ok, err := s.sweepLock.TryAcquire(ctx, sweepLockName, s.sweepInterval)
		if err != nil {
			s.logger.Warn().Err(err).Msg("acquire sweep lease")
			return
		}
		s.leased = ok
		if !ok {
			return
		}
	}

	n, err := s.SweepOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Int("expired", n).Msg("sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("expired", n).Msg("sweep completed")
	}
}

// releaseLease frees the lease so another replica can sweep without waiting
// for the TTL. ctx is already done here, so it uses its own deadline.
func (s *Sweeper) releaseLease() {
	if s.sweepLock == nil || !s.leased {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.sweepLock.Release(ctx, sweepLockName); err != nil {
		s.logger.Warn().Err(err).Msg("release sweep lease")
		return
	}
	s.leased = false
}

// SweepOnce expires every hold lapsed at the current time, in batches. Holds
// confirmed or cancelled concurrently are skipped. It returns how many holds
// this call expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.SweepOnce")
	defer span.End()

	now := s.clock.Now().UTC()
	expired := 0
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		batch, err := s.store.ListExpiredHolds(ctx, now, s.sweepBatch)
		if err != nil {
			span.RecordError(err)
			return expired, err
		}
		if len(batch) == 0 {
			break
		}

		progressed := 0
		for _, r := range batch {
			_, err := s.expire(ctx, r, now)
			switch {
			case err == nil:
				expired++
				progressed++
			case errors.Is(err, domain.ErrStatusConflict):
				progressed++
			default:
				lastErr = err
				s.logger.Warn().Err(err).Str("reservation_id", r.ID).Msg("expire hold")
			}
		}
		// Failed rows stay HELD and would be listed again.
		if len(batch) < s.sweepBatch || progressed < len(batch) {
			break
		}
	}

	span.SetAttributes(attribute.Int("sweep.expired", expired))
	return expired, lastErr
}
