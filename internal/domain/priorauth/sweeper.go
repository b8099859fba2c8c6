package priorauth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically expires pending requests whose response deadline has
// passed. One sweeper per process is enough; the version guard on the
// repository makes concurrent sweeps safe.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(svc *Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "priorauth-sweeper").Logger(),
	}
}

// Run blocks until ctx is canceled, sweeping once immediately and then on
// every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.svc.ExpireDueRequests(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiration sweep failed")
		return
	}
	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("expired overdue authorization requests")
	}
}
