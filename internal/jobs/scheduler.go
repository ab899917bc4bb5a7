package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/loki135/CodeSensei/internal/session"
)

// Scheduler periodically evicts expired entries from the revocation ledger
// and the session registry. Without the sweep both maps grow for the
// lifetime of the process even though expired tokens fail verification
// anyway.
type Scheduler struct {
	cron     *cron.Cron
	registry *session.Registry
	ledger   *session.RevocationLedger
	log      zerolog.Logger
}

func NewScheduler(registry *session.Registry, ledger *session.RevocationLedger, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		registry: registry,
		ledger:   ledger,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * * *", s.sweep); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish, up to a short grace period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) sweep() {
	now := time.Now()
	revoked := s.ledger.Sweep(now)
	expired := s.registry.Sweep(now)

	if revoked > 0 || expired > 0 {
		s.log.Info().
			Int("revocations_evicted", revoked).
			Int("sessions_expired", expired).
			Msg("session sweep completed")
	}
}
