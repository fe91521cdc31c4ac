package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/config"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/repository"
)

// CleanupJob periodically marks overdue pairing sessions expired and
// deletes expired rows past the retention window. A stopped device never
// tears its session down, so this sweep is how abandoned sessions age out.
type CleanupJob struct {
	sessionRepo repository.PairingSessionRepository
	clock       clockwork.Clock
	interval    time.Duration
	done        chan struct{}
}

func NewCleanupJob(
	sessionRepo repository.PairingSessionRepository,
	clock clockwork.Clock,
	interval time.Duration,
) *CleanupJob {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CleanupJob{
		sessionRepo: sessionRepo,
		clock:       clock,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "overdue sessions", j.sessionRepo.ExpireOverdue)

	cutoff := j.clock.Now().Add(-config.ExpiredSessionRetention)
	j.runCleanup(ctx, "expired sessions", func(ctx context.Context) (int64, error) {
		return j.sessionRepo.DeleteExpiredBefore(ctx, cutoff)
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
