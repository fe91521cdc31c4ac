package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/config"
	"github.com/CrashMediaIT/acvideoreview-sync/internal/repository"
)

// stubCleanupRepo implements only the two calls the job makes; the
// embedded interface panics on anything else.
type stubCleanupRepo struct {
	repository.PairingSessionRepository

	mu            sync.Mutex
	expireCalls   int
	deleteCalls   int
	deleteCutoffs []time.Time
}

func (r *stubCleanupRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireCalls++
	return 2, nil
}

func (r *stubCleanupRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	r.deleteCutoffs = append(r.deleteCutoffs, cutoff)
	return 1, nil
}

func (r *stubCleanupRepo) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expireCalls, r.deleteCalls
}

func TestCleanupJob(t *testing.T) {
	t.Run("sweeps immediately on start", func(t *testing.T) {
		repo := &stubCleanupRepo{}
		job := NewCleanupJob(repo, clockwork.NewFakeClock(), time.Hour)

		job.Start()
		defer job.Stop()

		assert.Eventually(t, func() bool {
			expires, deletes := repo.counts()
			return expires == 1 && deletes == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("deletes expired rows older than the retention window", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		repo := &stubCleanupRepo{}
		job := NewCleanupJob(repo, clock, time.Hour)

		job.cleanup()

		repo.mu.Lock()
		defer repo.mu.Unlock()
		assert.Len(t, repo.deleteCutoffs, 1)
		assert.Equal(t, clock.Now().Add(-config.ExpiredSessionRetention), repo.deleteCutoffs[0])
	})

	t.Run("stop terminates the loop", func(t *testing.T) {
		repo := &stubCleanupRepo{}
		job := NewCleanupJob(repo, nil, 10*time.Millisecond)

		job.Start()
		assert.Eventually(t, func() bool {
			expires, _ := repo.counts()
			return expires >= 2
		}, 2*time.Second, 5*time.Millisecond)
		job.Stop()

		time.Sleep(30 * time.Millisecond)
		expires, _ := repo.counts()
		time.Sleep(30 * time.Millisecond)
		after, _ := repo.counts()
		assert.Equal(t, expires, after)
	})
}
