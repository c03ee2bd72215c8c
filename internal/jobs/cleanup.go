package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voicebridge/telephony-relay-go/internal/repository"
)

// CleanupJob purges soft-deleted integrations and bindings once they are
// past the retention window.
type CleanupJob struct {
	integrationRepo repository.IntegrationRepository
	bindingRepo     repository.BindingRepository
	retention       time.Duration
	interval        time.Duration
	done            chan struct{}
}

func NewCleanupJob(
	integrationRepo repository.IntegrationRepository,
	bindingRepo repository.BindingRepository,
	retention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		integrationRepo: integrationRepo,
		bindingRepo:     bindingRepo,
		retention:       retention,
		interval:        interval,
		done:            make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("cleanup job started")
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

	cutoff := time.Now().Add(-j.retention)

	// Bindings reference integrations, so purge them first.
	j.runCleanup(ctx, "bindings", func(ctx context.Context) (int64, error) {
		return j.bindingRepo.PurgeDeletedBefore(ctx, cutoff)
	})
	j.runCleanup(ctx, "integrations", func(ctx context.Context) (int64, error) {
		return j.integrationRepo.PurgeDeletedBefore(ctx, cutoff)
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
