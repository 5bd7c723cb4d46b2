package generation

import (
	"context"
	"time"

	"genserver/internal/domain"
	"genserver/internal/infra"
	"genserver/internal/providers/video"
)

// Poller is the secondary reconciliation path: it sweeps processing records
// whose webhooks never arrived and reconciles them from the provider's query
// endpoint.
type Poller struct {
	repo      domain.GenerationRepository
	registry  *video.Registry
	coord     *Coordinator
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	logger    *infra.Logger
}

func NewPoller(
	repo domain.GenerationRepository,
	registry *video.Registry,
	coord *Coordinator,
	interval, minAge time.Duration,
	batchSize int,
	logger *infra.Logger,
) *Poller {
	return &Poller{
		repo:      repo,
		registry:  registry,
		coord:     coord,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Sweep(ctx); err != nil {
				p.logger.Error().Err(err).Msg("poll sweep failed")
			}
		}
	}
}

// Sweep reconciles one batch of stale processing records. It returns how
// many records were examined; per-record failures are logged and skipped so
// one broken task never stalls the rest of the batch.
func (p *Poller) Sweep(ctx context.Context) (int, error) {
	olderThan := time.Now().Add(-p.minAge)
	records, err := p.repo.ListProcessing(ctx, olderThan, p.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range records {
		gen := &records[i]
		if gen.RemoteTaskID == "" {
			continue
		}
		adapter, err := p.registry.Lookup(gen.Provider, gen.ModelID)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("generation_id", gen.ID).
				Msg("no adapter for stale record")
			continue
		}
		result, err := adapter.QueryTask(ctx, gen.RemoteTaskID)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("generation_id", gen.ID).
				Str("remote_task_id", gen.RemoteTaskID).
				Msg("query task failed")
			continue
		}
		if err := p.coord.ApplyQueryResult(ctx, gen, result); err != nil {
			p.logger.Warn().
				Err(err).
				Str("generation_id", gen.ID).
				Msg("apply polled state failed")
		}
	}
	return len(records), nil
}
