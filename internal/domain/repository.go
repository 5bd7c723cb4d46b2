package domain

import (
	"context"
	"time"
)

// GenerationRepository defines persistence for generation records. The
// orchestration core needs exactly the lookups used for webhook correlation
// plus keyed reads/updates; schema and retention belong to the collaborator
// that owns the table.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	Update(ctx context.Context, id string, update GenerationUpdate) error
	FindByRemoteTaskID(ctx context.Context, remoteTaskID string) (*Generation, error)
	FindByWebhookToken(ctx context.Context, token string) (*Generation, error)
	// ListProcessing returns records still awaiting a terminal callback,
	// oldest first, for the polling sweep.
	ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]Generation, error)
}
