package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"genserver/internal/domain"
	"genserver/internal/infra"
	"genserver/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository on top of the
// marker-checked SQL runner.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a new generation repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts a new generation record.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		gen.ID,
		gen.UserID,
		gen.Type,
		gen.SubType,
		gen.Status,
		gen.Provider,
		gen.ModelID,
		nullableString(gen.RemoteTaskID),
		gen.WebhookToken,
		gen.Prompt,
		nullableBytes(gen.ParamsJSON),
		gen.CreditsCost,
		gen.ResultURLs,
		gen.FailReason,
		gen.FailCode,
	)
	return err
}

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByID, id))
}

// FindByRemoteTaskID fetches the generation tracking a given provider task.
func (r *GenerationRepositoryPG) FindByRemoteTaskID(ctx context.Context, remoteTaskID string) (*domain.Generation, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByRemoteTaskID, remoteTaskID))
}

// FindByWebhookToken fetches the generation that owns a given callback token.
func (r *GenerationRepositoryPG) FindByWebhookToken(ctx context.Context, token string) (*domain.Generation, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByWebhookToken, token))
}

// Update applies a partial mutation; nil fields keep their stored value.
func (r *GenerationRepositoryPG) Update(ctx context.Context, id string, update domain.GenerationUpdate) error {
	var resultURLs any
	if update.ResultURLs != nil {
		resultURLs = update.ResultURLs
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateGeneration,
		id,
		update.Status,
		update.Provider,
		update.ModelID,
		update.RemoteTaskID,
		resultURLs,
		update.FailReason,
		update.FailCode,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListProcessing returns in-flight generations that have not been touched
// since olderThan, oldest first.
func (r *GenerationRepositoryPG) ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectProcessingGenerations,
		domain.GenerationStatusProcessing, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gen)
	}
	return out, rows.Err()
}

func (r *GenerationRepositoryPG) scanOne(row pgx.Row) (*domain.Generation, error) {
	gen, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var gen domain.Generation
	var remoteTaskID *string
	if err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.Type,
		&gen.SubType,
		&gen.Status,
		&gen.Provider,
		&gen.ModelID,
		&remoteTaskID,
		&gen.WebhookToken,
		&gen.Prompt,
		&gen.ParamsJSON,
		&gen.CreditsCost,
		&gen.ResultURLs,
		&gen.FailReason,
		&gen.FailCode,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if remoteTaskID != nil {
		gen.RemoteTaskID = *remoteTaskID
	}
	return &gen, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
