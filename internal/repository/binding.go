package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

// BindingRepository persists number-to-agent bindings.
//
// Schema (logical): a partial unique index enforces at most one enabled,
// non-deleted binding per E.164:
//
//	CREATE UNIQUE INDEX bindings_e164_enabled_uniq ON bindings (e164)
//	WHERE enabled = TRUE AND deleted_at IS NULL;
//
// UpsertByE164 relies on it, so two concurrent connects for the same
// number converge on a single row without application-level locking.
type BindingRepository interface {
	UpsertByE164(ctx context.Context, params model.UpsertBindingParams) (*model.Binding, error)
	FindEnabledByE164(ctx context.Context, e164 string) (*model.Binding, error)
	FindByID(ctx context.Context, id string) (*model.Binding, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.Binding, error)
	FindByIntegrationID(ctx context.Context, integrationID string) ([]model.Binding, error)
	Disable(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) BindingRepository
}

type bindingRepo struct {
	db sqlxDB
}

func NewBindingRepository(db *sqlx.DB) BindingRepository {
	return &bindingRepo{db: db}
}

func (r *bindingRepo) WithTx(tx *sqlx.Tx) BindingRepository {
	return &bindingRepo{db: tx}
}

func (r *bindingRepo) UpsertByE164(ctx context.Context, params model.UpsertBindingParams) (*model.Binding, error) {
	var binding model.Binding
	err := r.db.GetContext(ctx, &binding, `
		INSERT INTO bindings (integration_id, provider, provider_number_id, e164, agent_id, agent_config, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (e164) WHERE enabled = TRUE AND deleted_at IS NULL
		DO UPDATE SET
			integration_id = EXCLUDED.integration_id,
			provider = EXCLUDED.provider,
			provider_number_id = EXCLUDED.provider_number_id,
			agent_id = EXCLUDED.agent_id,
			agent_config = EXCLUDED.agent_config,
			updated_at = NOW()
		RETURNING *
	`, params.IntegrationID, params.Provider, params.ProviderNumberID, params.E164,
		params.AgentID, []byte(params.AgentConfig))
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *bindingRepo) FindEnabledByE164(ctx context.Context, e164 string) (*model.Binding, error) {
	var binding model.Binding
	err := r.db.GetContext(ctx, &binding, `
		SELECT * FROM bindings
		WHERE e164 = $1 AND enabled = TRUE AND deleted_at IS NULL
	`, e164)
	return HandleNotFound(&binding, err)
}

func (r *bindingRepo) FindByID(ctx context.Context, id string) (*model.Binding, error) {
	var binding model.Binding
	err := r.db.GetContext(ctx, &binding, `
		SELECT * FROM bindings WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&binding, err)
}

func (r *bindingRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Binding, error) {
	var bindings []model.Binding
	err := r.db.SelectContext(ctx, &bindings, `
		SELECT * FROM bindings
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *bindingRepo) FindByIntegrationID(ctx context.Context, integrationID string) ([]model.Binding, error) {
	var bindings []model.Binding
	err := r.db.SelectContext(ctx, &bindings, `
		SELECT * FROM bindings
		WHERE integration_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`, integrationID)
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *bindingRepo) Disable(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bindings SET enabled = FALSE, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())
	return err
}

func (r *bindingRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bindings SET enabled = FALSE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())
	return err
}

func (r *bindingRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM bindings WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
