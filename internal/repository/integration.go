package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voicebridge/telephony-relay-go/internal/model"
)

// IntegrationRepository persists provider credential sets and the provider
// resource cache. Rows are soft-deleted; lookups exclude deleted rows.
//
// Schema (logical): UNIQUE (provider, credential_fingerprint) WHERE
// deleted_at IS NULL.
type IntegrationRepository interface {
	Create(ctx context.Context, params model.CreateIntegrationParams) (*model.Integration, error)
	FindByID(ctx context.Context, id string) (*model.Integration, error)
	FindByFingerprint(ctx context.Context, provider model.Provider, fingerprint string) (*model.Integration, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.Integration, error)
	UpdateResources(ctx context.Context, id string, resources model.ResourceMap) (*model.Integration, error)
	UpdateStatus(ctx context.Context, id string, status model.IntegrationStatus) (*model.Integration, error)
	SoftDelete(ctx context.Context, id string) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) IntegrationRepository
}

type integrationRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewIntegrationRepository(db *sqlx.DB) IntegrationRepository {
	return &integrationRepo{db: db}
}

func (r *integrationRepo) WithTx(tx *sqlx.Tx) IntegrationRepository {
	return &integrationRepo{db: tx}
}

func (r *integrationRepo) Create(ctx context.Context, params model.CreateIntegrationParams) (*model.Integration, error) {
	resources := params.ProviderResources
	if resources == nil {
		resources = model.ResourceMap{}
	}
	var integration model.Integration
	err := r.db.GetContext(ctx, &integration, `
		INSERT INTO integrations (provider, name, encrypted_credential, credential_fingerprint, status, provider_resources)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.Provider, params.Name, params.EncryptedCredential, params.CredentialFingerprint,
		model.IntegrationStatusActive, resources)
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepo) FindByID(ctx context.Context, id string) (*model.Integration, error) {
	var integration model.Integration
	err := r.db.GetContext(ctx, &integration, `
		SELECT * FROM integrations WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return HandleNotFound(&integration, err)
}

func (r *integrationRepo) FindByFingerprint(ctx context.Context, provider model.Provider, fingerprint string) (*model.Integration, error) {
	var integration model.Integration
	err := r.db.GetContext(ctx, &integration, `
		SELECT * FROM integrations
		WHERE provider = $1 AND credential_fingerprint = $2 AND deleted_at IS NULL
	`, provider, fingerprint)
	return HandleNotFound(&integration, err)
}

func (r *integrationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Integration, error) {
	var integrations []model.Integration
	err := r.db.SelectContext(ctx, &integrations, `
		SELECT * FROM integrations
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

func (r *integrationRepo) UpdateResources(ctx context.Context, id string, resources model.ResourceMap) (*model.Integration, error) {
	var integration model.Integration
	err := r.db.GetContext(ctx, &integration, `
		UPDATE integrations SET
			provider_resources = $2,
			updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, resources, time.Now())
	return HandleNotFound(&integration, err)
}

func (r *integrationRepo) UpdateStatus(ctx context.Context, id string, status model.IntegrationStatus) (*model.Integration, error) {
	var integration model.Integration
	err := r.db.GetContext(ctx, &integration, `
		UPDATE integrations SET
			status = $2,
			updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *
	`, id, status, time.Now())
	return HandleNotFound(&integration, err)
}

func (r *integrationRepo) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE integrations SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())
	return err
}

func (r *integrationRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM integrations WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
