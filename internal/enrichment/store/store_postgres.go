package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civicledger/internal/enrichment/models"
	"civicledger/pkg/platform/sentinel"
)

// Schema is applied by EnsureSchema; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS applicants (
	id UUID PRIMARY KEY,
	wallet_address TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS applicants_wallet_idx ON applicants (lower(wallet_address));

CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	request_id TEXT NOT NULL,
	service_id TEXT NOT NULL,
	service_type TEXT NOT NULL,
	wallet_address TEXT NOT NULL,
	applicant_name TEXT NOT NULL,
	blockchain_ref TEXT NOT NULL DEFAULT '',
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_request_idx ON applications (request_id);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	applicant_id UUID NOT NULL REFERENCES applicants (id),
	application_id UUID NOT NULL REFERENCES applications (id),
	document_type TEXT NOT NULL,
	document_url TEXT NOT NULL UNIQUE,
	file_type TEXT NOT NULL DEFAULT '',
	file_extension TEXT NOT NULL DEFAULT '',
	size BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const uniqueViolation = "23505"

// PostgresStore persists enrichment in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure enrichment schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOrCreateApplicant(ctx context.Context, wallet string, now time.Time) (*models.Applicant, error) {
	query := `
		INSERT INTO applicants (id, wallet_address, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(wallet_address)) DO UPDATE SET wallet_address = applicants.wallet_address
		RETURNING id, wallet_address, name, email, created_at
	`
	var a models.Applicant
	err := s.db.QueryRowContext(ctx, query, uuid.New(), wallet, now).
		Scan(&a.ID, &a.WalletAddress, &a.Name, &a.Email, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create applicant: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.Application) error {
	data, err := json.Marshal(app.Data)
	if err != nil {
		return fmt.Errorf("marshal application data: %w", err)
	}
	query := `
		INSERT INTO applications (id, request_id, service_id, service_type, wallet_address,
			applicant_name, blockchain_ref, data, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		app.ID, app.RequestID, app.ServiceID, app.ServiceType, app.WalletAddress,
		app.ApplicantName, app.BlockchainRef, data, string(app.Status), app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// AddDocuments inserts every document in one transaction; either all are
// stored or none are.
func (s *PostgresStore) AddDocuments(ctx context.Context, appID uuid.UUID, docs []models.Document, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE applications SET updated_at = $2 WHERE id = $1`, appID, now)
	if err != nil {
		return fmt.Errorf("touch application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}

	query := `
		INSERT INTO documents (id, applicant_id, application_id, document_type, document_url,
			file_type, file_extension, size, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, d := range docs {
		_, err := tx.ExecContext(ctx, query,
			d.ID, d.ApplicantID, appID, d.DocumentType, d.DocumentURL,
			d.FileType, d.FileExtension, d.Size, string(d.Status), d.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListApplications(ctx context.Context) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, service_id, service_type, wallet_address, applicant_name,
			blockchain_ref, data, status, created_at, updated_at
		FROM applications
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
		ids = append(ids, app.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	if len(apps) == 0 {
		return apps, nil
	}

	refs, err := s.documentRefs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		apps[i].Documents = refs[apps[i].ID]
	}
	return apps, nil
}

func (s *PostgresStore) FindDocumentByURL(ctx context.Context, url string) (*models.DocumentDetails, error) {
	var (
		d      models.Document
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, applicant_id, application_id, document_type, document_url,
			file_type, file_extension, size, status, created_at
		FROM documents WHERE document_url = $1
	`, url).Scan(&d.ID, &d.ApplicantID, &d.ApplicationID, &d.DocumentType, &d.DocumentURL,
		&d.FileType, &d.FileExtension, &d.Size, &status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document by url: %w", err)
	}
	d.Status = models.DocumentStatus(status)
	details := &models.DocumentDetails{Document: d}

	var a models.Applicant
	err = s.db.QueryRowContext(ctx,
		`SELECT id, wallet_address, name, email, created_at FROM applicants WHERE id = $1`, d.ApplicantID,
	).Scan(&a.ID, &a.WalletAddress, &a.Name, &a.Email, &a.CreatedAt)
	switch {
	case err == nil:
		details.Applicant = &a
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("load applicant: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, service_id, service_type, wallet_address, applicant_name,
			blockchain_ref, data, status, created_at, updated_at
		FROM applications WHERE id = $1
	`, d.ApplicationID)
	app, err := scanApplication(row)
	switch {
	case err == nil:
		refs, err := s.documentRefs(ctx, []uuid.UUID{app.ID})
		if err != nil {
			return nil, err
		}
		app.Documents = refs[app.ID]
		details.Application = app
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}
	return details, nil
}

func (s *PostgresStore) documentRefs(ctx context.Context, appIDs []uuid.UUID) (map[uuid.UUID][]models.DocumentRef, error) {
	keys := make([]string, len(appIDs))
	for i, id := range appIDs {
		keys[i] = id.String()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT application_id, document_type, document_url, status
		FROM documents WHERE application_id = ANY($1::uuid[])
		ORDER BY created_at ASC
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("list document refs: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]models.DocumentRef)
	for rows.Next() {
		var (
			appID  uuid.UUID
			ref    models.DocumentRef
			status string
		)
		if err := rows.Scan(&appID, &ref.DocumentType, &ref.URL, &status); err != nil {
			return nil, fmt.Errorf("scan document ref: %w", err)
		}
		ref.Status = models.DocumentStatus(status)
		out[appID] = append(out[appID], ref)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app    models.Application
		data   []byte
		status string
	)
	err := row.Scan(&app.ID, &app.RequestID, &app.ServiceID, &app.ServiceType, &app.WalletAddress,
		&app.ApplicantName, &app.BlockchainRef, &data, &status, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.Status = models.ApplicationStatus(status)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &app.Data); err != nil {
			return nil, fmt.Errorf("unmarshal application data: %w", err)
		}
	}
	return &app, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key")
}
