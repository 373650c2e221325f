package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"attest/internal/catalog/models"
	"attest/internal/platform/postgres"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// Postgres persists the catalog in the standards and requirements tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// PutStandard upserts a standard by ID so seed imports are repeatable.
func (p *Postgres) PutStandard(ctx context.Context, std models.Standard) error {
	if err := std.Validate(); err != nil {
		return err
	}
	if std.CreatedAt.IsZero() {
		std.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO standards (id, code, name, version, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			description = EXCLUDED.description
	`, std.ID.String(), std.Code, std.Name, std.Version, std.Description, std.CreatedAt)
	if err != nil {
		return fmt.Errorf("put standard: %w", err)
	}
	return nil
}

// PutRequirement upserts a requirement by ID. The referenced standard must
// already be present; the foreign key surfaces as ErrNotFound.
func (p *Postgres) PutRequirement(ctx context.Context, req models.Requirement) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO requirements (id, standard_id, code, title, description, criticality, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			standard_id = EXCLUDED.standard_id,
			code = EXCLUDED.code,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			criticality = EXCLUDED.criticality
	`, req.ID.String(), req.StandardID.String(), req.Code, req.Title, req.Description,
		string(req.Criticality), req.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("standard %s: %w", req.StandardID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("put requirement: %w", err)
	}
	return nil
}

func (p *Postgres) FindStandard(ctx context.Context, stdID id.StandardID) (*models.Standard, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, code, name, version, description, created_at
		FROM standards
		WHERE id = $1
	`, stdID.String())

	std, err := scanStandard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find standard: %w", err)
	}
	return std, nil
}

func (p *Postgres) ListStandards(ctx context.Context) ([]models.Standard, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, code, name, version, description, created_at
		FROM standards
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list standards: %w", err)
	}
	defer rows.Close()

	var out []models.Standard
	for rows.Next() {
		std, err := scanStandard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan standard: %w", err)
		}
		out = append(out, *std)
	}
	return out, rows.Err()
}

func (p *Postgres) FindRequirement(ctx context.Context, reqID id.RequirementID) (*models.Requirement, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, standard_id, code, title, description, criticality, created_at
		FROM requirements
		WHERE id = $1
	`, reqID.String())

	req, err := scanRequirement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find requirement: %w", err)
	}
	return req, nil
}

// ListByStandard returns a standard's requirements ordered by control code.
func (p *Postgres) ListByStandard(ctx context.Context, stdID id.StandardID) ([]models.Requirement, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, standard_id, code, title, description, criticality, created_at
		FROM requirements
		WHERE standard_id = $1
		ORDER BY code
	`, stdID.String())
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var out []models.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// MissingRequirements returns the subset of ids not present in the catalog,
// preserving input order.
func (p *Postgres) MissingRequirements(ctx context.Context, ids []id.RequirementID) ([]id.RequirementID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, reqID := range ids {
		raw[i] = reqID.String()
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id FROM requirements WHERE id = ANY($1)
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("check requirements: %w", err)
	}
	defer rows.Close()

	present := make(map[id.RequirementID]struct{}, len(ids))
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan requirement id: %w", err)
		}
		reqID, err := id.ParseRequirementID(s)
		if err != nil {
			return nil, fmt.Errorf("parse requirement id: %w", err)
		}
		present[reqID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []id.RequirementID
	for _, reqID := range ids {
		if _, ok := present[reqID]; !ok {
			missing = append(missing, reqID)
		}
	}
	return missing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStandard(row rowScanner) (*models.Standard, error) {
	var (
		std   models.Standard
		rawID string
	)
	if err := row.Scan(&rawID, &std.Code, &std.Name, &std.Version, &std.Description, &std.CreatedAt); err != nil {
		return nil, err
	}
	stdID, err := id.ParseStandardID(rawID)
	if err != nil {
		return nil, err
	}
	std.ID = stdID
	return &std, nil
}

func scanRequirement(row rowScanner) (*models.Requirement, error) {
	var (
		req            models.Requirement
		rawID          string
		rawStandardID  string
		rawCriticality string
	)
	if err := row.Scan(&rawID, &rawStandardID, &req.Code, &req.Title, &req.Description,
		&rawCriticality, &req.CreatedAt); err != nil {
		return nil, err
	}

	reqID, err := id.ParseRequirementID(rawID)
	if err != nil {
		return nil, err
	}
	stdID, err := id.ParseStandardID(rawStandardID)
	if err != nil {
		return nil, err
	}
	criticality, err := id.ParseCriticality(rawCriticality)
	if err != nil {
		return nil, err
	}

	req.ID = reqID
	req.StandardID = stdID
	req.Criticality = criticality
	return &req, nil
}
