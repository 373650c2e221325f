package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"attest/internal/application/models"
	"attest/internal/platform/postgres"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// Postgres persists applications. Execute serializes writers per application
// with SELECT ... FOR UPDATE.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// CreateIfNameAvailable inserts the application. The unique index on
// lower(name) surfaces duplicates as ErrAlreadyUsed.
func (p *Postgres) CreateIfNameAvailable(ctx context.Context, app *models.Application) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO applications (id, name, sync_mode, criticality, requirement_ids, version, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, app.ID.String(), app.Name, string(app.SyncMode), string(app.Criticality),
		pq.Array(requirementIDStrings(app.RequirementIDs)), app.Version, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := p.db.QueryRowContext(ctx, selectApplication+` WHERE id = $1`, appID.String())
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (p *Postgres) FindByName(ctx context.Context, name string) (*models.Application, error) {
	row := p.db.QueryRowContext(ctx, selectApplication+` WHERE lower(name) = lower($1)`, name)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application by name: %w", err)
	}
	return app, nil
}

// List returns all applications ordered by name.
func (p *Postgres) List(ctx context.Context) ([]*models.Application, error) {
	rows, err := p.db.QueryContext(ctx, selectApplication+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// Execute runs validate-then-mutate inside a transaction that holds the row
// lock, so no concurrent writer can interleave between the check and the
// write.
func (p *Postgres) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin application update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, selectApplication+` WHERE id = $1 FOR UPDATE`, appID.String())
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock application: %w", err)
	}

	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)
	app.Version++

	_, err = tx.ExecContext(ctx, `
		UPDATE applications
		SET name = $2, sync_mode = $3, criticality = $4, requirement_ids = $5, version = $6, updated_at = $7
		WHERE id = $1
	`, app.ID.String(), app.Name, string(app.SyncMode), string(app.Criticality),
		pq.Array(requirementIDStrings(app.RequirementIDs)), app.Version, app.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit application update: %w", err)
	}
	return app, nil
}

// Delete removes the application row. ON DELETE CASCADE clears its sync
// state and fulfillments in the same statement.
func (p *Postgres) Delete(ctx context.Context, appID id.ApplicationID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, appID.String())
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectApplication = `
	SELECT id, name, sync_mode, criticality, requirement_ids, version, registered_at, updated_at
	FROM applications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app     models.Application
		rawID   string
		mode    string
		crit    string
		rawReqs []string
	)
	if err := row.Scan(&rawID, &app.Name, &mode, &crit, pq.Array(&rawReqs),
		&app.Version, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}

	appID, err := id.ParseApplicationID(rawID)
	if err != nil {
		return nil, err
	}
	app.ID = appID

	syncMode, err := id.ParseSyncMode(mode)
	if err != nil {
		return nil, err
	}
	app.SyncMode = syncMode

	criticality, err := id.ParseCriticality(crit)
	if err != nil {
		return nil, err
	}
	app.Criticality = criticality

	app.RequirementIDs = make([]id.RequirementID, 0, len(rawReqs))
	for _, raw := range rawReqs {
		reqID, err := id.ParseRequirementID(raw)
		if err != nil {
			return nil, err
		}
		app.RequirementIDs = append(app.RequirementIDs, reqID)
	}
	return &app, nil
}

func requirementIDStrings(ids []id.RequirementID) []string {
	out := make([]string, len(ids))
	for i, reqID := range ids {
		out[i] = reqID.String()
	}
	return out
}
