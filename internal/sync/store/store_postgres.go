package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"attest/internal/platform/postgres"
	"attest/internal/sync/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// Postgres persists sync metadata. Execute serializes finishers per
// application with SELECT ... FOR UPDATE; the lease already serializes
// attempts, the row lock guards the read-modify-write itself.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create inserts the initial metadata row. A missing application surfaces as
// ErrNotFound, an existing row as ErrConflict.
func (p *Postgres) Create(ctx context.Context, m *models.Metadata) error {
	if err := m.Validate(); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sync_state (application_id, status, frequency, in_flight, lease_token, last_attempt_at, last_success_at, errors, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ApplicationID.String(), m.Status.String(), m.Frequency.String(), m.InFlight, m.LeaseToken,
		nullableTime(m.LastSyncAttempt), nullableTime(m.LastSuccessfulSync), pq.Array(m.Errors), m.UpdatedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return sentinel.ErrConflict
		case postgres.IsForeignKeyViolation(err):
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("create sync state: %w", err)
	}
	return nil
}

func (p *Postgres) FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error) {
	row := p.db.QueryRowContext(ctx, selectMetadata+` WHERE application_id = $1`, appID.String())
	m, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sync state: %w", err)
	}
	return m, nil
}

// List returns all metadata ordered by application ID.
func (p *Postgres) List(ctx context.Context) ([]*models.Metadata, error) {
	rows, err := p.db.QueryContext(ctx, selectMetadata+` ORDER BY application_id`)
	if err != nil {
		return nil, fmt.Errorf("list sync state: %w", err)
	}
	defer rows.Close()

	var out []*models.Metadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync state: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Execute runs validate-then-mutate inside a transaction that holds the row
// lock.
func (p *Postgres) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Metadata) error, mutate func(*models.Metadata)) (*models.Metadata, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync state update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, selectMetadata+` WHERE application_id = $1 FOR UPDATE`, appID.String())
	m, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock sync state: %w", err)
	}

	if validate != nil {
		if err := validate(m); err != nil {
			return nil, err
		}
	}
	mutate(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sync_state
		SET status = $2, frequency = $3, in_flight = $4, lease_token = $5, last_attempt_at = $6, last_success_at = $7, errors = $8, updated_at = $9
		WHERE application_id = $1
	`, m.ApplicationID.String(), m.Status.String(), m.Frequency.String(), m.InFlight, m.LeaseToken,
		nullableTime(m.LastSyncAttempt), nullableTime(m.LastSuccessfulSync), pq.Array(m.Errors), m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync state update: %w", err)
	}
	return m, nil
}

func (p *Postgres) Delete(ctx context.Context, appID id.ApplicationID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sync_state WHERE application_id = $1`, appID.String())
	if err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectMetadata = `
	SELECT application_id, status, frequency, in_flight, lease_token, last_attempt_at, last_success_at, errors, updated_at
	FROM sync_state`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*models.Metadata, error) {
	var (
		m         models.Metadata
		rawID     string
		status    string
		frequency string
		attempt   sql.NullTime
		success   sql.NullTime
		errs      []string
	)
	if err := row.Scan(&rawID, &status, &frequency, &m.InFlight, &m.LeaseToken, &attempt, &success,
		pq.Array(&errs), &m.UpdatedAt); err != nil {
		return nil, err
	}

	appID, err := id.ParseApplicationID(rawID)
	if err != nil {
		return nil, err
	}
	m.ApplicationID = appID
	m.Status = models.SyncStatus(status)
	m.Frequency = models.Frequency(frequency)
	if attempt.Valid {
		t := attempt.Time
		m.LastSyncAttempt = &t
	}
	if success.Valid {
		t := success.Time
		m.LastSuccessfulSync = &t
	}
	m.Errors = errs
	return &m, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
