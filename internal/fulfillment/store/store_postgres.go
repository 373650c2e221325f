package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attest/internal/fulfillment/models"
	"attest/internal/platform/postgres"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// Postgres persists fulfillment records. Execute serializes writers to the
// same (application, requirement) pair with SELECT ... FOR UPDATE; two
// creators racing for a pair that does not exist yet resolve through one
// retry against the primary key.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Execute runs fn against the current record inside a transaction that holds
// the pair's row lock. fn receives nil when no record exists yet and returns
// the record to persist; returning an error discards the write.
func (p *Postgres) Execute(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID, fn func(current *models.Fulfillment) (*models.Fulfillment, error)) (*models.Fulfillment, error) {
	rec, err := p.execute(ctx, appID, reqID, fn)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost the insert race for a new pair; the row exists now, so the
		// retry goes through the row-lock path.
		rec, err = p.execute(ctx, appID, reqID, fn)
	}
	return rec, err
}

func (p *Postgres) execute(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID, fn func(current *models.Fulfillment) (*models.Fulfillment, error)) (*models.Fulfillment, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin fulfillment update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, selectFulfillment+` WHERE application_id = $1 AND requirement_id = $2 FOR UPDATE`,
		appID.String(), reqID.String())
	current, err := scanFulfillment(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock fulfillment: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("execute returned no record: %w", sentinel.ErrInvalidState)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if current == nil {
		if next.Version == 0 {
			next.Version = 1
		}
		if err := insertFulfillment(ctx, tx, next); err != nil {
			return nil, err
		}
	} else {
		next.Version = current.Version + 1
		if err := updateFulfillment(ctx, tx, next, current.Version); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fulfillment update: %w", err)
	}
	return next, nil
}

func (p *Postgres) Get(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error) {
	row := p.db.QueryRowContext(ctx, selectFulfillment+` WHERE application_id = $1 AND requirement_id = $2`,
		appID.String(), reqID.String())
	rec, err := scanFulfillment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find fulfillment: %w", err)
	}
	return rec, nil
}

// ListByApplication returns the application's records ordered by requirement
// ID.
func (p *Postgres) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.Fulfillment, error) {
	rows, err := p.db.QueryContext(ctx, selectFulfillment+` WHERE application_id = $1 ORDER BY requirement_id`,
		appID.String())
	if err != nil {
		return nil, fmt.Errorf("list fulfillments: %w", err)
	}
	defer rows.Close()

	var out []*models.Fulfillment
	for rows.Next() {
		rec, err := scanFulfillment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fulfillment: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteByApplication removes every record for the application and reports
// how many were purged.
func (p *Postgres) DeleteByApplication(ctx context.Context, appID id.ApplicationID) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM fulfillments WHERE application_id = $1`, appID.String())
	if err != nil {
		return 0, fmt.Errorf("delete fulfillments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete fulfillments: %w", err)
	}
	return int(affected), nil
}

func insertFulfillment(ctx context.Context, tx *sql.Tx, f *models.Fulfillment) error {
	autoStatus, autoConfidence, autoSource, autoObservedAt := automatedColumns(f)
	overrideBy, overrideAt := overrideColumns(f)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fulfillments (application_id, requirement_id, status, evidence, justification,
			auto_status, auto_confidence, auto_source, auto_observed_at,
			override_by, override_at, responsible_party, last_modified_by, last_assessed_at,
			version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, f.ApplicationID.String(), f.RequirementID.String(), f.Status.String(), f.Evidence, f.Justification,
		autoStatus, autoConfidence, autoSource, autoObservedAt,
		overrideBy, overrideAt, f.ResponsibleParty, f.LastModifiedBy, nullableTime(f.LastAssessedAt),
		f.Version, f.CreatedAt, f.LastModifiedAt)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return sentinel.ErrConflict
		case postgres.IsForeignKeyViolation(err):
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("create fulfillment: %w", err)
	}
	return nil
}

func updateFulfillment(ctx context.Context, tx *sql.Tx, f *models.Fulfillment, expectedVersion int64) error {
	autoStatus, autoConfidence, autoSource, autoObservedAt := automatedColumns(f)
	overrideBy, overrideAt := overrideColumns(f)
	res, err := tx.ExecContext(ctx, `
		UPDATE fulfillments
		SET status = $3, evidence = $4, justification = $5,
			auto_status = $6, auto_confidence = $7, auto_source = $8, auto_observed_at = $9,
			override_by = $10, override_at = $11, responsible_party = $12,
			last_modified_by = $13, last_assessed_at = $14, version = $15, updated_at = $16
		WHERE application_id = $1 AND requirement_id = $2 AND version = $17
	`, f.ApplicationID.String(), f.RequirementID.String(), f.Status.String(), f.Evidence, f.Justification,
		autoStatus, autoConfidence, autoSource, autoObservedAt,
		overrideBy, overrideAt, f.ResponsibleParty,
		f.LastModifiedBy, nullableTime(f.LastAssessedAt), f.Version, f.LastModifiedAt,
		expectedVersion)
	if err != nil {
		return fmt.Errorf("update fulfillment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fulfillment: %w", err)
	}
	// The row lock makes drift impossible for store callers; the version
	// predicate guards writers that bypass it.
	if affected == 0 {
		return sentinel.ErrVersionMismatch
	}
	return nil
}

const selectFulfillment = `
	SELECT application_id, requirement_id, status, evidence, justification,
		auto_status, auto_confidence, auto_source, auto_observed_at,
		override_by, override_at, responsible_party, last_modified_by, last_assessed_at,
		version, created_at, updated_at
	FROM fulfillments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFulfillment(row rowScanner) (*models.Fulfillment, error) {
	var (
		f              models.Fulfillment
		rawAppID       string
		rawReqID       string
		status         string
		autoStatus     sql.NullString
		autoConfidence sql.NullString
		autoSource     sql.NullString
		autoObservedAt sql.NullTime
		overrideBy     sql.NullString
		overrideAt     sql.NullTime
		assessedAt     sql.NullTime
	)
	if err := row.Scan(&rawAppID, &rawReqID, &status, &f.Evidence, &f.Justification,
		&autoStatus, &autoConfidence, &autoSource, &autoObservedAt,
		&overrideBy, &overrideAt, &f.ResponsibleParty, &f.LastModifiedBy, &assessedAt,
		&f.Version, &f.CreatedAt, &f.LastModifiedAt); err != nil {
		return nil, err
	}

	appID, err := id.ParseApplicationID(rawAppID)
	if err != nil {
		return nil, err
	}
	f.ApplicationID = appID

	reqID, err := id.ParseRequirementID(rawReqID)
	if err != nil {
		return nil, err
	}
	f.RequirementID = reqID

	st, err := id.ParseFulfillmentStatus(status)
	if err != nil {
		return nil, err
	}
	f.Status = st

	if autoStatus.Valid {
		answerStatus, err := id.ParseFulfillmentStatus(autoStatus.String)
		if err != nil {
			return nil, err
		}
		confidence, err := id.ParseConfidenceLevel(autoConfidence.String)
		if err != nil {
			return nil, err
		}
		f.Automated = &models.AutomatedAnswer{
			Status:     answerStatus,
			Confidence: confidence,
			Source:     autoSource.String,
			ObservedAt: autoObservedAt.Time,
		}
	}
	if overrideBy.Valid {
		f.Override = &models.Override{By: overrideBy.String, At: overrideAt.Time}
	}
	if assessedAt.Valid {
		f.LastAssessedAt = assessedAt.Time
	}
	return &f, nil
}

func automatedColumns(f *models.Fulfillment) (status, confidence, source, observedAt any) {
	if f.Automated == nil {
		return nil, nil, nil, nil
	}
	return f.Automated.Status.String(), string(f.Automated.Confidence), f.Automated.Source, f.Automated.ObservedAt
}

func overrideColumns(f *models.Fulfillment) (by, at any) {
	if f.Override == nil {
		return nil, nil
	}
	return f.Override.By, f.Override.At
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
