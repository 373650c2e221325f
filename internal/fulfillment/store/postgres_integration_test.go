//go:build integration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmodels "attest/internal/application/models"
	appstore "attest/internal/application/store"
	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil/containers"
)

// registerApplication inserts the parent row fulfillments reference.
func registerApplication(t *testing.T, db *sql.DB) id.ApplicationID {
	t.Helper()
	appID := id.ApplicationID(uuid.New())
	app, err := appmodels.NewApplication(appID, "itest-"+appID.String(),
		id.CriticalityMedium, id.SyncModeProvider, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, appstore.NewPostgres(db).CreateIfNameAvailable(context.Background(), app))
	return appID
}

func TestPostgresExecuteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := registerApplication(t, db)
	reqID := id.RequirementID(uuid.New())

	observed := time.Now().Add(-time.Hour)
	created, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		require.Nil(t, current)
		return models.NewFromFinding(appID, models.AutoFinding{
			RequirementID: reqID,
			Status:        id.StatusFulfilled,
			Confidence:    id.ConfidenceHigh,
			Evidence:      "tls enforced on all listeners",
			Source:        "aws-config",
			ObservedAt:    observed,
		}, time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	rec, err := s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	assert.Equal(t, appID, rec.ApplicationID)
	assert.Equal(t, reqID, rec.RequirementID)
	assert.Equal(t, id.StatusFulfilled, rec.Status)
	assert.Equal(t, "tls enforced on all listeners", rec.Evidence)
	assert.Equal(t, models.SystemActor, rec.LastModifiedBy)
	require.NotNil(t, rec.Automated)
	assert.Equal(t, id.ConfidenceHigh, rec.Automated.Confidence)
	assert.Equal(t, "aws-config", rec.Automated.Source)
	assert.WithinDuration(t, observed, rec.Automated.ObservedAt, time.Second)
	assert.Nil(t, rec.Override)

	// A manual edit persists the override columns alongside the shadow.
	edited, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		require.NotNil(t, current)
		current.ApplyManualEdit(models.ManualEdit{
			Status:        id.StatusNotApplicable,
			Justification: "requirement covered by the hosting provider",
			Editor:        "casey@example.com",
		}, time.Now())
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), edited.Version)

	rec, err = s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	assert.Equal(t, id.StatusNotApplicable, rec.Status)
	assert.Equal(t, "requirement covered by the hosting provider", rec.Justification)
	require.NotNil(t, rec.Override)
	assert.Equal(t, "casey@example.com", rec.Override.By)
	require.NotNil(t, rec.Automated, "the shadow survives the override")
	assert.Equal(t, id.StatusFulfilled, rec.Automated.Status)
}

func TestPostgresExecuteDiscardsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := registerApplication(t, db)
	reqID := id.RequirementID(uuid.New())

	_, err := s.Execute(ctx, appID, reqID, func(*models.Fulfillment) (*models.Fulfillment, error) {
		return newRecord(t, appID, reqID), nil
	})
	require.NoError(t, err)

	_, err = s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		current.Status = id.StatusNotFulfilled
		return nil, sentinel.ErrConflict
	})
	require.Error(t, err)

	rec, err := s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	assert.Equal(t, id.StatusFulfilled, rec.Status, "rolled back")
	assert.Equal(t, int64(1), rec.Version)
}

func TestPostgresExecuteUnknownApplication(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := id.ApplicationID(uuid.New()) // never registered
	reqID := id.RequirementID(uuid.New())

	_, err := s.Execute(ctx, appID, reqID, func(*models.Fulfillment) (*models.Fulfillment, error) {
		return newRecord(t, appID, reqID), nil
	})
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "foreign key rejects orphan fulfillments")
}

func TestPostgresGetNotFound(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := registerApplication(t, db)

	_, err := s.Get(ctx, appID, id.RequirementID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresConcurrentWritersSerialize(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := registerApplication(t, db)
	reqID := id.RequirementID(uuid.New())

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
				if current == nil {
					return models.NewFromFinding(appID, models.AutoFinding{
						RequirementID: reqID,
						Status:        id.StatusFulfilled,
						Confidence:    id.ConfidenceHigh,
						Source:        "azure-defender",
						ObservedAt:    time.Now(),
					}, time.Now())
				}
				current.ApplyManualEdit(models.ManualEdit{
					Status: id.StatusPartiallyFulfilled,
					Editor: fmt.Sprintf("reviewer-%d@example.com", i),
				}, time.Now())
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), rec.Version, "row lock serialized every writer, insert race included")
}

func TestPostgresListAndDelete(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := NewPostgres(db)
	appID := registerApplication(t, db)
	other := registerApplication(t, db)

	reqs := []id.RequirementID{
		id.RequirementID(uuid.New()),
		id.RequirementID(uuid.New()),
		id.RequirementID(uuid.New()),
	}
	for _, reqID := range reqs {
		_, err := s.Execute(ctx, appID, reqID, func(*models.Fulfillment) (*models.Fulfillment, error) {
			return newRecord(t, appID, reqID), nil
		})
		require.NoError(t, err)
	}
	_, err := s.Execute(ctx, other, reqs[0], func(*models.Fulfillment) (*models.Fulfillment, error) {
		return newRecord(t, other, reqs[0]), nil
	})
	require.NoError(t, err)

	list, err := s.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].RequirementID.String(), list[i].RequirementID.String())
	}

	purged, err := s.DeleteByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	list, err = s.ListByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Get(ctx, other, reqs[0])
	require.NoError(t, err, "other application's record survives the purge")
}
