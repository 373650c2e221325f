package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

func newRecord(t *testing.T, appID id.ApplicationID, reqID id.RequirementID) *models.Fulfillment {
	t.Helper()
	rec, err := models.NewFromFinding(appID, models.AutoFinding{
		RequirementID: reqID,
		Status:        id.StatusFulfilled,
		Confidence:    id.ConfidenceHigh,
		Evidence:      "encryption enabled",
		Source:        "azure-defender",
		ObservedAt:    time.Now(),
	}, time.Now())
	require.NoError(t, err)
	return rec
}

func TestInMemoryExecuteUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	t.Run("create when no record exists", func(t *testing.T) {
		rec, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
			require.Nil(t, current)
			return newRecord(t, appID, reqID), nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)
	})

	t.Run("update bumps the version", func(t *testing.T) {
		rec, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
			require.NotNil(t, current)
			current.ApplyManualEdit(models.ManualEdit{
				Status: id.StatusNotApplicable,
				Editor: "casey@example.com",
			}, time.Now())
			return current, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
		assert.Equal(t, id.StatusNotApplicable, rec.Status)
	})

	t.Run("callback error discards the write", func(t *testing.T) {
		_, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
			current.Status = id.StatusNotFulfilled
			return nil, dErrors.New(dErrors.CodeConflict, "rejected")
		})
		require.Error(t, err)

		rec, err := s.Get(ctx, appID, reqID)
		require.NoError(t, err)
		assert.Equal(t, id.StatusNotApplicable, rec.Status)
		assert.Equal(t, int64(2), rec.Version)
	})

	t.Run("invalid record is not committed", func(t *testing.T) {
		_, err := s.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
			current.Status = "definitely-not-a-status"
			return current, nil
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestInMemoryGetAndCloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	_, err := s.Execute(ctx, appID, reqID, func(*models.Fulfillment) (*models.Fulfillment, error) {
		return newRecord(t, appID, reqID), nil
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, appID, id.RequirementID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	rec, err := s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	rec.Status = id.StatusNotFulfilled
	rec.Automated.Status = id.StatusNotFulfilled

	fresh, err := s.Get(ctx, appID, reqID)
	require.NoError(t, err)
	assert.Equal(t, id.StatusFulfilled, fresh.Status, "mutating a returned record does not touch the store")
	assert.Equal(t, id.StatusFulfilled, fresh.Automated.Status)
}

func TestInMemoryPerPairSerialization(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	const writers = 32
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
	assert.Equal(t, int64(writers), rec.Version, "every writer serialized through the pair lock")
}

func TestInMemoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	appID := id.ApplicationID(uuid.New())
	other := id.ApplicationID(uuid.New())

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
		assert.Less(t, list[i-1].RequirementID.String(), list[i].RequirementID.String(), "ordered by requirement id")
	}

	purged, err := s.DeleteByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	list, err = s.ListByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The other application's record survives the purge.
	_, err = s.Get(ctx, other, reqs[0])
	require.NoError(t, err)

	purged, err = s.DeleteByApplication(ctx, appID)
	require.NoError(t, err)
	assert.Zero(t, purged)
}
