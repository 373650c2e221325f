package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/application/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

func newApplication(t *testing.T, name string) *models.Application {
	t.Helper()
	app, err := models.NewApplication(id.ApplicationID(uuid.New()), name, "", "",
		[]id.RequirementID{id.RequirementID(uuid.New())}, time.Now())
	require.NoError(t, err)
	return app
}

func TestInMemoryNameUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	require.NoError(t, s.CreateIfNameAvailable(ctx, newApplication(t, "Billing-API")))

	err := s.CreateIfNameAvailable(ctx, newApplication(t, "billing-api"))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed, "name collision is case-insensitive")

	byName, err := s.FindByName(ctx, "BILLING-API")
	require.NoError(t, err)
	assert.Equal(t, "Billing-API", byName.Name)
}

func TestInMemoryExecuteBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	app := newApplication(t, "orders")
	require.NoError(t, s.CreateIfNameAvailable(ctx, app))

	updated, err := s.Execute(ctx, app.ID, nil, func(a *models.Application) {
		a.ApplySyncModeChange(id.SyncModeProvider, time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, id.SyncModeProvider, updated.SyncMode)

	t.Run("validate failure leaves the record untouched", func(t *testing.T) {
		_, err := s.Execute(ctx, app.ID,
			func(*models.Application) error { return dErrors.New(dErrors.CodeConflict, "nope") },
			func(a *models.Application) { a.Name = "mutated" },
		)
		require.Error(t, err)

		current, err := s.FindByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "orders", current.Name)
		assert.Equal(t, int64(2), current.Version)
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := s.Execute(ctx, id.ApplicationID(uuid.New()), nil, func(*models.Application) {})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryCloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	app := newApplication(t, "orders")
	require.NoError(t, s.CreateIfNameAvailable(ctx, app))

	got, err := s.FindByID(ctx, app.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.RequirementIDs[0] = id.RequirementID(uuid.New())

	fresh, err := s.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", fresh.Name)
	assert.Equal(t, app.RequirementIDs, fresh.RequirementIDs)
}

func TestInMemoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.CreateIfNameAvailable(ctx, newApplication(t, "billing")))
	require.NoError(t, s.CreateIfNameAvailable(ctx, newApplication(t, "auth")))

	apps, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "auth", apps[0].Name)
	assert.Equal(t, "billing", apps[1].Name)

	require.NoError(t, s.Delete(ctx, apps[0].ID))
	assert.ErrorIs(t, s.Delete(ctx, apps[0].ID), sentinel.ErrNotFound)
}
