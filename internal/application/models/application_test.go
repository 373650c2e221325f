package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

func TestNewApplication(t *testing.T) {
	now := time.Now()
	appID := id.ApplicationID(uuid.New())
	reqA := id.RequirementID(uuid.New())
	reqB := id.RequirementID(uuid.New())

	t.Run("applies defaults and dedupes requirements", func(t *testing.T) {
		app, err := NewApplication(appID, "  billing-api  ", "", "", []id.RequirementID{reqA, reqB, reqA}, now)
		require.NoError(t, err)

		assert.Equal(t, "billing-api", app.Name)
		assert.Equal(t, id.CriticalityMedium, app.Criticality)
		assert.Equal(t, id.SyncModeManual, app.SyncMode)
		assert.Equal(t, []id.RequirementID{reqA, reqB}, app.RequirementIDs)
		assert.False(t, app.IsProviderSynced())
	})

	t.Run("rejects empty and oversized names", func(t *testing.T) {
		_, err := NewApplication(appID, "   ", "", "", nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewApplication(appID, strings.Repeat("x", 129), "", "", nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects invalid enums", func(t *testing.T) {
		_, err := NewApplication(appID, "app", id.Criticality("urgent"), "", nil, now)
		require.Error(t, err)

		_, err = NewApplication(appID, "app", "", id.SyncMode("auto"), nil, now)
		require.Error(t, err)
	})
}

func TestApplication_SyncModeChange(t *testing.T) {
	now := time.Now()
	app, err := NewApplication(id.ApplicationID(uuid.New()), "app", "", id.SyncModeManual, nil, now)
	require.NoError(t, err)

	t.Run("rejects no-op transition", func(t *testing.T) {
		err := app.CanChangeSyncMode(id.SyncModeManual)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects invalid target", func(t *testing.T) {
		require.Error(t, app.CanChangeSyncMode(id.SyncMode("auto")))
	})

	t.Run("applies valid transition", func(t *testing.T) {
		require.NoError(t, app.CanChangeSyncMode(id.SyncModeProvider))

		later := now.Add(time.Minute)
		app.ApplySyncModeChange(id.SyncModeProvider, later)

		assert.True(t, app.IsProviderSynced())
		assert.Equal(t, later, app.UpdatedAt)
		assert.Equal(t, now, app.CreatedAt)
	})
}

func TestApplication_HasRequirement(t *testing.T) {
	reqA := id.RequirementID(uuid.New())
	app, err := NewApplication(id.ApplicationID(uuid.New()), "app", "", "", []id.RequirementID{reqA}, time.Now())
	require.NoError(t, err)

	assert.True(t, app.HasRequirement(reqA))
	assert.False(t, app.HasRequirement(id.RequirementID(uuid.New())))
}
