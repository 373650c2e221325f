//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
	txcontext "attest/pkg/platform/tx"
	"attest/pkg/testutil/containers"
)

// drainOutbox marks every unpublished entry as relayed so a test starts from
// an empty outbox.
func drainOutbox(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for {
		entries, err := s.UnpublishedBatch(ctx, 100)
		require.NoError(t, err)
		if len(entries) == 0 {
			return
		}
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		require.NoError(t, s.MarkPublished(ctx, ids))
	}
}

func TestOutboxRelayContract(t *testing.T) {
	ctx := context.Background()
	s := New(containers.OpenPostgres(t))
	drainOutbox(t, s)

	appID := id.ApplicationID(uuid.New())
	events := []audit.Event{
		{
			Timestamp:     time.Now(),
			ApplicationID: appID,
			Action:        string(audit.EventManualEditApplied),
			Actor:         "casey@example.com",
			RequestID:     "req-1",
		},
		{
			Timestamp:     time.Now(),
			ApplicationID: appID,
			RequirementID: id.RequirementID(uuid.New()),
			Action:        string(audit.EventFindingApplied),
			Actor:         "system:sync",
			Source:        "aws-config",
			Decision:      "applied",
		},
		{
			Timestamp:     time.Now(),
			ApplicationID: appID,
			Action:        string(audit.EventSyncCompleted),
			Actor:         "system:sync",
		},
	}
	for _, e := range events {
		require.NoError(t, s.Append(ctx, e))
	}

	batch, err := s.UnpublishedBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// Entries come back in append order with the category derived from the
	// action and the application as partition key.
	assert.Equal(t, audit.CategoryCompliance, batch[0].Category)
	assert.Equal(t, string(audit.EventManualEditApplied), batch[0].EventType)
	assert.Equal(t, audit.CategoryOperations, batch[1].Category)
	assert.Equal(t, audit.CategoryOperations, batch[2].Category)
	for _, entry := range batch {
		assert.Equal(t, appID.String(), entry.Key)
	}

	var payload outboxPayload
	require.NoError(t, json.Unmarshal(batch[0].Payload, &payload))
	assert.Equal(t, batch[0].ID.String(), payload.ID)
	assert.Equal(t, string(audit.CategoryCompliance), payload.Category)
	assert.Equal(t, string(audit.EventManualEditApplied), payload.Action)
	assert.Equal(t, "casey@example.com", payload.Actor)
	assert.Equal(t, "req-1", payload.RequestID)
	_, err = time.Parse(time.RFC3339Nano, payload.Timestamp)
	require.NoError(t, err)

	ids := []uuid.UUID{batch[0].ID, batch[1].ID, batch[2].ID}
	require.NoError(t, s.MarkPublished(ctx, ids))

	batch, err = s.UnpublishedBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch, "published entries are not claimed again")
}

func TestOutboxJoinsCallerTransaction(t *testing.T) {
	ctx := context.Background()
	db := containers.OpenPostgres(t)
	s := New(db)
	drainOutbox(t, s)

	appID := id.ApplicationID(uuid.New())
	event := audit.Event{
		Timestamp:     time.Now(),
		ApplicationID: appID,
		Action:        string(audit.EventManualEditApplied),
		Actor:         "casey@example.com",
	}

	runner := txcontext.NewRunner(db, 0)
	boom := errors.New("domain write failed")
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Append(txCtx, event))
		return boom
	})
	require.ErrorIs(t, err, boom)

	batch, err := s.UnpublishedBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch, "rollback discards the outbox row with the domain write")

	require.NoError(t, runner.RunInTx(ctx, func(txCtx context.Context) error {
		return s.Append(txCtx, event)
	}))

	batch, err = s.UnpublishedBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	drainOutbox(t, s)
}

func TestAppendWithIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(containers.OpenPostgres(t))

	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())
	eventID := uuid.New()
	event := audit.Event{
		Category:      audit.CategoryCompliance,
		Timestamp:     time.Now(),
		ApplicationID: appID,
		RequirementID: reqID,
		Action:        string(audit.EventManualEditApplied),
		Actor:         "casey@example.com",
		Reason:        "control verified during onsite audit",
		RequestID:     "req-42",
	}

	require.NoError(t, s.AppendWithID(ctx, eventID, event))
	require.NoError(t, s.AppendWithID(ctx, eventID, event), "redelivery inserts nothing")

	got, err := s.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, audit.CategoryCompliance, got[0].Category)
	assert.Equal(t, appID, got[0].ApplicationID)
	assert.Equal(t, reqID, got[0].RequirementID)
	assert.Equal(t, string(audit.EventManualEditApplied), got[0].Action)
	assert.Equal(t, "casey@example.com", got[0].Actor)
	assert.Equal(t, "control verified during onsite audit", got[0].Reason)
	assert.Equal(t, "req-42", got[0].RequestID)
	assert.WithinDuration(t, event.Timestamp, got[0].Timestamp, time.Second)
}

func TestListByApplicationFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New(containers.OpenPostgres(t))

	appID := id.ApplicationID(uuid.New())
	other := id.ApplicationID(uuid.New())
	base := time.Now()

	actions := []audit.AuditEvent{
		audit.EventApplicationRegistered,
		audit.EventFindingApplied,
		audit.EventSyncCompleted,
	}
	for i, action := range actions {
		require.NoError(t, s.AppendWithID(ctx, uuid.New(), audit.Event{
			Category:      action.Category(),
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			ApplicationID: appID,
			Action:        string(action),
			Actor:         "system:sync",
		}))
	}
	require.NoError(t, s.AppendWithID(ctx, uuid.New(), audit.Event{
		Category:      audit.CategoryCompliance,
		Timestamp:     base,
		ApplicationID: other,
		Action:        string(audit.EventApplicationRegistered),
		Actor:         "casey@example.com",
	}))

	got, err := s.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, got, 3, "other application's events are filtered out")
	assert.Equal(t, string(audit.EventSyncCompleted), got[0].Action, "newest first")
	assert.Equal(t, string(audit.EventApplicationRegistered), got[2].Action)

	recent, err := s.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, string(audit.EventSyncCompleted), recent[0].Action)
}
