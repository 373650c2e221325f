package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

func testFinding(reqID id.RequirementID, status id.FulfillmentStatus, observedAt time.Time) AutoFinding {
	return AutoFinding{
		RequirementID: reqID,
		Status:        status,
		Confidence:    id.ConfidenceHigh,
		Evidence:      "storage encryption enabled on all volumes",
		Source:        "azure-defender",
		ObservedAt:    observedAt,
	}
}

func TestAutoFindingValidate(t *testing.T) {
	now := time.Now()
	reqID := id.RequirementID(uuid.New())

	require.NoError(t, testFinding(reqID, id.StatusFulfilled, now).Validate())

	cases := map[string]AutoFinding{
		"missing requirement": testFinding(id.RequirementID(uuid.Nil), id.StatusFulfilled, now),
		"invalid status": {
			RequirementID: reqID, Status: "healthy", Confidence: id.ConfidenceHigh,
			Source: "azure-defender", ObservedAt: now,
		},
		"invalid confidence": {
			RequirementID: reqID, Status: id.StatusFulfilled, Confidence: "certain",
			Source: "azure-defender", ObservedAt: now,
		},
		"blank source": {
			RequirementID: reqID, Status: id.StatusFulfilled, Confidence: id.ConfidenceHigh,
			Source: "  ", ObservedAt: now,
		},
		"zero observation time": {
			RequirementID: reqID, Status: id.StatusFulfilled, Confidence: id.ConfidenceHigh,
			Source: "azure-defender",
		},
	}
	for name, finding := range cases {
		t.Run(name, func(t *testing.T) {
			err := finding.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestNewFromFinding(t *testing.T) {
	now := time.Now()
	observed := now.Add(-10 * time.Minute)
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	f, err := NewFromFinding(appID, testFinding(reqID, id.StatusFulfilled, observed), now)
	require.NoError(t, err)

	assert.Equal(t, id.StatusFulfilled, f.Status)
	assert.Equal(t, "storage encryption enabled on all volumes", f.Evidence)
	assert.Empty(t, f.Justification)
	assert.Equal(t, SystemActor, f.LastModifiedBy)
	assert.Equal(t, observed, f.LastAssessedAt)
	assert.True(t, f.IsAutoAnswered())
	assert.False(t, f.IsManualOverride())
	require.NoError(t, f.Validate())

	_, err = NewFromFinding(id.ApplicationID(uuid.Nil), testFinding(reqID, id.StatusFulfilled, observed), now)
	require.Error(t, err)
}

func TestNewFromManualEdit(t *testing.T) {
	now := time.Now()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	f, err := NewFromManualEdit(appID, reqID, ManualEdit{
		Status:           id.StatusPartiallyFulfilled,
		Justification:    "rollout in progress, two regions remaining",
		ResponsibleParty: "platform-team",
		Editor:           "casey@example.com",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, id.StatusPartiallyFulfilled, f.Status)
	assert.Equal(t, "casey@example.com", f.LastModifiedBy)
	assert.False(t, f.IsAutoAnswered())
	assert.False(t, f.IsManualOverride(), "a manual answer with no automated history is not an override")
	assert.True(t, f.LastAssessedAt.IsZero())
	require.NoError(t, f.Validate())

	_, err = NewFromManualEdit(appID, reqID, ManualEdit{Status: "done", Editor: "casey@example.com"}, now)
	require.Error(t, err)

	_, err = NewFromManualEdit(appID, reqID, ManualEdit{Status: id.StatusFulfilled}, now)
	require.Error(t, err)
}

func TestApplyFinding(t *testing.T) {
	start := time.Now()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	t.Run("replaces authoritative fields without an override", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusNotFulfilled, start), start)
		require.NoError(t, err)

		later := start.Add(time.Hour)
		next := testFinding(reqID, id.StatusFulfilled, later)
		next.Evidence = "all volumes encrypted"

		outcome := f.ApplyFinding(next, later)

		assert.Equal(t, OutcomeApplied, outcome)
		assert.Equal(t, id.StatusFulfilled, f.Status)
		assert.Equal(t, "all volumes encrypted", f.Evidence)
		assert.Equal(t, SystemActor, f.LastModifiedBy)
		assert.Equal(t, later, f.LastAssessedAt)
		assert.True(t, f.IsAutoAnswered())
		require.NoError(t, f.Validate())
	})

	t.Run("refreshes only the shadow under an override", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusNotFulfilled, start), start)
		require.NoError(t, err)
		f.ApplyManualEdit(ManualEdit{
			Status:        id.StatusNotApplicable,
			Justification: "service retired",
			Editor:        "casey@example.com",
		}, start.Add(time.Minute))
		require.True(t, f.IsManualOverride())

		later := start.Add(time.Hour)
		outcome := f.ApplyFinding(testFinding(reqID, id.StatusFulfilled, later), later)

		assert.Equal(t, OutcomeSuppressed, outcome)
		assert.Equal(t, id.StatusNotApplicable, f.Status, "authoritative status untouched")
		assert.Equal(t, "service retired", f.Justification)
		assert.Equal(t, "casey@example.com", f.LastModifiedBy)
		assert.Equal(t, id.StatusFulfilled, f.Automated.Status, "shadow tracks the latest opinion")
		assert.Equal(t, later, f.LastAssessedAt)
		require.NoError(t, f.Validate())
	})

	t.Run("re-applying the same finding is idempotent", func(t *testing.T) {
		observed := start.Add(time.Hour)
		finding := testFinding(reqID, id.StatusFulfilled, observed)
		f, err := NewFromFinding(appID, finding, start)
		require.NoError(t, err)
		before := *f

		outcome := f.ApplyFinding(finding, start.Add(2*time.Hour))

		assert.Equal(t, OutcomeApplied, outcome)
		assert.Equal(t, before.Status, f.Status)
		assert.Equal(t, before.Evidence, f.Evidence)
		assert.Equal(t, before.LastAssessedAt, f.LastAssessedAt)
		assert.Equal(t, *before.Automated, *f.Automated)
	})
}

func TestApplyManualEdit(t *testing.T) {
	start := time.Now()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	t.Run("first edit on an auto-answered record raises an override", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusNotFulfilled, start), start)
		require.NoError(t, err)

		editedAt := start.Add(time.Minute)
		f.ApplyManualEdit(ManualEdit{
			Status:        id.StatusFulfilled,
			Evidence:      "compensating control documented",
			Justification: "covered by the platform WAF",
			Editor:        "casey@example.com",
		}, editedAt)

		assert.True(t, f.IsManualOverride())
		assert.False(t, f.IsAutoAnswered())
		assert.Equal(t, id.StatusFulfilled, f.Status)
		assert.Equal(t, "casey@example.com", f.Override.By)
		assert.Equal(t, editedAt, f.Override.At)
		assert.Equal(t, id.StatusNotFulfilled, f.Automated.Status, "pre-edit automated status preserved in the shadow")
		require.NoError(t, f.Validate())
	})

	t.Run("second edit keeps the original override provenance", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusNotFulfilled, start), start)
		require.NoError(t, err)
		f.ApplyManualEdit(ManualEdit{Status: id.StatusFulfilled, Editor: "casey@example.com"}, start.Add(time.Minute))

		f.ApplyManualEdit(ManualEdit{Status: id.StatusPartiallyFulfilled, Editor: "jordan@example.com"}, start.Add(2*time.Minute))

		assert.Equal(t, id.StatusPartiallyFulfilled, f.Status)
		assert.Equal(t, "jordan@example.com", f.LastModifiedBy)
		assert.Equal(t, "casey@example.com", f.Override.By, "override records the first superseding editor")
		assert.Equal(t, id.StatusNotFulfilled, f.Automated.Status)
	})

	t.Run("edit on a manual-only record never raises an override", func(t *testing.T) {
		f, err := NewFromManualEdit(appID, reqID, ManualEdit{Status: id.StatusNotFulfilled, Editor: "casey@example.com"}, start)
		require.NoError(t, err)

		f.ApplyManualEdit(ManualEdit{Status: id.StatusFulfilled, Editor: "casey@example.com"}, start.Add(time.Minute))

		assert.False(t, f.IsManualOverride())
		assert.Nil(t, f.Automated)
		require.NoError(t, f.Validate())
	})
}

func TestRevert(t *testing.T) {
	start := time.Now()
	appID := id.ApplicationID(uuid.New())
	reqID := id.RequirementID(uuid.New())

	t.Run("restores the automated snapshot", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusNotFulfilled, start), start)
		require.NoError(t, err)
		f.ApplyManualEdit(ManualEdit{Status: id.StatusFulfilled, Editor: "casey@example.com"}, start.Add(time.Minute))

		// Automation keeps reporting while the override is active.
		f.ApplyFinding(testFinding(reqID, id.StatusPartiallyFulfilled, start.Add(time.Hour)), start.Add(time.Hour))

		revertedAt := start.Add(2 * time.Hour)
		require.NoError(t, f.Revert("jordan@example.com", revertedAt))

		assert.Equal(t, id.StatusPartiallyFulfilled, f.Status, "restores the latest shadow, not the first")
		assert.True(t, f.IsAutoAnswered())
		assert.Nil(t, f.Override)
		assert.Equal(t, "jordan@example.com", f.LastModifiedBy)
		assert.Equal(t, revertedAt, f.LastModifiedAt)
		require.NoError(t, f.Validate())
	})

	t.Run("rejects revert without an override", func(t *testing.T) {
		f, err := NewFromFinding(appID, testFinding(reqID, id.StatusFulfilled, start), start)
		require.NoError(t, err)

		err = f.Revert("casey@example.com", start.Add(time.Minute))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects revert on a manual-only record", func(t *testing.T) {
		f, err := NewFromManualEdit(appID, reqID, ManualEdit{Status: id.StatusFulfilled, Editor: "casey@example.com"}, start)
		require.NoError(t, err)

		err = f.Revert("casey@example.com", start.Add(time.Minute))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestFulfillmentValidate(t *testing.T) {
	now := time.Now()
	f := &Fulfillment{
		ApplicationID: id.ApplicationID(uuid.New()),
		RequirementID: id.RequirementID(uuid.New()),
		Status:        id.StatusFulfilled,
		CreatedAt:     now,
	}
	require.NoError(t, f.Validate())

	t.Run("override requires an automated answer", func(t *testing.T) {
		broken := *f
		broken.Override = &Override{By: "casey@example.com", At: now}
		require.Error(t, broken.Validate())
	})

	t.Run("auto-answered status must mirror the shadow", func(t *testing.T) {
		broken := *f
		broken.Automated = &AutomatedAnswer{
			Status: id.StatusNotFulfilled, Confidence: id.ConfidenceHigh,
			Source: "azure-defender", ObservedAt: now,
		}
		require.Error(t, broken.Validate())
	})
}
