package sync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	GetStatus() int
	GetResponseField(path string) (any, error)
	GetApplicationID() string
	GetRequirementID(n int) (string, error)
}

// RegisterSteps registers provider sync lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &syncSteps{tc: tc}

	ctx.Step(`^I begin a sync attempt$`, steps.beginSync)
	ctx.Step(`^a sync completes reporting requirement (\d+) as "([^"]*)"$`, steps.syncCompletesReportingOne)
	ctx.Step(`^a sync completes reporting:$`, steps.syncCompletesReportingTable)
	ctx.Step(`^I report the sync as failed with reason "([^"]*)"$`, steps.reportSyncFailed)
	ctx.Step(`^I fetch the sync state$`, steps.fetchSyncState)
	ctx.Step(`^the sync status is "([^"]*)"$`, steps.syncStatusIs)
}

type syncSteps struct {
	tc TestContext
}

func (s *syncSteps) syncPath(suffix string) string {
	return "/v1/applications/" + s.tc.GetApplicationID() + "/sync" + suffix
}

func (s *syncSteps) beginSync() error {
	return s.tc.POST(s.syncPath("/begin"), nil)
}

func (s *syncSteps) syncCompletesReportingOne(n int, status string) error {
	requirementID, err := s.tc.GetRequirementID(n)
	if err != nil {
		return err
	}
	return s.runSync([]map[string]any{assessment(requirementID, status)})
}

// syncCompletesReportingTable accepts a table of findings. The first row is
// a header:
//
//	| requirement | status    |
//	| 1           | fulfilled |
func (s *syncSteps) syncCompletesReportingTable(table *godog.Table) error {
	rows := table.Rows
	if len(rows) > 0 && len(rows[0].Cells) > 0 {
		if _, err := strconv.Atoi(rows[0].Cells[0].Value); err != nil {
			rows = rows[1:]
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("findings table has no data rows")
	}

	assessments := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if len(row.Cells) < 2 {
			return fmt.Errorf("findings table needs requirement and status columns")
		}
		n, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return fmt.Errorf("requirement column: %w", err)
		}
		requirementID, err := s.tc.GetRequirementID(n)
		if err != nil {
			return err
		}
		assessments = append(assessments, assessment(requirementID, row.Cells[1].Value))
	}
	return s.runSync(assessments)
}

// runSync drives a full provider attempt: begin, then complete with the
// given findings. Both legs must succeed for the step to pass.
func (s *syncSteps) runSync(assessments []map[string]any) error {
	if err := s.beginSync(); err != nil {
		return err
	}
	if s.tc.GetStatus() != 202 {
		return fmt.Errorf("beginning sync returned status %d", s.tc.GetStatus())
	}

	envelope := map[string]any{
		"provider":    "aws-config",
		"observed_at": time.Now().UTC().Format(time.RFC3339),
		"assessments": assessments,
	}
	if err := s.tc.POST(s.syncPath("/complete"), envelope); err != nil {
		return err
	}
	if s.tc.GetStatus() != 200 {
		return fmt.Errorf("completing sync returned status %d", s.tc.GetStatus())
	}
	return nil
}

func (s *syncSteps) reportSyncFailed(reason string) error {
	return s.tc.POST(s.syncPath("/fail"), map[string]any{"reason": reason})
}

func (s *syncSteps) fetchSyncState() error {
	return s.tc.GET(s.syncPath(""))
}

func (s *syncSteps) syncStatusIs(expected string) error {
	value, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%v", value); got != expected {
		return fmt.Errorf("expected sync status %q, got %q", expected, got)
	}
	return nil
}

func assessment(requirementID, status string) map[string]any {
	return map[string]any{
		"requirement_id": requirementID,
		"status":         status,
		"confidence":     "high",
		"evidence":       "reported by provider run",
	}
}
