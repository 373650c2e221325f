package application

import (
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	PUT(path string, body any) error
	DELETE(path string) error
	GetStatus() int
	GetResponseField(path string) (any, error)
	GetApplicationID() string
	SetApplicationID(appID string)
	GetRequirementIDs() []string
	SetRequirementIDs(ids []string)
}

// RegisterSteps registers catalog discovery and registry step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &applicationSteps{tc: tc}

	// Catalog discovery
	ctx.Step(`^the catalog provides at least (\d+) requirements?$`, steps.discoverRequirements)

	// Registry lifecycle
	ctx.Step(`^a registered "([^"]*)" application$`, steps.registerApplication)
	ctx.Step(`^I fetch the application$`, steps.fetchApplication)
	ctx.Step(`^I deregister the application$`, steps.deregisterApplication)
	ctx.Step(`^I change the sync mode to "([^"]*)"$`, steps.changeSyncMode)
}

type applicationSteps struct {
	tc TestContext
}

// discoverRequirements walks the seeded catalog and remembers the first
// requirement IDs it finds. Scenarios refer to them by position, so the
// suite works against any catalog with enough requirements.
func (s *applicationSteps) discoverRequirements(minimum int) error {
	if err := s.tc.GET("/v1/standards"); err != nil {
		return err
	}
	if s.tc.GetStatus() != 200 {
		return fmt.Errorf("listing standards returned status %d", s.tc.GetStatus())
	}
	standards, err := s.tc.GetResponseField("standards")
	if err != nil {
		return err
	}
	standardList, ok := standards.([]any)
	if !ok {
		return fmt.Errorf("standards is %T, not an array", standards)
	}
	standardIDs := make([]string, 0, len(standardList))
	for _, entry := range standardList {
		doc, ok := entry.(map[string]any)
		if !ok {
			return fmt.Errorf("standard entry is %T, not an object", entry)
		}
		standardIDs = append(standardIDs, fmt.Sprintf("%v", doc["id"]))
	}

	var requirementIDs []string
	for _, standardID := range standardIDs {
		if err := s.tc.GET("/v1/standards/" + standardID + "/requirements"); err != nil {
			return err
		}
		requirements, err := s.tc.GetResponseField("requirements")
		if err != nil {
			return err
		}
		requirementList, ok := requirements.([]any)
		if !ok {
			return fmt.Errorf("requirements is %T, not an array", requirements)
		}
		for _, entry := range requirementList {
			doc, ok := entry.(map[string]any)
			if !ok {
				return fmt.Errorf("requirement entry is %T, not an object", entry)
			}
			requirementIDs = append(requirementIDs, fmt.Sprintf("%v", doc["id"]))
		}
		if len(requirementIDs) >= minimum {
			break
		}
	}

	if len(requirementIDs) < minimum {
		return fmt.Errorf("catalog has %d requirements, scenario needs %d; seed the server first", len(requirementIDs), minimum)
	}
	s.tc.SetRequirementIDs(requirementIDs)
	return nil
}

func (s *applicationSteps) registerApplication(syncMode string) error {
	requirementIDs := s.tc.GetRequirementIDs()
	if len(requirementIDs) == 0 {
		return fmt.Errorf("no requirements discovered, add a catalog step to the background")
	}

	body := map[string]any{
		"name":            fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		"criticality":     "high",
		"sync_mode":       syncMode,
		"requirement_ids": requirementIDs,
	}
	if err := s.tc.POST("/v1/applications", body); err != nil {
		return err
	}
	if s.tc.GetStatus() != 201 {
		return fmt.Errorf("registration returned status %d", s.tc.GetStatus())
	}

	appID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetApplicationID(fmt.Sprintf("%v", appID))
	return nil
}

func (s *applicationSteps) fetchApplication() error {
	return s.tc.GET("/v1/applications/" + s.tc.GetApplicationID())
}

func (s *applicationSteps) deregisterApplication() error {
	return s.tc.DELETE("/v1/applications/" + s.tc.GetApplicationID())
}

func (s *applicationSteps) changeSyncMode(syncMode string) error {
	return s.tc.PUT("/v1/applications/"+s.tc.GetApplicationID()+"/sync-mode", map[string]any{
		"sync_mode": syncMode,
	})
}
