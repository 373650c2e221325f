package fulfillment

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	PUT(path string, body any) error
	POST(path string, body any) error
	GetResponseField(path string) (any, error)
	SetActor(actor string)
	ClearActor()
	GetApplicationID() string
	GetRequirementID(n int) (string, error)
}

// RegisterSteps registers manual override and fulfillment lookup step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &fulfillmentSteps{tc: tc}

	// Acting principal
	ctx.Step(`^acting as "([^"]*)"$`, steps.actingAs)
	ctx.Step(`^with no actor$`, steps.withNoActor)

	// Overrides
	ctx.Step(`^I manually set requirement (\d+) to "([^"]*)" justified by "([^"]*)"$`, steps.manuallySetRequirement)
	ctx.Step(`^I revert requirement (\d+) to the automated answer$`, steps.revertRequirement)

	// Lookups and assertions
	ctx.Step(`^I fetch the fulfillment for requirement (\d+)$`, steps.fetchFulfillment)
	ctx.Step(`^I fetch the application's fulfillments$`, steps.fetchFulfillments)
	ctx.Step(`^the application has (\d+) fulfillment records?$`, steps.fulfillmentCountIs)
	ctx.Step(`^the fulfillment status is "([^"]*)"$`, steps.fulfillmentStatusIs)
	ctx.Step(`^the fulfillment is manually overridden$`, steps.fulfillmentIsOverridden)
	ctx.Step(`^the fulfillment is automated$`, steps.fulfillmentIsAutomated)
	ctx.Step(`^the automated shadow is "([^"]*)"$`, steps.automatedShadowIs)
}

type fulfillmentSteps struct {
	tc TestContext
}

func (s *fulfillmentSteps) actingAs(actor string) error {
	s.tc.SetActor(actor)
	return nil
}

func (s *fulfillmentSteps) withNoActor() error {
	s.tc.ClearActor()
	return nil
}

func (s *fulfillmentSteps) fulfillmentPath(n int) (string, error) {
	requirementID, err := s.tc.GetRequirementID(n)
	if err != nil {
		return "", err
	}
	return "/v1/applications/" + s.tc.GetApplicationID() + "/fulfillments/" + requirementID, nil
}

func (s *fulfillmentSteps) manuallySetRequirement(n int, status, justification string) error {
	path, err := s.fulfillmentPath(n)
	if err != nil {
		return err
	}
	return s.tc.PUT(path, map[string]any{
		"status":        status,
		"justification": justification,
	})
}

func (s *fulfillmentSteps) revertRequirement(n int) error {
	path, err := s.fulfillmentPath(n)
	if err != nil {
		return err
	}
	return s.tc.POST(path+"/revert", nil)
}

func (s *fulfillmentSteps) fetchFulfillment(n int) error {
	path, err := s.fulfillmentPath(n)
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

func (s *fulfillmentSteps) fetchFulfillments() error {
	return s.tc.GET("/v1/applications/" + s.tc.GetApplicationID() + "/fulfillments")
}

func (s *fulfillmentSteps) fulfillmentCountIs(expected int) error {
	records, err := s.tc.GetResponseField("fulfillments")
	if err != nil {
		return err
	}
	list, ok := records.([]any)
	if !ok {
		return fmt.Errorf("fulfillments is %T, not an array", records)
	}
	if len(list) != expected {
		return fmt.Errorf("expected %d fulfillment records, got %d", expected, len(list))
	}
	return nil
}

func (s *fulfillmentSteps) fulfillmentStatusIs(expected string) error {
	return s.fieldEquals("status", expected)
}

func (s *fulfillmentSteps) fulfillmentIsOverridden() error {
	return s.fieldEquals("is_manual_override", "true")
}

func (s *fulfillmentSteps) fulfillmentIsAutomated() error {
	return s.fieldEquals("is_auto_answered", "true")
}

func (s *fulfillmentSteps) automatedShadowIs(expected string) error {
	return s.fieldEquals("automated.status", expected)
}

func (s *fulfillmentSteps) fieldEquals(path, expected string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%v", value); got != expected {
		return fmt.Errorf("expected %q to be %q, got %q", path, expected, got)
	}
	return nil
}
