package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GetStatus() int
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers generic response assertions shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status is (\d+)$`, steps.responseStatusIs)
	ctx.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.responseFieldIs)
	ctx.Step(`^the response field "([^"]*)" is (true|false)$`, steps.responseFieldIsBool)
	ctx.Step(`^the error code is "([^"]*)"$`, steps.errorCodeIs)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) responseStatusIs(expected int) error {
	if got := s.tc.GetStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldIs(path, expected string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%v", value); got != expected {
		return fmt.Errorf("expected field %q to be %q, got %q", path, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldIsBool(path, expected string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	got, ok := value.(bool)
	if !ok {
		return fmt.Errorf("field %q is %T, not a boolean", path, value)
	}
	if fmt.Sprintf("%t", got) != expected {
		return fmt.Errorf("expected field %q to be %s, got %t", path, expected, got)
	}
	return nil
}

func (s *commonSteps) errorCodeIs(expected string) error {
	return s.responseFieldIs("error", expected)
}
