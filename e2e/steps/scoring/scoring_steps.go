package scoring

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetResponseField(path string) (any, error)
	GetApplicationID() string
}

// RegisterSteps registers compliance score step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &scoringSteps{tc: tc}

	ctx.Step(`^I fetch the compliance score$`, steps.fetchScore)
	ctx.Step(`^the compliance score is (\d+) percent$`, steps.scoreIs)
	ctx.Step(`^(\d+) of (\d+) requirements are assessed$`, steps.assessedCountsAre)
	ctx.Step(`^the score counts "([^"]*)" as (\d+)$`, steps.statusCountIs)
}

type scoringSteps struct {
	tc TestContext
}

func (s *scoringSteps) fetchScore() error {
	return s.tc.GET("/v1/applications/" + s.tc.GetApplicationID() + "/score")
}

func (s *scoringSteps) scoreIs(expected int) error {
	return s.numberEquals("percentage", expected)
}

func (s *scoringSteps) assessedCountsAre(assessed, total int) error {
	if err := s.numberEquals("assessed_requirements", assessed); err != nil {
		return err
	}
	return s.numberEquals("total_requirements", total)
}

func (s *scoringSteps) statusCountIs(status string, expected int) error {
	return s.numberEquals("counts."+status, expected)
}

func (s *scoringSteps) numberEquals(path string, expected int) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	number, ok := value.(float64)
	if !ok {
		return fmt.Errorf("field %q is %T, not a number", path, value)
	}
	if int(number) != expected {
		return fmt.Errorf("expected %q to be %d, got %v", path, expected, number)
	}
	return nil
}
