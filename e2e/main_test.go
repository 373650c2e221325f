package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin suite against a live server. Point
// ATTEST_E2E_BASE_URL at a running instance with a seeded catalog; without
// it the suite skips so a plain go test stays hermetic.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("ATTEST_E2E_BASE_URL")
	if baseURL == "" {
		t.Skip("ATTEST_E2E_BASE_URL not set")
	}

	suite := godog.TestSuite{
		Name: "attest",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			tc := NewTestContext(baseURL)
			RegisterSteps(sc, tc)

			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
				tc.Cleanup()
				return ctx, nil
			})
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("e2e feature suite failed")
	}
}
