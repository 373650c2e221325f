package e2e

import (
	"github.com/cucumber/godog"

	"attest/e2e/steps/application"
	"attest/e2e/steps/common"
	"attest/e2e/steps/fulfillment"
	"attest/e2e/steps/scoring"
	"attest/e2e/steps/sync"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic response assertions
	common.RegisterSteps(ctx, tc)

	// Catalog discovery and application registry
	application.RegisterSteps(ctx, tc)

	// Manual overrides and fulfillment lookups
	fulfillment.RegisterSteps(ctx, tc)

	// Compliance score checks
	scoring.RegisterSteps(ctx, tc)

	// Provider sync lifecycle
	sync.RegisterSteps(ctx, tc)
}
