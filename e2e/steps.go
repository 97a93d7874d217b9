package e2e

import (
	"github.com/cucumber/godog"

	"flighttracker/e2e/steps/common"
	"flighttracker/e2e/steps/flights"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (callers, status and error assertions)
	common.RegisterSteps(ctx, tc)

	// Register flight append/query steps
	flights.RegisterSteps(ctx, tc)
}
