package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Scoped(name string) string
	AddCallerIdentity(name, userID string, teamIDs []string, orgID, scope string)
	LastStatus() int
	DecodeLast(v any) error
}

// RegisterSteps registers steps shared by every feature.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a caller "([^"]*)" in team "([^"]*)" of org "([^"]*)" with scope "([^"]*)"$`, steps.aCaller)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatus)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCode)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) aCaller(ctx context.Context, name, team, org, scope string) error {
	var teams []string
	if team != "" {
		teams = []string{s.tc.Scoped(team)}
	}
	s.tc.AddCallerIdentity(name, s.tc.Scoped(name), teams, s.tc.Scoped(org), scope)
	return nil
}

func (s *commonSteps) responseStatus(ctx context.Context, expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) errorCode(ctx context.Context, expected string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := s.tc.DecodeLast(&body); err != nil {
		return err
	}
	if body.Error != expected {
		return fmt.Errorf("expected error code %q, got %q", expected, body.Error)
	}
	return nil
}

func (s *commonSteps) responseField(ctx context.Context, field, expected string) error {
	var body map[string]any
	if err := s.tc.DecodeLast(&body); err != nil {
		return err
	}
	got := fmt.Sprint(body[field])
	if !strings.EqualFold(got, expected) {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}
