package flights

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Scoped(name string) string
	Unscoped(name string) string
	Do(method, path, caller string, body []byte) error
	DecodeLast(v any) error
}

// RegisterSteps registers flight append and retrieval steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &flightSteps{tc: tc}

	ctx.Step(`^"([^"]*)" appends flight "([^"]*)" with status "([^"]*)"$`, steps.appendFlight)
	ctx.Step(`^"([^"]*)" appends the raw body '([^']*)'$`, steps.appendRaw)
	ctx.Step(`^"([^"]*)" queries flights with scope "([^"]*)"$`, steps.queryWithScope)
	ctx.Step(`^"([^"]*)" gets flight "([^"]*)"$`, steps.getFlight)
	ctx.Step(`^an anonymous client queries flights$`, steps.anonymousQuery)
	ctx.Step(`^the records should be "([^"]*)"$`, steps.recordsShouldBe)
}

type flightSteps struct {
	tc TestContext
}

func (s *flightSteps) appendFlight(ctx context.Context, caller, id, status string) error {
	body := fmt.Sprintf(`{"id":%q,"status":%q}`, s.tc.Scoped(id), status)
	if err := s.tc.Do(http.MethodPost, "/flights", caller, []byte(body)); err != nil {
		return err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.tc.DecodeLast(&resp); err != nil {
		return err
	}
	if resp.ID != s.tc.Scoped(id) {
		return fmt.Errorf("append of %s failed: %+v", id, resp)
	}
	return nil
}

func (s *flightSteps) appendRaw(ctx context.Context, caller, body string) error {
	return s.tc.Do(http.MethodPost, "/flights", caller, []byte(body))
}

func (s *flightSteps) queryWithScope(ctx context.Context, caller, scope string) error {
	return s.tc.Do(http.MethodGet, "/flights?scope="+url.QueryEscape(scope), caller, nil)
}

func (s *flightSteps) getFlight(ctx context.Context, caller, id string) error {
	return s.tc.Do(http.MethodGet, "/flights/"+url.PathEscape(s.tc.Scoped(id)), caller, nil)
}

func (s *flightSteps) anonymousQuery(ctx context.Context) error {
	return s.tc.Do(http.MethodGet, "/flights", "", nil)
}

// recordsShouldBe compares comma-separated ids, newest first.
func (s *flightSteps) recordsShouldBe(ctx context.Context, expected string) error {
	var resp struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}
	if err := s.tc.DecodeLast(&resp); err != nil {
		return err
	}
	got := make([]string, 0, len(resp.Records))
	for _, r := range resp.Records {
		got = append(got, s.tc.Unscoped(r.ID))
	}
	if strings.Join(got, ",") != expected {
		return fmt.Errorf("expected records %q, got %q", expected, strings.Join(got, ","))
	}
	return nil
}
