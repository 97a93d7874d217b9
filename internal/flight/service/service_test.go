package service

//go:generate mockgen -source=../../storage/blob/store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flighttracker/internal/flight/eventlog"
	"flighttracker/internal/flight/metrics"
	"flighttracker/internal/flight/models"
	"flighttracker/internal/flight/service/mocks"
	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/sentinel"
)

// =============================================================================
// Flight Service Test Suite
// =============================================================================
// The service owns identity stamping and scope enforcement. Tests use a mocked
// blob store so unexpected I/O (for example a Put after a rejected append)
// fails the test.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
	var err error
	s.service, err = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithFetchConcurrency(2),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

var (
	alice = domain.Identity{UserID: "alice", TeamIDs: []string{"platform"}, OrgID: "acme", Granted: domain.ScopeTeam}
	admin = domain.Identity{UserID: "ops", Granted: domain.ScopeAll}
)

const day = "events/2024/11/12/flights.jsonl"

func (s *ServiceSuite) expectPartition(body string) {
	s.store.EXPECT().List(gomock.Any(), eventlog.RootPrefix).Return([]string{day}, nil)
	s.store.EXPECT().Get(gomock.Any(), day).Return([]byte(body), nil)
}

const seeded = `{"id":"e1","status":"successful","createdAt":"2024-11-12T10:00:00Z","owner":"alice","teamId":"platform","orgId":"acme"}
{"id":"e2","status":"failure","createdAt":"2024-11-12T11:00:00Z","owner":"bob","teamId":"platform","orgId":"acme"}
{"id":"e3","status":"failure","createdAt":"2024-11-12T12:00:00Z","owner":"carol","teamId":"infra","orgId":"acme"}
{"id":"e1","status":"partial","createdAt":"2024-11-12T13:00:00Z","owner":"alice","teamId":"platform","orgId":"acme"}
{broken
`

func (s *ServiceSuite) TestNew() {
	_, err := New(nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "flight store is required")
}

func (s *ServiceSuite) TestAppend() {
	s.Run("validation failure performs no store I/O", func() {
		for _, f := range []*models.Flight{
			{Status: domain.FlightStatusStarted},
			{ID: "e1"},
			{ID: "e1", Status: "landed"},
		} {
			_, err := s.service.Append(s.ctx, alice, f)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	s.Run("anonymous caller is unauthorized", func() {
		_, err := s.service.Append(s.ctx, domain.Identity{}, &models.Flight{ID: "e1", Status: domain.FlightStatusStarted})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("stamps owner team and org from the caller", func() {
		var written []byte
		s.store.EXPECT().Get(gomock.Any(), day).Return(nil, fmt.Errorf("missing: %w", sentinel.ErrNotFound))
		s.store.EXPECT().Put(gomock.Any(), day, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, data []byte) error {
				written = data
				return nil
			})

		f := &models.Flight{ID: "e1", Status: domain.FlightStatusSuccessful, CreatedAt: time.Date(2024, 11, 12, 10, 0, 0, 0, time.UTC)}
		res, err := s.service.Append(s.ctx, alice, f)
		s.Require().NoError(err)
		s.Equal(day, res.PartitionKey)
		s.JSONEq(`{"id":"e1","status":"successful","createdAt":"2024-11-12T10:00:00Z","owner":"alice","teamId":"platform","orgId":"acme"}`, string(written))
		s.InDelta(1, testutil.ToFloat64(s.metrics.FlightsAppended.WithLabelValues("successful")), 0)
	})

	s.Run("does not guess a team for multi-team callers", func() {
		s.store.EXPECT().Get(gomock.Any(), day).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Put(gomock.Any(), day, gomock.Any()).Return(nil)

		caller := alice
		caller.TeamIDs = []string{"platform", "infra"}
		f := &models.Flight{ID: "e1", Status: domain.FlightStatusStarted, CreatedAt: time.Date(2024, 11, 12, 9, 0, 0, 0, time.UTC)}
		_, err := s.service.Append(s.ctx, caller, f)
		s.Require().NoError(err)
		s.Empty(f.TeamID)
		s.Equal("acme", f.OrgID)
	})

	s.Run("rejects appending for another owner, team or org", func() {
		for _, f := range []*models.Flight{
			{ID: "e1", Status: domain.FlightStatusStarted, Owner: "bob"},
			{ID: "e1", Status: domain.FlightStatusStarted, TeamID: "infra"},
			{ID: "e1", Status: domain.FlightStatusStarted, OrgID: "globex"},
		} {
			_, err := s.service.Append(s.ctx, alice, f)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		}
	})

	s.Run("scope all may append on behalf of others", func() {
		s.store.EXPECT().Get(gomock.Any(), day).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().Put(gomock.Any(), day, gomock.Any()).Return(nil)

		f := &models.Flight{ID: "e9", Status: domain.FlightStatusStarted, Owner: "bob", CreatedAt: time.Date(2024, 11, 12, 9, 0, 0, 0, time.UTC)}
		_, err := s.service.Append(s.ctx, admin, f)
		s.Require().NoError(err)
		s.Equal("bob", f.Owner)
	})

	s.Run("store outage is unavailable and counted", func() {
		s.store.EXPECT().Get(gomock.Any(), day).Return(nil, errors.New("dial tcp: i/o timeout"))

		f := &models.Flight{ID: "e1", Status: domain.FlightStatusStarted, CreatedAt: time.Date(2024, 11, 12, 9, 0, 0, 0, time.UTC)}
		_, err := s.service.Append(s.ctx, alice, f)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.InDelta(1, testutil.ToFloat64(s.metrics.StoreErrors.WithLabelValues("append")), 0)
	})
}

func (s *ServiceSuite) TestQuery() {
	s.Run("own scope", func() {
		s.expectPartition(seeded)
		res, err := s.service.Query(s.ctx, alice, QueryRequest{Scope: domain.ScopeOwn})
		s.Require().NoError(err)
		s.Equal([]string{"e1", "e1"}, flightIDs(res.Flights))
		s.Equal(1, res.Skipped)
	})

	s.Run("empty scope uses the granted scope", func() {
		s.expectPartition(seeded)
		res, err := s.service.Query(s.ctx, alice, QueryRequest{})
		s.Require().NoError(err)
		s.Equal([]string{"e1", "e2", "e1"}, flightIDs(res.Flights))
	})

	s.Run("status filter", func() {
		s.expectPartition(seeded)
		res, err := s.service.Query(s.ctx, alice, QueryRequest{Status: domain.FlightStatusFailure})
		s.Require().NoError(err)
		s.Equal([]string{"e2"}, flightIDs(res.Flights))
	})

	s.Run("broader than granted is forbidden without I/O", func() {
		_, err := s.service.Query(s.ctx, alice, QueryRequest{Scope: domain.ScopeOrg})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid status and inverted range are validation errors", func() {
		_, err := s.service.Query(s.ctx, alice, QueryRequest{Status: "landed"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Query(s.ctx, alice, QueryRequest{
			From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("configured default limit applies when limit is zero", func() {
		svc, err := New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithDefaultLimit(1))
		s.Require().NoError(err)
		s.expectPartition(seeded)
		res, err := svc.Query(s.ctx, admin, QueryRequest{})
		s.Require().NoError(err)
		s.Len(res.Flights, 1)
		s.Equal(4, res.Matched)
	})

	s.Run("list failure is unavailable", func() {
		s.store.EXPECT().List(gomock.Any(), eventlog.RootPrefix).Return(nil, errors.New("AccessDenied"))
		_, err := s.service.Query(s.ctx, alice, QueryRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestGet() {
	s.Run("returns the latest visible record", func() {
		s.expectPartition(seeded)
		f, err := s.service.Get(s.ctx, alice, "e1")
		s.Require().NoError(err)
		s.Equal(domain.FlightStatusPartial, f.Status)
	})

	s.Run("records outside scope are not found", func() {
		s.expectPartition(seeded)
		_, err := s.service.Get(s.ctx, alice, "e3")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestStats() {
	s.expectPartition(seeded)
	stats, err := s.service.Stats(s.ctx, admin, QueryRequest{Limit: 1})
	s.Require().NoError(err)
	s.Equal(4, stats.Total)
	s.Equal(1, stats.Skipped)
	s.Equal(map[domain.FlightStatus]int{
		domain.FlightStatusSuccessful: 1,
		domain.FlightStatusFailure:    2,
		domain.FlightStatusPartial:    1,
	}, stats.ByStatus)
	s.InDelta(1, testutil.ToFloat64(s.metrics.SkippedLines), 0)
}

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name      string
		caller    domain.Identity
		requested domain.Scope
		want      domain.Scope
		code      dErrors.Code
	}{
		{"anonymous", domain.Identity{}, "", "", dErrors.CodeUnauthorized},
		{"defaults to granted", alice, "", domain.ScopeTeam, ""},
		{"narrower than granted", alice, domain.ScopeOwn, domain.ScopeOwn, ""},
		{"broader than granted", alice, domain.ScopeAll, "", dErrors.CodeForbidden},
		{"unknown scope", alice, "galaxy", "", dErrors.CodeValidation},
		{"invalid grant falls back to own", domain.Identity{UserID: "x"}, domain.ScopeTeam, "", dErrors.CodeForbidden},
		{"org without organization", domain.Identity{UserID: "x", Granted: domain.ScopeAll}, domain.ScopeOrg, "", dErrors.CodeForbidden},
		{"all", admin, domain.ScopeAll, domain.ScopeAll, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveScope(tt.caller, tt.requested)
			if tt.code != "" {
				assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func flightIDs(flights []models.Flight) []string {
	out := make([]string, 0, len(flights))
	for _, f := range flights {
		out = append(out, f.ID)
	}
	return out
}
