package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flighttracker/internal/flight/eventlog"
	"flighttracker/internal/flight/metrics"
	"flighttracker/internal/flight/models"
	"flighttracker/internal/storage/blob"
	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/requestcontext"
)

// QueryRequest is a caller's query. A zero Scope means the caller's granted
// scope; zero From/To are open bounds; zero Limit means the configured default.
type QueryRequest struct {
	Scope  domain.Scope
	Status domain.FlightStatus
	From   time.Time
	To     time.Time
	Limit  int
}

// Stats aggregates visible flights per status.
type Stats struct {
	ByStatus map[domain.FlightStatus]int
	Total    int
	Skipped  int
}

// Service applies caller identity and scope to the flight log.
type Service struct {
	writer  *eventlog.Writer
	reader  *eventlog.Reader
	logger  *slog.Logger
	metrics *metrics.Metrics

	fetchConcurrency int
	defaultLimit     int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFetchConcurrency bounds concurrent partition downloads per query.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		s.fetchConcurrency = n
	}
}

// WithDefaultLimit replaces eventlog.DefaultLimit for queries that leave
// Limit at zero. Values above eventlog.MaxLimit are capped by the reader.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		s.defaultLimit = n
	}
}

// New constructs a Service over store.
func New(store blob.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("flight store is required")
	}
	s := &Service{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	logOpt := eventlog.WithLogger(s.logger)
	s.writer = eventlog.NewWriter(store, logOpt)
	s.reader = eventlog.NewReader(store, logOpt, eventlog.WithFetchConcurrency(s.fetchConcurrency))
	return s, nil
}

// Append records f on behalf of caller.
//
// An empty owner becomes the caller. Empty teamId and orgId are stamped from
// the caller when unambiguous (exactly one team, a non-empty org). Callers
// below scope all may only append flights they own, for their own teams and
// organization.
func (s *Service) Append(ctx context.Context, caller domain.Identity, f *models.Flight) (*eventlog.AppendResult, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := authorizeAppend(caller, f); err != nil {
		s.logger.WarnContext(ctx, "flight append forbidden",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", caller.UserID,
			"flight_owner", f.Owner,
		)
		return nil, err
	}
	stampOwnership(caller, f)

	res, err := s.writer.Append(ctx, f)
	if err != nil {
		return nil, s.translate(ctx, err, "append")
	}
	s.metrics.IncrementAppended(string(f.Status))
	s.logger.InfoContext(ctx, "flight appended",
		"request_id", requestcontext.RequestID(ctx),
		"flight_id", res.ID,
		"partition_key", res.PartitionKey,
		"status", string(f.Status),
	)
	return res, nil
}

func authorizeAppend(caller domain.Identity, f *models.Flight) error {
	if caller.Granted.Covers(domain.ScopeAll) {
		return nil
	}
	if f.Owner != "" && f.Owner != caller.UserID {
		return dErrors.New(dErrors.CodeForbidden, "cannot append flights owned by another user")
	}
	if f.TeamID != "" && !caller.InTeam(f.TeamID) {
		return dErrors.New(dErrors.CodeForbidden, "cannot append flights for a team you are not in")
	}
	if f.OrgID != "" && f.OrgID != caller.OrgID {
		return dErrors.New(dErrors.CodeForbidden, "cannot append flights for another organization")
	}
	return nil
}

func stampOwnership(caller domain.Identity, f *models.Flight) {
	if f.Owner == "" {
		f.Owner = caller.UserID
	}
	if f.TeamID == "" && len(caller.TeamIDs) == 1 {
		f.TeamID = caller.TeamIDs[0]
	}
	if f.OrgID == "" && caller.OrgID != "" {
		f.OrgID = caller.OrgID
	}
}

// Query returns the caller's visible flights matching req.
func (s *Service) Query(ctx context.Context, caller domain.Identity, req QueryRequest) (*eventlog.QueryResult, error) {
	start := time.Now()
	defer s.metrics.ObserveQuery("query", start)

	q, err := s.buildQuery(caller, req)
	if err != nil {
		return nil, err
	}
	res, err := s.reader.Query(ctx, q)
	if err != nil {
		return nil, s.translate(ctx, err, "query")
	}
	s.metrics.AddSkipped(res.Skipped)
	return res, nil
}

// Get returns the latest visible flight with id.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id string) (*models.Flight, error) {
	start := time.Now()
	defer s.metrics.ObserveQuery("get", start)

	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	q, err := s.buildQuery(caller, QueryRequest{})
	if err != nil {
		return nil, err
	}
	q.Limit = eventlog.Unlimited

	res, err := s.reader.Query(ctx, q)
	if err != nil {
		return nil, s.translate(ctx, err, "get")
	}
	s.metrics.AddSkipped(res.Skipped)
	// Results are newest first, so the first hit is the latest record.
	for i := range res.Flights {
		if res.Flights[i].ID == id {
			return &res.Flights[i], nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "flight not found")
}

// Stats counts every visible flight matching req per status. Limit is ignored.
func (s *Service) Stats(ctx context.Context, caller domain.Identity, req QueryRequest) (*Stats, error) {
	start := time.Now()
	defer s.metrics.ObserveQuery("stats", start)

	q, err := s.buildQuery(caller, req)
	if err != nil {
		return nil, err
	}
	q.Limit = eventlog.Unlimited

	res, err := s.reader.Query(ctx, q)
	if err != nil {
		return nil, s.translate(ctx, err, "stats")
	}
	s.metrics.AddSkipped(res.Skipped)

	stats := &Stats{ByStatus: make(map[domain.FlightStatus]int), Skipped: res.Skipped}
	for _, f := range res.Flights {
		stats.ByStatus[f.Status]++
		stats.Total++
	}
	return stats, nil
}

func (s *Service) buildQuery(caller domain.Identity, req QueryRequest) (eventlog.Query, error) {
	scope, err := ResolveScope(caller, req.Scope)
	if err != nil {
		return eventlog.Query{}, err
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return eventlog.Query{}, dErrors.New(dErrors.CodeValidation, "to must not be before from")
	}
	if req.Limit < 0 {
		return eventlog.Query{}, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}

	limit := req.Limit
	if limit == 0 && s.defaultLimit > 0 {
		limit = s.defaultLimit
	}

	preds := eventlog.ScopePredicates(scope, caller)
	if req.Status != "" {
		if _, err := domain.ParseFlightStatus(string(req.Status)); err != nil {
			return eventlog.Query{}, err
		}
		preds = append(preds, eventlog.StatusEquals(req.Status))
	}
	return eventlog.Query{
		Predicates: preds,
		From:       req.From,
		To:         req.To,
		Limit:      limit,
	}, nil
}

// ResolveScope picks the effective scope for caller. An empty request means
// the caller's granted scope.
//
// Errors:
//   - CodeUnauthorized when there is no caller
//   - CodeValidation for an unknown scope
//   - CodeForbidden when requested is broader than granted, or org scope is
//     requested by a caller without an organization
func ResolveScope(caller domain.Identity, requested domain.Scope) (domain.Scope, error) {
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	granted := caller.Granted
	if !granted.IsValid() {
		granted = domain.ScopeOwn
	}
	scope := requested
	if scope == "" {
		scope = granted
	}
	if !scope.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid scope "+string(scope))
	}
	if !granted.Covers(scope) {
		return "", dErrors.New(dErrors.CodeForbidden, "scope "+string(scope)+" exceeds granted scope "+string(granted))
	}
	if scope == domain.ScopeOrg && caller.OrgID == "" {
		return "", dErrors.New(dErrors.CodeForbidden, "org scope requires an organization")
	}
	return scope, nil
}

func (s *Service) translate(ctx context.Context, err error, operation string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "flight store request timed out")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	if _, ok := dErrors.As(err); ok {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			s.metrics.IncrementStoreError(operation)
			s.logger.ErrorContext(ctx, "flight store unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"operation", operation,
				"error", err,
			)
		}
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "flight "+operation+" failed")
}
