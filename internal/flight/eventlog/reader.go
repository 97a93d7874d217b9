package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"flighttracker/internal/flight/models"
	"flighttracker/internal/storage/blob"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/sentinel"
)

const (
	// DefaultLimit applies when a query leaves Limit at zero.
	DefaultLimit = 100
	// MaxLimit caps any requested limit.
	MaxLimit = 1000
	// Unlimited disables the cap. Used for aggregate scans.
	Unlimited = -1
)

// Query selects flights. Predicates are ANDed. From and To bound createdAt
// inclusively; a zero bound is open and also narrows the partitions read.
type Query struct {
	Predicates []Predicate
	From       time.Time
	To         time.Time
	Limit      int
}

// QueryResult holds ordered flights and read statistics.
type QueryResult struct {
	Flights []models.Flight
	// Skipped counts malformed lines across every partition read.
	Skipped int
	// Matched counts flights passing the filters before the cap.
	Matched int
	// Partitions counts partition objects downloaded.
	Partitions int
}

// Reader runs filtered queries over the partitioned log.
type Reader struct {
	store       blob.Store
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
}

// NewReader creates a Reader over store.
func NewReader(store blob.Store, opts ...Option) *Reader {
	o := newOptions(opts)
	return &Reader{
		store:       store,
		logger:      o.logger,
		tracer:      o.tracer,
		concurrency: o.concurrency,
	}
}

// EffectiveLimit normalizes a requested limit.
func EffectiveLimit(limit int) int {
	switch {
	case limit < 0:
		return Unlimited
	case limit == 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Query returns flights matching q, newest first with ties broken by id.
// Missing partitions read as empty. Malformed lines are skipped and counted.
//
// Errors: CodeUnavailable when listing or downloading fails for any reason
// other than a missing object; the context error when ctx ends.
func (r *Reader) Query(ctx context.Context, q Query) (*QueryResult, error) {
	ctx, span := r.tracer.Start(ctx, "eventlog.query", trace.WithAttributes(
		attribute.Int("query.predicates", len(q.Predicates)),
		attribute.Int("query.limit", q.Limit),
	))
	defer span.End()

	keys, err := r.partitions(ctx, q.From, q.To)
	if err != nil {
		span.RecordError(err)
		return nil, r.storeError(ctx, err)
	}

	bodies, err := r.fetch(ctx, keys)
	if err != nil {
		span.RecordError(err)
		return nil, r.storeError(ctx, err)
	}

	result := &QueryResult{Partitions: len(keys)}
	var matched []models.Flight
	for i, body := range bodies {
		flights, skipped := DecodeLines(body)
		if skipped > 0 {
			r.logger.DebugContext(ctx, "skipped malformed flight lines",
				"partition_key", keys[i],
				"skipped", skipped,
			)
		}
		result.Skipped += skipped
		for j := range flights {
			f := &flights[j]
			if !inRange(f.CreatedAt, q.From, q.To) || !MatchAll(q.Predicates, f) {
				continue
			}
			matched = append(matched, *f)
		}
	}

	SortFlights(matched)
	result.Matched = len(matched)
	if limit := EffectiveLimit(q.Limit); limit != Unlimited && len(matched) > limit {
		matched = matched[:limit]
	}
	result.Flights = matched

	span.SetAttributes(
		attribute.Int("query.partitions", result.Partitions),
		attribute.Int("query.matched", result.Matched),
		attribute.Int("query.skipped", result.Skipped),
	)
	return result, nil
}

// SortFlights orders by createdAt descending, then id ascending. The sort is
// stable so duplicates keep partition order.
func SortFlights(flights []models.Flight) {
	sort.SliceStable(flights, func(i, j int) bool {
		a, b := flights[i], flights[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// partitions enumerates partition keys overlapping [from, to] in key order.
func (r *Reader) partitions(ctx context.Context, from, to time.Time) ([]string, error) {
	prefixes, narrowed := dayPrefixes(from, to)
	if !narrowed {
		prefixes = []string{RootPrefix}
	}

	listed := make([][]string, len(prefixes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, prefix := range prefixes {
		g.Go(func() error {
			keys, err := r.store.List(gctx, prefix)
			if err != nil {
				return fmt.Errorf("list %s: %w", prefix, err)
			}
			listed[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var keys []string
	for _, batch := range listed {
		for _, key := range batch {
			day, ok := ParsePartitionKey(key)
			if !ok || !dayInRange(day, from, to) {
				continue
			}
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// fetch downloads keys concurrently. Missing objects yield nil bodies.
func (r *Reader) fetch(ctx context.Context, keys []string) ([][]byte, error) {
	bodies := make([][]byte, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			data, err := r.store.Get(gctx, key)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", key, err)
			}
			bodies[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (r *Reader) storeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	r.logger.WarnContext(ctx, "flight store unavailable", "error", err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "flight store unavailable")
}
