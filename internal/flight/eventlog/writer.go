package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flighttracker/internal/flight/models"
	"flighttracker/internal/storage/blob"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/sentinel"
	"flighttracker/pkg/requestcontext"
)

// Writer appends flights to their day partition.
type Writer struct {
	store  blob.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// AppendResult identifies where an appended flight landed.
type AppendResult struct {
	ID           string
	PartitionKey string
}

// NewWriter creates a Writer over store.
func NewWriter(store blob.Store, opts ...Option) *Writer {
	o := newOptions(opts)
	return &Writer{store: store, logger: o.logger, tracer: o.tracer}
}

// Append validates f and appends it to the partition of its createdAt day.
// A zero CreatedAt is set on f from the request clock.
//
// Errors:
//   - CodeValidation when id or status is missing or invalid; no I/O happens
//   - CodeUnavailable when the store cannot be read or written
//   - the context error when ctx ends before the write
func (w *Writer) Append(ctx context.Context, f *models.Flight) (*AppendResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = requestcontext.Now(ctx)
	}
	f.CreatedAt = f.CreatedAt.UTC()

	key := PartitionKey(f.CreatedAt)
	line, err := EncodeLine(f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "flight cannot be encoded")
	}

	ctx, span := w.tracer.Start(ctx, "eventlog.append", trace.WithAttributes(
		attribute.String("flight.id", f.ID),
		attribute.String("partition.key", key),
	))
	defer span.End()

	existing, err := w.store.Get(ctx, key)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
		return nil, w.storeError(ctx, err, "read partition")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := w.store.Put(ctx, key, appendLine(existing, line)); err != nil {
		span.RecordError(err)
		return nil, w.storeError(ctx, err, "write partition")
	}

	w.logger.DebugContext(ctx, "flight appended",
		"flight_id", f.ID,
		"partition_key", key,
		"partition_bytes", len(existing)+len(line),
	)
	return &AppendResult{ID: f.ID, PartitionKey: key}, nil
}

func (w *Writer) storeError(ctx context.Context, err error, op string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return dErrors.Wrap(fmt.Errorf("%s: %w", op, err), dErrors.CodeUnavailable, "flight store unavailable")
}
