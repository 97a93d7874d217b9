package eventlog

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultFetchConcurrency bounds concurrent partition downloads per query.
const DefaultFetchConcurrency = 8

type options struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithFetchConcurrency bounds concurrent partition downloads. Values below 1
// keep the default.
func WithFetchConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		tracer:      otel.Tracer("flighttracker/eventlog"),
		concurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
