package service

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope used for service spans
const TracerName = "ioclens/service"

// Option configures optional service collaborators
type Option func(*options)

type options struct {
	tracer trace.Tracer
}

// WithTracerProvider records service spans on tp instead of discarding them
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(TracerName)
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{tracer: noop.NewTracerProvider().Tracer(TracerName)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
