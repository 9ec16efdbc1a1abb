package bootstrap

import (
	"context"

	"ioclens/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// InitTracing builds the tracer provider for service spans. Finished spans are
// written to the debug log. It returns nil when tracing is disabled.
func InitTracing(cfg config.TracingConfig, sugar *zap.SugaredLogger) *sdktrace.TracerProvider {
	if !cfg.Enabled {
		return nil
	}
	return newTracerProvider(cfg, &logSpanExporter{logger: sugar})
}

func newTracerProvider(cfg config.TracingConfig, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "ioclens"
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
}

// logSpanExporter writes finished spans to the logger
type logSpanExporter struct {
	logger *zap.SugaredLogger
}

func (e *logSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := []interface{}{
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"status", span.Status().Code.String(),
		}
		for _, attr := range span.Attributes() {
			fields = append(fields, string(attr.Key), attr.Value.Emit())
		}
		e.logger.Debugw("Span finished", fields...)
	}
	return nil
}

func (e *logSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}
