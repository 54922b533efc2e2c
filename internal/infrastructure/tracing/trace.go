package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
)

// Tracer creates spans for the run, worker scans and disposition rounds.
// A nil *Tracer is valid and produces no-op spans.
type Tracer struct {
	service  string
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	sink     io.Closer
	logger   *logging.Logger
}

// New creates a tracer. With an empty path spans are only logged at debug
// level; otherwise they are also exported as JSON to the file at path.
func New(service, path string, logger *logging.Logger) (*Tracer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracer{service: service, logger: logger.Named("trace")}

	if path == "" {
		t.tracer = noop.NewTracerProvider().Tracer(service)
		return t, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	)
	t.tracer = t.provider.Tracer(service)
	t.sink = f
	return t, nil
}

// Span is one traced operation.
type Span struct {
	name   string
	start  time.Time
	span   trace.Span
	logger *logging.Logger
}

// Start begins a span as a child of any span already in ctx.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	if t == nil {
		return ctx, &Span{name: name, start: time.Now(), span: trace.SpanFromContext(context.Background())}
	}
	ctx, s := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{name: name, start: time.Now(), span: s, logger: t.logger}
}

// SetInt attaches an integer attribute.
func (s *Span) SetInt(key string, v int) {
	s.span.SetAttributes(attribute.Int(key, v))
}

// SetString attaches a string attribute.
func (s *Span) SetString(key, v string) {
	s.span.SetAttributes(attribute.String(key, v))
}

// End finishes the span, recording err if non-nil.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()

	if s.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", s.name),
		zap.Duration("duration", time.Since(s.start)),
	}
	if sc := s.span.SpanContext(); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()), zap.String("span_id", sc.SpanID().String()))
	}
	if err != nil {
		s.logger.Debug("span completed with error", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("span completed", fields...)
}

// Shutdown flushes the exporter and closes the trace file.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer: %w", err)
	}
	return t.sink.Close()
}
