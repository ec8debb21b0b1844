// Package telemetry traces the phases of an analysis run with
// OpenTelemetry.
//
// Tracing is off unless OTEL_ENABLED=true. When enabled, spans are
// exported over OTLP (gRPC by default, or HTTP when
// OTEL_EXPORTER_OTLP_PROTOCOL=http/protobuf).
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span we create.
const TracerName = "github.com/leak-analysis"

// Phase names one stage of turning trace logs into leak reports. It is
// used as the span name.
type Phase string

const (
	PhaseParse        Phase = "leak.parse"
	PhaseBuild        Phase = "leak.build"
	PhaseRender       Phase = "leak.render"
	PhaseSaveSnapshot Phase = "leak.snapshot.save"
	PhaseLoadSnapshot Phase = "leak.snapshot.load"
)

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global TracerProvider. version is reported as the
// service version unless OTEL_SERVICE_VERSION overrides it. With tracing
// disabled the no-op provider stays in place.
func Init(ctx context.Context, version string) (ShutdownFunc, error) {
	cfg := loadConfig()
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version
	}

	res, err := buildResource(cfg)
	if err != nil {
		return noopShutdown, err
	}
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// Enabled reports whether OTEL_ENABLED turned tracing on.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the environment configuration, read once.
func GetConfig() *Config {
	return loadConfig()
}

// Start opens a span for phase.
func Start(ctx context.Context, phase Phase, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, string(phase), trace.WithAttributes(attrs...))
}

// Finish marks span failed when err is set and ends it.
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}
