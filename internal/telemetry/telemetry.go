// Package telemetry wires the OpenTelemetry meter provider to a
// Prometheus registry and optionally serves it over HTTP. Spans can be
// written to a file as JSON lines.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// Config controls metrics collection.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Listen is the address /metrics is served on. Empty disables the
	// HTTP endpoint while still collecting.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// TraceFile receives session and synthesis spans. Empty disables
	// tracing.
	TraceFile string `yaml:"trace_file" mapstructure:"trace_file"`
}

// Telemetry owns the meter provider and the metrics endpoint.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	tracer   *sdktrace.TracerProvider
	traceOut *os.File
	handler  http.Handler
	server   *http.Server
	addr     string
	logger   *log.Logger
}

// Setup installs a meter provider backed by a private Prometheus registry
// as the global provider.
func Setup(ctx context.Context, cfg Config, version string, logger *log.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("telemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("narrate"),
			semconv.ServiceVersion(version),
			attribute.String("host.arch", runtime.GOARCH),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	t := &Telemetry{
		provider: provider,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		logger:   logger,
	}

	if cfg.TraceFile != "" {
		if err := t.traceTo(cfg.TraceFile, res); err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
	}
	if cfg.Listen != "" {
		if err := t.serve(cfg.Listen); err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
	}
	return t, nil
}

func (t *Telemetry) traceTo(path string, res *resource.Resource) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("trace file: %w", err)
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("trace exporter: %w", err)
	}
	t.traceOut = f
	t.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(t.tracer)
	t.logger.Debug("writing spans", "path", path)
	return nil
}

func (t *Telemetry) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)

	t.addr = ln.Addr().String()
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("metrics server stopped", "err", err)
		}
	}()
	t.logger.Info("serving metrics", "addr", t.addr)
	return nil
}

// MeterProvider returns the provider installed by Setup.
func (t *Telemetry) MeterProvider() metric.MeterProvider { return t.provider }

// Handler serves the Prometheus text format.
func (t *Telemetry) Handler() http.Handler { return t.handler }

// Addr is the address the metrics server listens on, or empty.
func (t *Telemetry) Addr() string { return t.addr }

// Shutdown stops the HTTP server and flushes both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		t.server = nil
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		t.tracer = nil
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, err)
		}
		t.traceOut = nil
	}
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		t.provider = nil
	}
	return errors.Join(errs...)
}
