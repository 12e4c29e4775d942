package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/dgnsrekt/narrate/internal/pipeline"

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(meterName)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// metrics records pipeline activity against the global meter provider,
// which is a no-op unless telemetry has been set up.
type metrics struct {
	sessions  metric.Int64Counter
	chunks    metric.Int64Counter
	retries   metric.Int64Counter
	synthTime metric.Float64Histogram
}

func newMetrics(logger *log.Logger) *metrics {
	meter := otel.GetMeterProvider().Meter(meterName)
	m := &metrics{}

	var err error
	if m.sessions, err = meter.Int64Counter("narrate.sessions",
		metric.WithDescription("Finished playback sessions by outcome")); err != nil {
		logger.Warn("sessions counter unavailable", "err", err)
		m.sessions = noop.Int64Counter{}
	}
	if m.chunks, err = meter.Int64Counter("narrate.chunks.played",
		metric.WithDescription("Chunks played to completion")); err != nil {
		logger.Warn("chunks counter unavailable", "err", err)
		m.chunks = noop.Int64Counter{}
	}
	if m.retries, err = meter.Int64Counter("narrate.retries",
		metric.WithDescription("Playback restarts after network errors")); err != nil {
		logger.Warn("retries counter unavailable", "err", err)
		m.retries = noop.Int64Counter{}
	}
	if m.synthTime, err = meter.Float64Histogram("narrate.synthesis.duration",
		metric.WithDescription("Time to synthesize one chunk"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("synthesis histogram unavailable", "err", err)
		m.synthTime = noop.Float64Histogram{}
	}
	return m
}

func (m *metrics) sessionFinished(state State) {
	m.sessions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", state.String())))
}

func (m *metrics) chunkPlayed() {
	m.chunks.Add(context.Background(), 1)
}

func (m *metrics) retried() {
	m.retries.Add(context.Background(), 1)
}

func (m *metrics) synthesized(engine string, d time.Duration, err error) {
	m.synthTime.Record(context.Background(), d.Seconds(), metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.Bool("error", err != nil),
	))
}
