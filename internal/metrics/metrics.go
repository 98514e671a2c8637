// Package metrics holds the process-wide OpenTelemetry instruments:
// live session count, turn latency, tool-call counts, and TTS fallback
// counts. Grounded on MrWong99-glyphoxa's internal/observe package.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/voxcore/voxcore"

// Metrics holds every OTel instrument the orchestrator records against.
// All fields are safe for concurrent use.
type Metrics struct {
	ActiveSessions metric.Int64UpDownCounter
	TurnDuration   metric.Float64Histogram
	ToolCalls      metric.Int64Counter
	TTSFallbacks   metric.Int64Counter
}

var turnLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16}

// New creates a fully initialized Metrics from a meter provider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.ActiveSessions, err = m.Int64UpDownCounter("voxcore.sessions.active",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("voxcore.turn.duration",
		metric.WithDescription("Latency of one listen-think-speak turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(turnLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("voxcore.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.TTSFallbacks, err = m.Int64Counter("voxcore.tts.fallbacks",
		metric.WithDescription("Total times the TTS chain fell through to the next provider."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordToolCall increments the tool-call counter with the standard
// attribute set. Nil-safe: a nil *Metrics means metrics are disabled.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	if m == nil {
		return
	}
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

// RecordTTSFallback increments the TTS fallback counter, attributed by
// the provider that just failed or produced no output.
func (m *Metrics) RecordTTSFallback(ctx context.Context, fromProvider string) {
	if m == nil {
		return
	}
	m.TTSFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("from_provider", fromProvider)))
}

// SessionStarted increments the active-session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active-session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

// RecordTurn records one turn's duration in seconds.
func (m *Metrics) RecordTurn(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.TurnDuration.Record(ctx, seconds)
}
