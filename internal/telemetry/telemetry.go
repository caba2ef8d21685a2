// Package telemetry holds the OpenTelemetry instruments shared by the
// arbiter and the decision service.
//
// Only the OpenTelemetry API is used. Without an SDK installed by the host
// process the global providers are no-ops, so instrumentation is free in
// tests and in the CLI.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies robocof's tracer and meter.
const InstrumentationName = "github.com/robocof/robocof"

// Attribute keys.
const (
	AttrRunID     = attribute.Key("robocof.run.id")
	AttrDecision  = attribute.Key("robocof.decision")
	AttrWinner    = attribute.Key("robocof.winner")
	AttrDebug     = attribute.Key("robocof.debug")
	AttrTimeout   = attribute.Key("robocof.timeout_seconds")
	AttrRobotRun  = attribute.Key("robocof.robot_run_id")
	AttrErrorType = attribute.Key("error.type")
)

// Instruments bundles the tracer and the RED-style instruments.
type Instruments struct {
	tracer    trace.Tracer
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
	callbacks metric.Int64Counter
	rejected  metric.Int64Counter
}

// New creates Instruments from the global providers. Instrument creation
// errors leave the affected instrument nil; recording on it is skipped.
func New() *Instruments {
	meter := otel.Meter(InstrumentationName)
	in := &Instruments{tracer: otel.Tracer(InstrumentationName)}

	in.decisions, _ = meter.Int64Counter("robocof.decisions.total",
		metric.WithDescription("Arbitration runs by resulting decision"),
		metric.WithUnit("{run}"),
	)
	in.duration, _ = meter.Float64Histogram("robocof.run.duration",
		metric.WithDescription("Arbitration run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60, 120),
	)
	in.callbacks, _ = meter.Int64Counter("robocof.callbacks.total",
		metric.WithDescription("Deferred decision deliveries by result"),
		metric.WithUnit("{callback}"),
	)
	in.rejected, _ = meter.Int64Counter("robocof.requests.rejected",
		metric.WithDescription("Decision requests rejected before a run started"),
		metric.WithUnit("{request}"),
	)
	return in
}

// StartSpan starts an internal span.
func (in *Instruments) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordDecision records the outcome and duration of one run.
func (in *Instruments) RecordDecision(ctx context.Context, decision string, elapsed time.Duration, debug bool) {
	attrs := metric.WithAttributes(AttrDecision.String(decision), AttrDebug.Bool(debug))
	if in.decisions != nil {
		in.decisions.Add(ctx, 1, attrs)
	}
	if in.duration != nil {
		in.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// RecordCallback records one callback delivery attempt sequence.
func (in *Instruments) RecordCallback(ctx context.Context, ok bool) {
	if in.callbacks != nil {
		in.callbacks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
	}
}

// RecordRejected records a request rejected before arbitration.
func (in *Instruments) RecordRejected(ctx context.Context, reason string) {
	if in.rejected != nil {
		in.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}
