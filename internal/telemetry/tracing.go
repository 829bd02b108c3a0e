// Package telemetry configures OpenTelemetry tracing for the operator
// daemon.
//
// LLM-call spans follow the OTel GenAI semantic conventions where
// applicable:
//   - gen_ai.system — the LLM provider
//   - gen_ai.request.model — the model name
//   - gen_ai.usage.input_tokens — tokens consumed
//   - gen_ai.usage.output_tokens — tokens generated
//
// Custom span attributes use the `operator.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "operator/daemon"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC
// exporter. If endpoint is empty, tracing is disabled (a no-op provider is
// used, so tests and offline runs never need a collector).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(), // TLS configurable via env (OTEL_EXPORTER_OTLP_INSECURE)
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("operator-daemon"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// --- Span helpers ---

// StartJobSpan creates the parent span for one periodic job run (a cron
// tick or ticker firing), grounded on the Python source's per-cycle log
// lines.
func StartJobSpan(ctx context.Context, job, trigger string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "job.run",
		trace.WithAttributes(
			attribute.String("operator.job", job),
			attribute.String("operator.trigger", trigger),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndJobSpan enriches the job span with its terminal outcome.
func EndJobSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("operator.status", status))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartApprovalSpan creates a span around a single approval-queue state
// transition (submit, approve, reject, mark_executed, expire).
func StartApprovalSpan(ctx context.Context, transition string, approvalID int64) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "approval.transition",
		trace.WithAttributes(
			attribute.String("operator.transition", transition),
			attribute.Int64("operator.approval_id", approvalID),
		),
	)
}

// StartSchedulerSpan creates a span around one scheduled-job dispatch.
func StartSchedulerSpan(ctx context.Context, contentType, jobID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "scheduler.execute",
		trace.WithAttributes(
			attribute.String("operator.content_type", contentType),
			attribute.String("operator.job_id", jobID),
		),
	)
}

// EndSchedulerSpan enriches the scheduler span with its terminal status.
func EndSchedulerSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("operator.status", status))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartLLMCallSpan creates a child span for an LLM call, following GenAI
// semantic conventions.
func StartLLMCallSpan(ctx context.Context, model, provider, tier string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gen_ai.chat",
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.String("gen_ai.request.model", model),
			attribute.String("operator.model_tier", tier),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndLLMCallSpan enriches the LLM span with usage data and ends it.
func EndLLMCallSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
