package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span exporter for test assertions.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestInitTraceProviderNoopWhenEmpty(t *testing.T) {
	shutdown, err := InitTraceProvider(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestStartJobSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	_, span := StartJobSpan(ctx, "poll_dashboard_actions", "ticker")
	EndJobSpan(span, "ok", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "job.run" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "job.run")
	}

	foundJob, foundTrigger, foundStatus := false, false, false
	for _, a := range spans[0].Attributes {
		switch string(a.Key) {
		case "operator.job":
			foundJob = a.Value.AsString() == "poll_dashboard_actions"
		case "operator.trigger":
			foundTrigger = a.Value.AsString() == "ticker"
		case "operator.status":
			foundStatus = a.Value.AsString() == "ok"
		}
	}
	if !foundJob || !foundTrigger || !foundStatus {
		t.Errorf("missing expected attributes: job=%v trigger=%v status=%v", foundJob, foundTrigger, foundStatus)
	}
}

func TestEndJobSpanRecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	_, span := StartJobSpan(ctx, "run_daily_research", "cron")
	EndJobSpan(span, "error", errors.New("scrape failed"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if len(spans[0].Events) == 0 {
		t.Errorf("want an error event recorded on the span")
	}
}

func TestStartApprovalSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	_, span := StartApprovalSpan(ctx, "approve", 42)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "approval.transition" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "approval.transition")
	}

	foundTransition, foundID := false, false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "operator.transition" && a.Value.AsString() == "approve" {
			foundTransition = true
		}
		if string(a.Key) == "operator.approval_id" && a.Value.AsInt64() == 42 {
			foundID = true
		}
	}
	if !foundTransition || !foundID {
		t.Errorf("missing expected attributes: transition=%v id=%v", foundTransition, foundID)
	}
}

func TestStartSchedulerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	_, span := StartSchedulerSpan(ctx, "tweet", "job-7")
	EndSchedulerSpan(span, "executed", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "scheduler.execute" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "scheduler.execute")
	}
}

func TestStartLLMCallSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	_, llmSpan := StartLLMCallSpan(ctx, "gpt-4o-mini", "openai", "cheap")
	EndLLMCallSpan(llmSpan, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "gen_ai.chat" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "gen_ai.chat")
	}

	foundModel, foundSystem, foundTier := false, false, false
	for _, a := range spans[0].Attributes {
		switch string(a.Key) {
		case "gen_ai.request.model":
			foundModel = a.Value.AsString() == "gpt-4o-mini"
		case "gen_ai.system":
			foundSystem = a.Value.AsString() == "openai"
		case "operator.model_tier":
			foundTier = a.Value.AsString() == "cheap"
		}
	}
	if !foundModel || !foundSystem || !foundTier {
		t.Errorf("missing expected attributes: model=%v system=%v tier=%v", foundModel, foundSystem, foundTier)
	}
}

func TestNestedJobAndApprovalSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	ctx, jobSpan := StartJobSpan(ctx, "poll_dashboard_actions", "ticker")
	_, approvalSpan := StartApprovalSpan(ctx, "mark_executed", 1)
	approvalSpan.End()
	EndJobSpan(jobSpan, "ok", nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	approvalStub := spans[0] // ends first
	jobStub := spans[1]

	if approvalStub.Parent.TraceID() != jobStub.SpanContext.TraceID() {
		t.Error("approval span should share trace ID with job span")
	}
	if !approvalStub.Parent.SpanID().IsValid() {
		t.Error("approval span should have a valid parent span ID")
	}
}
