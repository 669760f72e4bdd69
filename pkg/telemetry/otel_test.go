package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := Sampler(tt.ratio).Description(); got != tt.want {
			t.Errorf("Sampler(%v) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}

func TestStartEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "tablelog.load", attribute.String("source", "log.csv"))
	_, child := StartSpan(ctx, "tablelog.track")
	EndSpan(child, nil)
	EndSpan(span, errors.New("bad timestamp"))

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(ended))
	}
	if ended[0].Name() != "tablelog.track" || ended[0].Status().Code == codes.Error {
		t.Errorf("unexpected child span %s %v", ended[0].Name(), ended[0].Status())
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Error("child span should be parented to the load span")
	}
	if ended[1].Status().Code != codes.Error || ended[1].Status().Description != "bad timestamp" {
		t.Errorf("unexpected status %v", ended[1].Status())
	}
	if len(ended[1].Events()) == 0 {
		t.Error("Expected the error to be recorded as an event")
	}
}
