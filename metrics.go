package upxfer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/derektruong/upxfer"

// engineMetrics holds the OpenTelemetry instruments of an engine.
type engineMetrics struct {
	bytesUploaded metric.Int64Counter
	partsUploaded metric.Int64Counter
	sessions      metric.Int64Counter
}

func newEngineMetrics(provider metric.MeterProvider) (m *engineMetrics, err error) {
	meter := provider.Meter(meterName)
	m = new(engineMetrics)
	if m.bytesUploaded, err = meter.Int64Counter(
		"upxfer.bytes_uploaded",
		metric.WithUnit("By"),
		metric.WithDescription("Bytes of committed parts."),
	); err != nil {
		return
	}
	if m.partsUploaded, err = meter.Int64Counter(
		"upxfer.parts_uploaded",
		metric.WithUnit("{part}"),
		metric.WithDescription("Committed parts."),
	); err != nil {
		return
	}
	m.sessions, err = meter.Int64Counter(
		"upxfer.sessions",
		metric.WithUnit("{session}"),
		metric.WithDescription("Terminated upload sessions by final state."),
	)
	return
}

func (m *engineMetrics) recordPart(ctx context.Context, size int64) {
	m.partsUploaded.Add(ctx, 1)
	m.bytesUploaded.Add(ctx, size)
}

func (m *engineMetrics) recordSession(ctx context.Context, state SessionState) {
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", state.String())))
}
