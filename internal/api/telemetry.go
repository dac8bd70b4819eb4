package api

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("market-teller/api")
	meter  = otel.Meter("market-teller/api")
)

// checkoutMetrics counts checkout attempts by outcome.
type checkoutMetrics struct {
	checkouts metric.Int64Counter
}

func newCheckoutMetrics() *checkoutMetrics {
	// Metrics are best effort; a nil counter is simply skipped.
	checkouts, _ := meter.Int64Counter("checkouts_total",
		metric.WithDescription("Number of checkout requests by outcome"),
	)
	return &checkoutMetrics{checkouts: checkouts}
}

func (m *checkoutMetrics) record(ctx context.Context, span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("checkout.outcome", outcome))
	if m.checkouts != nil {
		m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
