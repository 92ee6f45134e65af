package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/petespantry/storefront/internal/config"
)

// InitMeterProvider installs a Prometheus-backed MeterProvider and starts
// runtime metrics. It returns the /metrics handler and a shutdown function.
func InitMeterProvider(cfg config.TelemetryConfig) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(cfg)),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// PaymentMetrics records payment outcomes and gateway latency.
type PaymentMetrics struct {
	payments        metric.Int64Counter
	gatewayDuration metric.Float64Histogram
}

// NewPaymentMetrics builds instruments from the global MeterProvider, which
// is a no-op until InitMeterProvider has run.
func NewPaymentMetrics() *PaymentMetrics {
	meter := otel.Meter("storefront/payments")

	payments, err := meter.Int64Counter("storefront_payments_total",
		metric.WithDescription("Payment attempts by method and outcome"))
	if err != nil {
		otel.Handle(err)
	}

	gatewayDuration, err := meter.Float64Histogram("storefront_gateway_duration_seconds",
		metric.WithDescription("Latency of calls to payment gateways"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return &PaymentMetrics{payments: payments, gatewayDuration: gatewayDuration}
}

func (m *PaymentMetrics) RecordPayment(ctx context.Context, method, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

func (m *PaymentMetrics) RecordGatewayCall(ctx context.Context, gateway, operation string, started time.Time, err error) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	))
}
