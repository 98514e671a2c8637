package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InitProvider wires a Prometheus-backed OTel MeterProvider and returns
// the /metrics scrape handler alongside it. Grounded on
// MrWong99-glyphoxa's observe.InitProvider, trimmed to metrics only —
// SPEC_FULL has no tracing component.
func InitProvider(serviceName string) (*sdkmetric.MeterProvider, http.Handler, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)

	return mp, promhttp.Handler(), nil
}

// Shutdown flushes and closes the meter provider. Call from a defer in
// main after InitProvider succeeds.
func Shutdown(ctx context.Context, mp *sdkmetric.MeterProvider) error {
	return mp.Shutdown(ctx)
}
