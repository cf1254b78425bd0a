// Package otel binds goJWT engine metrics to an OpenTelemetry Meter.
//
// Each counter family becomes one Int64ObservableCounter whose data points
// carry a result attribute. Latency is published as two gauges,
// gojwt_operation_duration_seconds_bucket{op,le} and _count{op}, because the
// metric API has no observable histogram. Callers own the MeterProvider.
package otel
