// Package prometheus renders goJWT engine metrics in Prometheus text
// exposition format.
//
// Outcomes are labelled series of one family each:
//
//	gojwt_sign_total{result="success"} 12
//	gojwt_verify_total{result="expired"} 3
//	gojwt_operation_duration_seconds_bucket{op="verify",le="0.0001"} 40
//
// The exporter never touches a global registry; mount [PrometheusExporter.Handler]
// wherever the service serves metrics.
package prometheus
