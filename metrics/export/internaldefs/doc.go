// Package internaldefs maps engine MetricIDs onto the exported metric
// families, so the Prometheus and OTel exporters publish the same series.
package internaldefs
