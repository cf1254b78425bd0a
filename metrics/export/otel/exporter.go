package otel

import (
	"context"
	"errors"
	"fmt"

	goJWT "github.com/MrEthical07/goJWT"
	"github.com/MrEthical07/goJWT/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source supplies snapshots. *goJWT.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goJWT.MetricsSnapshot
	AuditDropped() uint64
}

// series is one observation: the engine metric and its precomputed attributes.
type series struct {
	id    goJWT.MetricID
	attrs metric.MeasurementOption
}

type counterFamily struct {
	instrument metric.Int64ObservableCounter
	series     []series
}

// OTelExporter publishes engine metrics as observable instruments. A single
// callback takes one snapshot per collection cycle.
type OTelExporter struct {
	source       Source
	registration metric.Registration

	counters     []counterFamily
	buckets      metric.Int64ObservableGauge
	count        metric.Int64ObservableGauge
	latency      []series
	bucketAttrs  [][internaldefs.BucketCount]metric.MeasurementOption
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *goJWT.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter that read from
// source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, f := range internaldefs.Counters {
		ins, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		fam := counterFamily{instrument: ins}
		for _, s := range f.Series {
			fam.series = append(fam.series, series{id: s.ID, attrs: labelSet(f.Label, s.Value)})
		}
		e.counters = append(e.counters, fam)
		observables = append(observables, ins)
	}

	h := internaldefs.Latency
	buckets, err := meter.Int64ObservableGauge(h.Name+"_bucket",
		metric.WithDescription(h.Help+" Cumulative bucket counts."))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s_bucket: %w", h.Name, err)
	}
	count, err := meter.Int64ObservableGauge(h.Name+"_count",
		metric.WithDescription(h.Help+" Sample count."))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s_count: %w", h.Name, err)
	}
	e.buckets, e.count = buckets, count
	observables = append(observables, buckets, count)

	for _, s := range h.Series {
		e.latency = append(e.latency, series{id: s.ID, attrs: labelSet(h.Label, s.Value)})
		var perBucket [internaldefs.BucketCount]metric.MeasurementOption
		for i, le := range internaldefs.Bounds {
			perBucket[i] = metric.WithAttributeSet(attribute.NewSet(
				attribute.String(h.Label, s.Value),
				attribute.String("le", le),
			))
		}
		e.bucketAttrs = append(e.bucketAttrs, perBucket)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, fam := range e.counters {
		for _, s := range fam.series {
			o.ObserveInt64(fam.instrument, int64(snap.Counters[s.id]), s.attrs)
		}
	}
	if len(snap.Histograms) > 0 {
		for i, s := range e.latency {
			cum := internaldefs.Cumulative(snap.Histograms[s.id])
			for b := range cum {
				o.ObserveInt64(e.buckets, int64(cum[b]), e.bucketAttrs[i][b])
			}
			o.ObserveInt64(e.count, int64(cum[internaldefs.BucketCount-1]), s.attrs)
		}
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

func labelSet(key, value string) metric.MeasurementOption {
	if key == "" {
		return metric.WithAttributeSet(attribute.NewSet())
	}
	return metric.WithAttributeSet(attribute.NewSet(attribute.String(key, value)))
}
