package goJWT

import (
	"errors"
	"sync/atomic"
	"time"
)

// MetricID identifies an Engine counter or histogram.
type MetricID uint16

const (
	// MetricSignSuccess counts issued tokens.
	MetricSignSuccess MetricID = iota
	// MetricSignFailure counts Sign calls that returned an error.
	MetricSignFailure
	// MetricVerifySuccess counts tokens that passed every stage.
	MetricVerifySuccess
	// MetricVerifyMalformed counts structural and decoding failures.
	MetricVerifyMalformed
	// MetricVerifyAlgorithmRejected counts unsupported or not allow-listed alg values.
	MetricVerifyAlgorithmRejected
	// MetricVerifyInvalidSignature counts signature and key type failures.
	MetricVerifyInvalidSignature
	// MetricVerifyExpired counts exp and max age failures.
	MetricVerifyExpired
	// MetricVerifyNotActive counts nbf failures.
	MetricVerifyNotActive
	// MetricVerifyClaimMismatch counts aud, iss, sub and jti mismatches.
	MetricVerifyClaimMismatch
	// MetricVerifyUnknownKeyID counts tokens whose kid selects no key.
	MetricVerifyUnknownKeyID
	// MetricVerifyRevoked counts tokens found on the revocation list.
	MetricVerifyRevoked
	// MetricRevocationUnavailable counts revocation backend failures.
	MetricRevocationUnavailable
	// MetricRevokeSuccess counts successful Revoke calls.
	MetricRevokeSuccess
	// MetricAsyncRejected counts async calls abandoned before a worker slot was free.
	MetricAsyncRejected
	// MetricSignLatency is the Sign latency histogram.
	MetricSignLatency
	// MetricVerifyLatency is the Verify latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and latency histograms. A nil or
// disabled Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only latency ids have
// histograms; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and every histogram when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range [...]MetricID{MetricSignLatency, MetricVerifyLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricSignLatency || id == MetricVerifyLatency
}

// bucketIndex maps d to one of 8 buckets: 50us, 100us, 250us, 500us, 1ms,
// 5ms, 25ms, +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 5000:
		return 5
	case us <= 25000:
		return 6
	default:
		return 7
	}
}

// verifyMetric maps a Verify error to its counter.
func verifyMetric(err error) MetricID {
	switch {
	case err == nil:
		return MetricVerifySuccess
	case errors.Is(err, ErrTokenRevoked):
		return MetricVerifyRevoked
	case errors.Is(err, ErrRevocationUnavailable):
		return MetricRevocationUnavailable
	case errors.Is(err, ErrUnknownKeyID):
		return MetricVerifyUnknownKeyID
	case errors.Is(err, ErrUnsupportedAlgorithm), errors.Is(err, ErrAlgorithmNotAllowed):
		return MetricVerifyAlgorithmRejected
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrInvalidKeyType):
		return MetricVerifyInvalidSignature
	case errors.Is(err, ErrTokenExpired):
		return MetricVerifyExpired
	case errors.Is(err, ErrTokenNotActive):
		return MetricVerifyNotActive
	case errors.Is(err, ErrAudienceMismatch),
		errors.Is(err, ErrIssuerMismatch),
		errors.Is(err, ErrSubjectMismatch),
		errors.Is(err, ErrJWTIDMismatch):
		return MetricVerifyClaimMismatch
	default:
		return MetricVerifyMalformed
	}
}
