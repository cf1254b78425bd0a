package internaldefs

import (
	goJWT "github.com/MrEthical07/goJWT"
)

// Series binds one engine metric to a label value inside its family.
type Series struct {
	ID    goJWT.MetricID
	Value string
}

// CounterFamily is one exported counter. Label is empty for families with a
// single unlabelled series.
type CounterFamily struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// AuditDroppedName is the counter fed by Engine.AuditDropped rather than by
// the snapshot.
const AuditDroppedName = "gojwt_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher queue was full."

// Counters lists every exported counter family in render order.
var Counters = []CounterFamily{
	{
		Name:  "gojwt_sign_total",
		Help:  "Sign calls by result.",
		Label: "result",
		Series: []Series{
			{goJWT.MetricSignSuccess, "success"},
			{goJWT.MetricSignFailure, "failure"},
		},
	},
	{
		Name:  "gojwt_verify_total",
		Help:  "Verify calls by result.",
		Label: "result",
		Series: []Series{
			{goJWT.MetricVerifySuccess, "success"},
			{goJWT.MetricVerifyMalformed, "malformed"},
			{goJWT.MetricVerifyAlgorithmRejected, "algorithm_rejected"},
			{goJWT.MetricVerifyInvalidSignature, "invalid_signature"},
			{goJWT.MetricVerifyExpired, "expired"},
			{goJWT.MetricVerifyNotActive, "not_active"},
			{goJWT.MetricVerifyClaimMismatch, "claim_mismatch"},
			{goJWT.MetricVerifyUnknownKeyID, "unknown_kid"},
			{goJWT.MetricVerifyRevoked, "revoked"},
			{goJWT.MetricRevocationUnavailable, "revocation_unavailable"},
		},
	},
	{
		Name:   "gojwt_revoke_total",
		Help:   "Tokens added to the revocation list.",
		Series: []Series{{goJWT.MetricRevokeSuccess, ""}},
	},
	{
		Name:   "gojwt_async_rejected_total",
		Help:   "Async calls cancelled while waiting for a worker slot.",
		Series: []Series{{goJWT.MetricAsyncRejected, ""}},
	},
}

// Latency is the operation duration histogram, one series per operation.
var Latency = struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}{
	Name:  "gojwt_operation_duration_seconds",
	Help:  "Sign and Verify latency.",
	Label: "op",
	Series: []Series{
		{goJWT.MetricSignLatency, "sign"},
		{goJWT.MetricVerifyLatency, "verify"},
	},
}

// BucketCount is the number of engine latency buckets.
const BucketCount = 8

// Bounds are the upper bounds of the engine buckets in seconds, formatted for
// the le label. The last bucket is unbounded.
var Bounds = [BucketCount]string{"0.00005", "0.0001", "0.00025", "0.0005", "0.001", "0.005", "0.025", "+Inf"}

// Cumulative pads or truncates raw to BucketCount and returns running totals.
// The last element is the sample count.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
