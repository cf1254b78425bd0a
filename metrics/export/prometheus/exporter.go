package prometheus

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	goJWT "github.com/MrEthical07/goJWT"
	"github.com/MrEthical07/goJWT/metrics/export/internaldefs"
)

// Source supplies snapshots. *goJWT.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goJWT.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition
// format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter returns an exporter reading from engine.
func NewPrometheusExporter(engine *goJWT.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource returns an exporter reading from source.
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write(p.render())
	})
}

// Render returns the exposition text. It is empty when metrics are disabled
// and no audit event was dropped.
func (p *PrometheusExporter) Render() string {
	return string(p.render())
}

func (p *PrometheusExporter) render() []byte {
	if p == nil || p.source == nil {
		return nil
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return nil
	}

	w := &textWriter{}
	for _, f := range internaldefs.Counters {
		w.header(f.Name, f.Help, "counter")
		for _, s := range f.Series {
			w.sample(f.Name, f.Label, s.Value, "", "", snap.Counters[s.ID])
		}
	}

	if len(snap.Histograms) > 0 {
		h := internaldefs.Latency
		w.header(h.Name, h.Help, "histogram")
		for _, s := range h.Series {
			buckets := internaldefs.Cumulative(snap.Histograms[s.ID])
			for i, le := range internaldefs.Bounds {
				w.sample(h.Name+"_bucket", h.Label, s.Value, "le", le, buckets[i])
			}
			w.sample(h.Name+"_count", h.Label, s.Value, "", "", buckets[internaldefs.BucketCount-1])
			// buckets only, no durations
			w.sample(h.Name+"_sum", h.Label, s.Value, "", "", 0)
		}
	}

	w.header(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	w.sample(internaldefs.AuditDroppedName, "", "", "", "", dropped)

	return w.buf.Bytes()
}

type textWriter struct {
	buf bytes.Buffer
}

func (w *textWriter) header(name, help, kind string) {
	w.buf.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.buf.WriteString("# TYPE " + name + " " + kind + "\n")
}

// sample writes one line with up to two labels; an empty key skips its label.
func (w *textWriter) sample(name, k1, v1, k2, v2 string, value uint64) {
	w.buf.WriteString(name)
	if k1 != "" || k2 != "" {
		w.buf.WriteByte('{')
		sep := false
		for _, kv := range [2][2]string{{k1, v1}, {k2, v2}} {
			if kv[0] == "" {
				continue
			}
			if sep {
				w.buf.WriteByte(',')
			}
			w.buf.WriteString(kv[0] + `="` + escapeLabel(kv[1]) + `"`)
			sep = true
		}
		w.buf.WriteByte('}')
	}
	w.buf.WriteByte(' ')
	w.buf.WriteString(strconv.FormatUint(value, 10))
	w.buf.WriteByte('\n')
}

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

func escapeHelp(s string) string  { return helpEscaper.Replace(s) }
func escapeLabel(s string) string { return labelEscaper.Replace(s) }
