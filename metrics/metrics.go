// Package metrics exposes the client's Prometheus counters as a
// prometheus.Collector, following the Describe/Collect shape of a
// hand-rolled collector rather than registering promauto metrics directly,
// so the set of exported series is explicit in one place.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector tracks the counters an operator needs to see an IED connection
// is healthy: reports decoded, decode mismatches, RCB enable failures, and
// bytes read off the wire.
type Collector struct {
	reportsDecoded   prometheus.Counter
	decodeMismatches prometheus.Counter
	rcbEnableFailed  *prometheus.CounterVec
	bytesRead        prometheus.Counter
}

// New builds a Collector labeled with the IED this client talks to, so one
// process can run several connections and tell their metrics apart.
func New(ied string) *Collector {
	constLabels := prometheus.Labels{"ied": ied}
	return &Collector{
		reportsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mmsreportd",
			Name:        "reports_decoded_total",
			Help:        "Number of unconfirmed informationReport PDUs successfully decoded.",
			ConstLabels: constLabels,
		}),
		decodeMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mmsreportd",
			Name:        "report_decode_mismatches_total",
			Help:        "Number of reports whose dataset-member count disagreed with the inclusion bit-string.",
			ConstLabels: constLabels,
		}),
		rcbEnableFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "mmsreportd",
			Name:        "rcb_enable_failed_total",
			Help:        "Number of RCB enable_rcb sequences that failed, by step.",
			ConstLabels: constLabels,
		}, []string{"step"}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mmsreportd",
			Name:        "bytes_read_total",
			Help:        "Bytes read from the IED TCP connection.",
			ConstLabels: constLabels,
		}),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	c.reportsDecoded.Describe(descs)
	c.decodeMismatches.Describe(descs)
	c.rcbEnableFailed.Describe(descs)
	c.bytesRead.Describe(descs)
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.reportsDecoded.Collect(metrics)
	c.decodeMismatches.Collect(metrics)
	c.rcbEnableFailed.Collect(metrics)
	c.bytesRead.Collect(metrics)
}

func (c *Collector) ReportDecoded()              { c.reportsDecoded.Inc() }
func (c *Collector) DecodeMismatch()             { c.decodeMismatches.Inc() }
func (c *Collector) RcbEnableFailed(step string) { c.rcbEnableFailed.WithLabelValues(step).Inc() }
func (c *Collector) BytesRead(n int)             { c.bytesRead.Add(float64(n)) }
