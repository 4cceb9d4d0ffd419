package observability

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts posting outcomes and integrity failures.
type LedgerMetrics struct {
	posted    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	integrity prometheus.Counter
}

func newLedgerMetrics() *LedgerMetrics {
	posted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Journal entries committed, by reference kind.",
	}, []string{"kind"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_rejected_total",
		Help: "Postings refused before commit, by reason.",
	}, []string{"reason"})
	integrity := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_integrity_failures_total",
		Help: "Trial balance integrity checks that found debits and credits apart.",
	})
	return &LedgerMetrics{posted: posted, rejected: rejected, integrity: integrity}
}

func (m *LedgerMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.posted, m.rejected, m.integrity}
}

// PostingRecorded counts a committed entry.
func (m *LedgerMetrics) PostingRecorded(kind string) {
	if m == nil {
		return
	}
	m.posted.WithLabelValues(kind).Inc()
}

// PostingRejected counts a refused posting.
func (m *LedgerMetrics) PostingRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// IntegrityFailed counts a failed trial balance check.
func (m *LedgerMetrics) IntegrityFailed() {
	if m == nil {
		return
	}
	m.integrity.Inc()
}
