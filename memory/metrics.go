package memory

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes. All methods are nil-safe so wiring
// metrics stays optional in tests and small deployments.
type Metrics struct {
	writesStored   prometheus.Counter
	writesSkipped  prometheus.Counter
	writesOrphaned prometheus.Counter
	analyzerErrors prometheus.Counter
	retrievals     prometheus.Counter
	degradedReads  prometheus.Counter
	droppedRecords prometheus.Counter
	upsertRetries  prometheus.Counter
}

// NewMetrics registers the pipeline counters with reg. A nil registerer
// yields unregistered (but usable) counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		writesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_writes_stored_total",
			Help: "Exchanges judged significant and persisted.",
		}),
		writesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_writes_skipped_total",
			Help: "Exchanges judged not significant, including analyzer failures.",
		}),
		writesOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_writes_orphaned_total",
			Help: "Metadata records written whose vector upsert failed.",
		}),
		analyzerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_analyzer_errors_total",
			Help: "Significance analyzer failures degraded to not-significant.",
		}),
		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_retrievals_total",
			Help: "Retrieval requests served.",
		}),
		degradedReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_retrievals_degraded_total",
			Help: "Retrievals that returned empty because the vector index was unavailable.",
		}),
		droppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_records_dropped_total",
			Help: "Retrieved records dropped for decryption or hydration failures.",
		}),
		upsertRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_index_upsert_retries_total",
			Help: "Vector index upserts that needed a retry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.writesStored, m.writesSkipped, m.writesOrphaned,
			m.analyzerErrors, m.retrievals, m.degradedReads,
			m.droppedRecords, m.upsertRetries,
		)
	}
	return m
}

func (m *Metrics) writeStored() {
	if m != nil {
		m.writesStored.Inc()
	}
}

func (m *Metrics) writeSkipped() {
	if m != nil {
		m.writesSkipped.Inc()
	}
}

func (m *Metrics) writeOrphaned() {
	if m != nil {
		m.writesOrphaned.Inc()
	}
}

func (m *Metrics) analyzerError() {
	if m != nil {
		m.analyzerErrors.Inc()
	}
}

func (m *Metrics) retrieval() {
	if m != nil {
		m.retrievals.Inc()
	}
}

func (m *Metrics) degradedRead() {
	if m != nil {
		m.degradedReads.Inc()
	}
}

func (m *Metrics) droppedRecord() {
	if m != nil {
		m.droppedRecords.Inc()
	}
}

func (m *Metrics) upsertRetry() {
	if m != nil {
		m.upsertRetries.Inc()
	}
}
