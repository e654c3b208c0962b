package main

import (
	"strconv"

	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics exports the most recent calculation.
type promMetrics struct {
	totalBits              *prometheus.GaugeVec
	levelBitsPerEntry      *prometheus.GaugeVec
	expectedFalsePositives *prometheus.GaugeVec
	calculations           *prometheus.CounterVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		totalBits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filterbits_total_bits",
			Help: "Total Bloom filter bits of the last calculation, by policy",
		}, []string{"policy"}),
		levelBitsPerEntry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filterbits_level_bits_per_entry",
			Help: "Monkey bits per entry of the last calculation, by level",
		}, []string{"level"}),
		expectedFalsePositives: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filterbits_expected_false_positives",
			Help: "Expected wasted run probes per absent-key lookup, by policy",
		}, []string{"policy"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filterbits_calculations_total",
			Help: "Calculations served, by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.totalBits,
		m.levelBitsPerEntry,
		m.expectedFalsePositives,
		m.calculations,
	)
	return m
}

func (m *promMetrics) update(r *filterbits.Report) {
	m.calculations.WithLabelValues("ok").Inc()
	m.totalBits.WithLabelValues("uniform").Set(r.UniformBits)
	m.totalBits.WithLabelValues("monkey").Set(float64(r.MonkeyBits))
	m.expectedFalsePositives.WithLabelValues("uniform").Set(r.UniformExpectedFalsePositives)
	m.expectedFalsePositives.WithLabelValues("monkey").Set(r.MonkeyExpectedFalsePositives)

	// Levels from a previous, deeper tree must not linger.
	m.levelBitsPerEntry.Reset()
	for _, lc := range r.Monkey.Levels {
		m.levelBitsPerEntry.WithLabelValues(strconv.Itoa(lc.Level)).Set(float64(lc.BitsPerEntry))
	}
}

func (m *promMetrics) failed() {
	m.calculations.WithLabelValues("invalid").Inc()
}
