// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsProcessedTotal  *prometheus.CounterVec
	downloadDurationSeconds  *prometheus.HistogramVec
	discoveryDurationSeconds *prometheus.HistogramVec
	campaignsActive          prometheus.Gauge
	campaignPhaseTotal       *prometheus.CounterVec
	retrySweepSucceededTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors. Safe to call multiple
// times; every Observe*/Set* function also calls this lazily so components
// never need to sequence themselves after the CLI's explicit Init() call.
func Init() {
	once.Do(func() {
		documentsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalcrawler_documents_processed_total",
				Help: "Total number of documents processed, labeled by court and outcome status.",
			},
			[]string{"court", "status"},
		)

		downloadDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "legalcrawler_download_duration_seconds",
				Help:    "Histogram of per-document download+validate+extract durations, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"outcome"},
		)

		discoveryDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "legalcrawler_discovery_duration_seconds",
				Help:    "Histogram of date-range discovery durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		)

		campaignsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "legalcrawler_campaigns_active",
				Help: "Number of bulk crawl campaigns currently running.",
			},
		)

		campaignPhaseTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalcrawler_campaign_phase_transitions_total",
				Help: "Total number of bulk campaign phase transitions, labeled by phase.",
			},
			[]string{"phase"},
		)

		retrySweepSucceededTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "legalcrawler_retry_sweep_succeeded_total",
				Help: "Total number of documents that succeeded on a scheduled retry sweep.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveDocument increments the per-court/status document counter.
func ObserveDocument(court, status string) {
	Init()
	documentsProcessedTotal.WithLabelValues(court, status).Inc()
}

// ObserveDownload records a download pipeline duration under outcome
// ("success" or "failed").
func ObserveDownload(outcome string, duration time.Duration) {
	Init()
	downloadDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveDiscovery records a discovery-strategy duration.
func ObserveDiscovery(strategy string, duration time.Duration) {
	Init()
	discoveryDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// SetActiveCampaigns sets the current count of running bulk campaigns.
func SetActiveCampaigns(n int) {
	Init()
	campaignsActive.Set(float64(n))
}

// ObserveCampaignPhase increments the phase-transition counter for phase.
func ObserveCampaignPhase(phase string) {
	Init()
	campaignPhaseTotal.WithLabelValues(phase).Inc()
}

// ObserveRetrySweep adds succeeded to the retry sweep success counter.
func ObserveRetrySweep(succeeded int) {
	if succeeded <= 0 {
		return
	}
	Init()
	retrySweepSucceededTotal.Add(float64(succeeded))
}
