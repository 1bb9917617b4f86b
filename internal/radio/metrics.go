package radio

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "radio_votes_total", Help: "Votes cast"},
		[]string{"type"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "radio_transitions_total", Help: "Song advancements"},
		[]string{"reason"},
	)
	songsImmortal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "radio_songs_immortal_total", Help: "Songs reaching max health"},
	)
	songsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "radio_songs_removed_total", Help: "Songs voted out"},
	)
	listenersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "radio_listeners", Help: "Connected listeners"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(votesTotal, transitionsTotal, songsImmortal, songsRemoved, listenersGauge)
}

// ServeMetrics exposes /metrics on its own port so the public API surface
// stays clean.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("📊 Metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("❌ Metrics server stopped: %v", err)
	}
}
