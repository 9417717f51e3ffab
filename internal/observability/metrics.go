package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairy",
		Name:      "turns_total",
		Help:      "Completed personality turns by personality, kind and outcome.",
	}, []string{"personality", "kind", "outcome"})

	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fairy",
		Name:      "turn_duration_seconds",
		Help:      "Wall time spent performing a turn.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60, 120},
	}, []string{"personality"})

	ThreadsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fairy",
		Name:      "threads_live",
		Help:      "Conversation threads currently held in memory.",
	})

	EffectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairy",
		Name:      "effects_total",
		Help:      "Controller effects delivered to a surface, by kind.",
	}, []string{"kind"})

	IdentifiersCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairy",
		Name:      "private_identifiers_collected_total",
		Help:      "Identifiers accepted by the private personality.",
	}, []string{"identifier"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fairy",
		Name:      "stream_subscribers",
		Help:      "Open live event subscriptions.",
	})
)
