package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	votes        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	rounds       *prometheus.CounterVec
	price        prometheus.Gauge
	subscribers  prometheus.Gauge
	eventsSent   *prometheus.CounterVec
	eventsDrop   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	walletResult *prometheus.CounterVec
}

// New registers the recorder's collectors with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		votes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_votes_total",
				Help: "Accepted votes by option",
			},
			[]string{"option"},
		),
		rejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_votes_rejected_total",
				Help: "Rejected votes by reason",
			},
			[]string{"reason"},
		),
		rounds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_rounds_total",
				Help: "Resolved rounds by outcome",
			},
			[]string{"outcome"},
		),
		price: f.NewGauge(prometheus.GaugeOpts{
			Name: "pumpdump_price",
			Help: "Current simulated price",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "pumpdump_ws_subscribers",
			Help: "Connected WebSocket subscribers",
		}),
		eventsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_events_sent_total",
				Help: "Events delivered to a backend",
			},
			[]string{"backend", "type"},
		),
		eventsDrop: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_events_dropped_total",
				Help: "Events dropped before reaching a backend",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pumpdump_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		walletResult: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpdump_wallet_connects_total",
				Help: "Wallet connect attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (r *Recorder) RecordVote(option string) { r.votes.WithLabelValues(option).Inc() }

func (r *Recorder) RecordVoteRejected(reason string) { r.rejected.WithLabelValues(reason).Inc() }

func (r *Recorder) RecordRound(outcome string) { r.rounds.WithLabelValues(outcome).Inc() }

func (r *Recorder) RecordPrice(price float64) { r.price.Set(price) }

func (r *Recorder) RecordSubscribers(n int) { r.subscribers.Set(float64(n)) }

func (r *Recorder) RecordEventSent(backend, eventType string) {
	r.eventsSent.WithLabelValues(backend, eventType).Inc()
}

func (r *Recorder) RecordEventDropped(reason string) { r.eventsDrop.WithLabelValues(reason).Inc() }

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordWalletConnect(result string) { r.walletResult.WithLabelValues(result).Inc() }
