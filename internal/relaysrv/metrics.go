package relaysrv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry *prometheus.Registry

	envelopesStored  prometheus.Counter
	pushesImmediate  prometheus.Counter
	pushesMissed     prometheus.Counter
	authFailures     prometheus.Counter
	wsConnections    prometheus.Gauge
	bundlesPublished prometheus.Counter
	prekeysClaimed   prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		envelopesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_envelopes_stored_total",
			Help: "Message envelopes accepted and persisted.",
		}),
		pushesImmediate: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_pushes_immediate_total",
			Help: "Envelopes delivered to a live connection at send time.",
		}),
		pushesMissed: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_pushes_missed_total",
			Help: "Envelopes stored with no live recipient connection.",
		}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_auth_failures_total",
			Help: "Rejected authentication attempts (login and token checks).",
		}),
		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "veilchat_ws_connections",
			Help: "Currently open websocket connections.",
		}),
		bundlesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_bundles_published_total",
			Help: "Prekey bundles accepted for publication.",
		}),
		prekeysClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "veilchat_prekeys_claimed_total",
			Help: "One-time prekeys consumed by key exchanges.",
		}),
	}
}
