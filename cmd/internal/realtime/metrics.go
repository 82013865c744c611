package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dropIntakeFull   = "intake_full"
	dropObserverFull = "observer_full"
	dropEncode       = "encode"
	dropSink         = "sink"
)

var (
	broadcastPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasker_broadcast_published_total",
		Help: "Change events accepted for broadcast, by kind.",
	}, []string{"kind"})

	broadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasker_broadcast_dropped_total",
		Help: "Change events dropped, by reason.",
	}, []string{"reason"})

	observersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasker_realtime_observers",
		Help: "Currently connected observers on this instance.",
	})

	relayReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasker_relay_received_total",
		Help: "Change envelopes received from the Redis relay.",
	})
)
