package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters, registered on the default registry and exposed through
// the /metrics endpoint alongside the HTTP instrumentation.
var (
	messagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_posted_total",
		Help: "Total number of messages appended across all sessions.",
	})

	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rooms_created_total",
		Help: "Total number of chat rooms created on first touch.",
	})
)
