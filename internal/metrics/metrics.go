// Package metrics exposes Prometheus counters for the protocol layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "session",
		Name:      "frames_received_total",
		Help:      "Frames read and dispatched, per connection and epoch.",
	}, []string{"conn", "epoch"})

	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "session",
		Name:      "frames_sent_total",
		Help:      "Frames written to the wire, per connection.",
	}, []string{"conn"})

	UnknownOpcodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "session",
		Name:      "unknown_opcodes_total",
		Help:      "Frames dropped because the opcode is absent from the bound epoch's table.",
	}, []string{"conn"})

	MalformedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "session",
		Name:      "malformed_frames_total",
		Help:      "Frames whose payload failed to decode against the packet layout.",
	}, []string{"conn"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "events",
		Name:      "emitted_total",
		Help:      "Domain events emitted on the bus, per event type.",
	}, []string{"event"})

	JournalWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "journal",
		Name:      "writes_total",
		Help:      "Rows persisted to the packet journal.",
	})

	JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ragnet",
		Subsystem: "journal",
		Name:      "errors_total",
		Help:      "Journal writes that failed.",
	})
)
