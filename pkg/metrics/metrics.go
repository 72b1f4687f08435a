// Package metrics exposes FRFTP transfer activity as Prometheus metrics,
// wired through session.SenderHooks/ReceiverHooks so the engine package
// itself never imports prometheus. Grounded on runZeroInc-sockstats's
// pkg/exporter (a hand-registered prometheus.Collector observing live
// connections) and m-lab-etl's use of github.com/prometheus/client_golang
// for process-level counters; this package favours plain
// Counter/CounterVec/Gauge registration over a custom Collector because
// FRFTP's metrics are simple accumulators, not derived from an external
// syscall snapshot the way tcpinfo's are.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanirao2000/frftp/source/session"
)

// Session collects per-transfer counters and gauges. The malformed-frame
// and socket-error counters are labeled by role ("sender" or "receiver");
// the other metrics carry no role label.
type Session struct {
	segmentsSent          *prometheus.CounterVec
	segmentsRetransmitted prometheus.Counter
	segmentsAcked         prometheus.Counter
	acksReceived          prometheus.Counter
	bytesSent             prometheus.Counter
	bytesReceived         prometheus.Counter
	acksSent              prometheus.Counter
	malformedFrames       *prometheus.CounterVec
	socketErrors          *prometheus.CounterVec
	cumAck                prometheus.Gauge
	windowInFlight        prometheus.Gauge
	duplicateData         prometheus.Counter
}

// NewSession registers a fresh set of metrics under reg (pass
// prometheus.DefaultRegisterer for the global registry, or a dedicated
// *prometheus.Registry in tests to avoid collisions between runs).
func NewSession(reg prometheus.Registerer) *Session {
	factory := promauto.With(reg)
	return &Session{
		segmentsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frftp_segments_sent_total",
			Help: "DATA segments transmitted, labeled by whether they were a retransmission.",
		}, []string{"retransmit"}),
		segmentsRetransmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_segments_retransmitted_total",
			Help: "DATA segments resent after their RTO elapsed unacknowledged.",
		}),
		segmentsAcked: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_segments_acked_total",
			Help: "DATA segments the sender has observed as acknowledged, each counted once when the cumulative ack passes it.",
		}),
		acksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_acks_received_total",
			Help: "ACK datagrams the sender has received and decoded.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_bytes_sent_total",
			Help: "Payload bytes written into outbound DATA frames.",
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_bytes_received_total",
			Help: "Payload bytes written to the sink by the receiver.",
		}),
		acksSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_acks_sent_total",
			Help: "ACK frames transmitted by the receiver.",
		}),
		malformedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frftp_malformed_frames_total",
			Help: "Datagrams dropped for failing frame validation, labeled by role.",
		}, []string{"role"}),
		socketErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frftp_socket_errors_total",
			Help: "Non-timeout errors observed on Send/Recv, labeled by role.",
		}, []string{"role"}),
		cumAck: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frftp_cum_ack",
			Help: "Most recently observed cumulative ack sequence number.",
		}),
		windowInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frftp_window_in_flight",
			Help: "Segments the sender has transmitted but not yet seen acknowledged.",
		}),
		duplicateData: factory.NewCounter(prometheus.CounterOpts{
			Name: "frftp_duplicate_data_total",
			Help: "DATA frames the receiver saw for a segment it already had.",
		}),
	}
}

// SenderHooks returns a session.SenderHooks that feeds m.
func (m *Session) SenderHooks(payloadBytes func(seq uint32) int) session.SenderHooks {
	var lastCumAck uint32
	return session.SenderHooks{
		OnSegmentSent: func(seq uint32, retransmit bool) {
			label := "false"
			if retransmit {
				label = "true"
				m.segmentsRetransmitted.Inc()
			}
			m.segmentsSent.WithLabelValues(label).Inc()
			if payloadBytes != nil {
				m.bytesSent.Add(float64(payloadBytes(seq)))
			}
		},
		OnAck: func(cumAck uint32, sackMask uint64) {
			m.acksReceived.Inc()
			m.cumAck.Set(float64(cumAck))
			if cumAck > lastCumAck {
				m.segmentsAcked.Add(float64(cumAck - lastCumAck))
				lastCumAck = cumAck
			}
		},
		OnWindowUpdate: func(inFlight int) { m.windowInFlight.Set(float64(inFlight)) },
		OnMalformed:    func(error) { m.malformedFrames.WithLabelValues("sender").Inc() },
		OnSocketError:  func(error) { m.socketErrors.WithLabelValues("sender").Inc() },
	}
}

// ReceiverHooks returns a session.ReceiverHooks that feeds m.
func (m *Session) ReceiverHooks(payloadBytes func(seq uint32) int) session.ReceiverHooks {
	return session.ReceiverHooks{
		OnDataWritten: func(seq uint32, duplicate bool) {
			if duplicate {
				m.duplicateData.Inc()
				return
			}
			if payloadBytes != nil {
				m.bytesReceived.Add(float64(payloadBytes(seq)))
			}
		},
		OnAckSent:     func(cumAck uint32, _ uint64) { m.cumAck.Set(float64(cumAck)); m.acksSent.Inc() },
		OnMalformed:   func(error) { m.malformedFrames.WithLabelValues("receiver").Inc() },
		OnSocketError: func(error) { m.socketErrors.WithLabelValues("receiver").Inc() },
	}
}

func popcount(mask uint64) int {
	n := 0
	for mask != 0 {
		mask &= mask - 1
		n++
	}
	return n
}

// ServeHTTP exposes the registry's metrics on addr at /metrics; it blocks
// until the server stops and is meant to be run in its own goroutine.
func ServeHTTP(addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
