package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := <-ch
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestSenderHooksRecordSegmentsAndBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSession(reg)
	hooks := m.SenderHooks(func(seq uint32) int { return 100 })

	hooks.OnSegmentSent(1, false)
	hooks.OnSegmentSent(2, true)
	hooks.OnAck(2, 0)
	hooks.OnWindowUpdate(3)

	if got := counterValue(t, m.bytesSent); got != 200 {
		t.Errorf("bytesSent = %v, want 200", got)
	}
	if got := counterValue(t, m.cumAck); got != 2 {
		t.Errorf("cumAck = %v, want 2", got)
	}
	if got := counterValue(t, m.segmentsRetransmitted); got != 1 {
		t.Errorf("segmentsRetransmitted = %v, want 1", got)
	}
	if got := counterValue(t, m.acksReceived); got != 1 {
		t.Errorf("acksReceived = %v, want 1", got)
	}
	if got := counterValue(t, m.windowInFlight); got != 3 {
		t.Errorf("windowInFlight = %v, want 3", got)
	}
}

func TestReceiverHooksRecordDuplicatesSeparately(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSession(reg)
	hooks := m.ReceiverHooks(func(seq uint32) int { return 50 })

	hooks.OnDataWritten(1, false)
	hooks.OnDataWritten(1, true)
	hooks.OnAckSent(1, 0)

	if got := counterValue(t, m.bytesReceived); got != 50 {
		t.Errorf("bytesReceived = %v, want 50", got)
	}
	if got := counterValue(t, m.duplicateData); got != 1 {
		t.Errorf("duplicateData = %v, want 1", got)
	}
	if got := counterValue(t, m.acksSent); got != 1 {
		t.Errorf("acksSent = %v, want 1", got)
	}
}

func TestPopcount(t *testing.T) {
	cases := map[uint64]int{0: 0, 1: 1, 0xff: 8, 1 << 63: 1}
	for mask, want := range cases {
		if got := popcount(mask); got != want {
			t.Errorf("popcount(%x) = %d, want %d", mask, got, want)
		}
	}
}
