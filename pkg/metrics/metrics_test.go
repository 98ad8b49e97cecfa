package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestSink_IncrementDecrementUsers(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.IncrementUsers(3)
	s.DecrementUsers(1)
	if got := gaugeValue(t, s.usersTotal); got != 2 {
		t.Fatalf("usersTotal = %v, want 2", got)
	}
}

func TestSink_NilSinkIsNoOp(t *testing.T) {
	var s *Sink
	s.IncrementUsers(1)
	s.DecrementUsers(1)
	s.AddStreamsCount(1)
	s.AddTopicsCount(1)
	s.AddPartitionsCount(1)
	s.IncrementMessages(1)
	s.ObserveCommand("ping", "ok")
}

func TestSink_AddPartitionsCountHandlesNegativeDelta(t *testing.T) {
	s := New(prometheus.NewRegistry())
	s.AddPartitionsCount(5)
	s.AddPartitionsCount(-2)
	if got := gaugeValue(t, s.partitionsTotal); got != 3 {
		t.Fatalf("partitionsTotal = %v, want 3", got)
	}
}
