// Package metrics is the process-wide Prometheus sink: user/stream/topic/
// partition gauges and message-throughput counters, registered once at
// startup and handed to every collaborator that reports them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sink is what the engine and its collaborators report through. A nil
// *Sink is valid and silently discards every observation, the same
// zero-overhead-when-disabled contract the teacher's cache/S3 metrics use.
type Sink struct {
	usersTotal      prometheus.Gauge
	streamsTotal    prometheus.Gauge
	topicsTotal     prometheus.Gauge
	partitionsTotal prometheus.Gauge
	messagesTotal   prometheus.Counter
	commandsTotal   *prometheus.CounterVec
}

// New builds a Sink registered against reg. Pass prometheus.NewRegistry()
// for an isolated registry (tests) or prometheus.DefaultRegisterer's
// registry in production.
func New(reg *prometheus.Registry) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		usersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iggy_users_total",
			Help: "Current number of registered users.",
		}),
		streamsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iggy_streams_total",
			Help: "Current number of streams.",
		}),
		topicsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iggy_topics_total",
			Help: "Current number of topics across all streams.",
		}),
		partitionsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "iggy_partitions_total",
			Help: "Current number of partitions across all topics.",
		}),
		messagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "iggy_messages_appended_total",
			Help: "Total number of messages successfully appended.",
		}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iggy_commands_total",
			Help: "Total number of engine commands processed, by name and outcome.",
		}, []string{"command", "outcome"}),
	}
}

// IncrementUsers satisfies pkg/user.MetricsSink.
func (s *Sink) IncrementUsers(n uint32) {
	if s == nil {
		return
	}
	s.usersTotal.Add(float64(n))
}

// DecrementUsers satisfies pkg/user.MetricsSink.
func (s *Sink) DecrementUsers(n uint32) {
	if s == nil {
		return
	}
	s.usersTotal.Sub(float64(n))
}

// AddStreamsCount adjusts the stream gauge by delta, which may be negative
// (delete_stream).
func (s *Sink) AddStreamsCount(delta int) {
	if s == nil {
		return
	}
	s.streamsTotal.Add(float64(delta))
}

// AddTopicsCount adjusts the topic gauge by delta, which may be negative
// (delete_topic, delete_stream's cascade).
func (s *Sink) AddTopicsCount(delta int) {
	if s == nil {
		return
	}
	s.topicsTotal.Add(float64(delta))
}

// AddPartitionsCount adjusts the partition gauge by delta, which may be
// negative (delete_partitions, delete_topic, delete_stream).
func (s *Sink) AddPartitionsCount(delta int) {
	if s == nil {
		return
	}
	s.partitionsTotal.Add(float64(delta))
}

// IncrementMessages records a successful append_messages of count messages.
func (s *Sink) IncrementMessages(count uint64) {
	if s == nil {
		return
	}
	s.messagesTotal.Add(float64(count))
}

// ObserveCommand records one processed command by name and outcome ("ok"
// or an apperror.Kind string).
func (s *Sink) ObserveCommand(command, outcome string) {
	if s == nil {
		return
	}
	s.commandsTotal.WithLabelValues(command, outcome).Inc()
}
