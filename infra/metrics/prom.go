package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetnav/core/metrics"
	"github.com/kilianp07/fleetnav/core/model"
)

// PromSink exposes the fleet tick loop as Prometheus metrics.
type PromSink struct {
	ticks           prometheus.Counter
	tickDuration    prometheus.Histogram
	agents          *prometheus.GaugeVec
	battery         *prometheus.GaugeVec
	conflicts       prometheus.Counter
	activeConflicts prometheus.Gauge
}

// NewPromSink registers the fleet metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_ticks_total",
			Help: "Number of completed orchestrator ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleet_tick_duration_seconds",
			Help:    "Wall time spent updating all agents in one tick",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		agents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_agents",
			Help: "Number of agents per status",
		}, []string{"status"}),
		battery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_agent_battery_percent",
			Help: "Battery level per agent",
		}, []string{"agent"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_conflicts_total",
			Help: "Number of logged conflicts",
		}),
		activeConflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_active_conflicts",
			Help: "Conflicts inside the display window",
		}),
	}
	var err error
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.tickDuration, err = register(reg, s.tickDuration); err != nil {
		return nil, err
	}
	if s.agents, err = register(reg, s.agents); err != nil {
		return nil, err
	}
	if s.battery, err = register(reg, s.battery); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, s.conflicts); err != nil {
		return nil, err
	}
	if s.activeConflicts, err = register(reg, s.activeConflicts); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick updates the tick counters and per-status gauges.
func (s *PromSink) RecordTick(sum coremetrics.TickSummary) error {
	s.ticks.Inc()
	s.tickDuration.Observe(sum.Duration.Seconds())
	for _, st := range model.Statuses {
		s.agents.WithLabelValues(st.String()).Set(float64(sum.StatusCounts[st]))
	}
	s.activeConflicts.Set(float64(sum.ActiveConflicts))
	return nil
}

// RecordAgentStates sets the battery gauge of every agent.
func (s *PromSink) RecordAgentStates(states []model.AgentSnapshot) error {
	for _, st := range states {
		s.battery.WithLabelValues(strconv.Itoa(st.ID)).Set(st.Battery)
	}
	return nil
}

// RecordConflict counts a logged conflict.
func (s *PromSink) RecordConflict(coremetrics.ConflictEvent) error {
	s.conflicts.Inc()
	return nil
}
