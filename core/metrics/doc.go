// Package metrics defines the sinks that observe the fleet tick loop.
//
// Every sink implements FleetSink. Sinks that also want per-agent state or
// conflict notifications implement AgentStateRecorder or ConflictRecorder;
// callers type-assert for them. NewMetricsSink builds sinks from
// configuration through the registry filled by infra/metrics and wraps
// several of them in a MultiSink.
package metrics
