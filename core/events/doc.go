// Package events defines the fleet events published on the event bus.
//
// Available event types:
//   - AgentLog: a drained agent log entry
//   - Conflict: a reservation conflict or critical condition
//   - Tick: the outcome of one orchestrator cycle
package events
