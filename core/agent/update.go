package agent

import (
	"fmt"

	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/navgraph"
)

// progressEpsilon absorbs float drift so ten 0.1 steps complete a lane.
const progressEpsilon = 1e-9

// Update advances the agent by one tick. Rules are evaluated in priority
// order and the first one that matches consumes the tick.
func (a *Agent) Update() {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.status == model.StatusMoving && len(a.path) == 0 &&
		a.hasTarget && a.current == a.target && a.graph.IsCharger(a.current):
		a.startCharging()
	case a.status == model.StatusCharging:
		a.charge()
	case !a.emergency && a.battery <= a.cfg.LowThreshold &&
		a.status != model.StatusDisabled:
		a.requestEmergencyCharge()
	case a.battery <= a.cfg.CriticalThreshold && a.status != model.StatusDisabled:
		a.disable()
	case a.status == model.StatusIdle, a.status == model.StatusComplete,
		a.status == model.StatusDisabled:
	case a.status == model.StatusWaiting:
		if a.now().After(a.waitUntil) {
			a.status = model.StatusMoving
			a.coord.RemoveWaiting(a.current, a.id)
			a.logf("Resumed moving after waiting at %s", a.name(a.current))
		}
	case a.status == model.StatusMoving && len(a.path) == 0:
		if a.hasTarget && a.current == a.target {
			a.status = model.StatusComplete
			a.logf("Task completed at %s", a.name(a.current))
		} else {
			a.status = model.StatusIdle
		}
	case a.status == model.StatusMoving:
		a.advance()
	}
}

func (a *Agent) startCharging() {
	a.status = model.StatusCharging
	a.progress = 0
	a.chargeProgress = 0
	a.logf("Started charging at %s", a.name(a.current))
}

func (a *Agent) charge() {
	a.battery = clamp(a.battery + a.cfg.ChargeRate)
	a.chargeProgress = min(100, a.battery/a.cfg.CompleteThreshold*100)
	if a.battery >= a.cfg.CompleteThreshold {
		a.status = model.StatusIdle
		a.emergency = false
		a.chargeProgress = 0
		a.logf("Charging complete at %s (Battery: %.0f%%)", a.name(a.current), a.battery)
	}
}

func (a *Agent) disable() {
	a.status = model.StatusDisabled
	a.logf("Agent disabled due to critical battery (%.0f%%)", a.battery)
}

// advance runs one step of normal movement along the path.
func (a *Agent) advance() {
	next := a.path[0]
	if !a.coord.TryReserveVertex(next, a.id) {
		a.rerouteOrWait(fmt.Sprintf("Agent %d waiting at vertex %d", a.id, a.current), "vertex")
		return
	}

	if a.lane == nil {
		a.lane = &model.Lane{From: a.current, To: next}
		a.battery = clamp(a.battery - a.cfg.DrainRate)
		if a.battery <= a.cfg.CriticalThreshold {
			// Never entered the lane; give back the segment claim.
			a.abandonSegment()
			a.disable()
			return
		}
		if a.battery <= a.cfg.LowThreshold && !a.emergency {
			a.coord.LogConflict(fmt.Sprintf("Agent %d low battery! (%.0f%%)", a.id, a.battery))
		}
		a.logf("Started moving from %s to %s (Battery: %.0f%%)", a.name(a.current), a.name(next), a.battery)
	}

	if !a.coord.TryReserveLane(*a.lane, a.id) {
		a.coord.ReleaseVertex(next, a.id)
		a.rerouteOrWait(fmt.Sprintf("Agent %d waiting on lane %s", a.id, a.lane), "lane")
		return
	}

	a.progress += a.cfg.Speed
	if a.progress < 1-progressEpsilon {
		return
	}
	prev := a.current
	a.coord.ReleaseVertex(prev, a.id)
	a.coord.ReleaseLane(*a.lane, a.id)
	a.current = next
	a.path = a.path[1:]
	a.progress = 0
	a.lane = nil
	a.pathRetries = 0
	a.emergencyRetries = 0

	if len(a.path) == 0 && a.hasTarget && a.current == a.target {
		if a.graph.IsCharger(a.current) {
			// Charging starts on the next tick.
			return
		}
		a.status = model.StatusComplete
		a.logf("Task completed at %s", a.name(a.current))
	}
}

// rerouteOrWait searches for a way around the blocked resource and falls back
// to Waiting when none exists or the retry budget is spent.
func (a *Agent) rerouteOrWait(conflict, resource string) {
	blocked := a.blocked()
	switch {
	case a.emergency && a.emergencyRetries < a.cfg.MaxEmergencyRetries:
		if charger, sp, ok := a.graph.NearestCharger(a.current, blocked); ok {
			a.abandonSegment()
			a.emergencyRetries++
			a.setRoute(charger, sp)
			a.logf("Found emergency path (attempt %d) to charger at %s", a.emergencyRetries, a.name(charger))
			return
		}
	case a.pathRetries < a.cfg.MaxPathRetries:
		if sp, ok := a.graph.ShortestPath(a.current, a.target, blocked); ok {
			a.abandonSegment()
			a.pathRetries++
			a.setRoute(a.target, sp)
			a.logf("Found alternative path (attempt %d) to %s", a.pathRetries, a.name(a.target))
			return
		}
	}

	a.status = model.StatusWaiting
	a.waitUntil = a.now().Add(a.cfg.WaitTime)
	a.coord.AddWaiting(a.current, a.id)
	a.coord.LogConflict(conflict)
	a.logf("Waiting at %s due to %s conflict", a.name(a.current), resource)
}

// blocked returns the resources held by other agents, never including the
// vertex the agent stands on.
func (a *Agent) blocked() navgraph.Blocked {
	vertices := a.coord.BlockedVerticesFor(a.id)
	delete(vertices, a.current)
	return navgraph.Blocked{
		Lanes:    a.coord.BlockedLanesFor(a.id),
		Vertices: vertices,
		Key:      a.coord.KeyFunc(),
	}
}

// setRoute adopts a search result that starts at the current vertex.
func (a *Agent) setRoute(target int, sp []int) {
	a.target = target
	a.hasTarget = true
	a.path = append([]int(nil), sp[1:]...)
	a.progress = 0
	a.lane = nil
}

// abandonSegment releases the lane and next vertex claimed for the segment
// the agent is about to leave. The current vertex stays reserved.
func (a *Agent) abandonSegment() {
	if a.lane != nil {
		a.coord.ReleaseLane(*a.lane, a.id)
	}
	if len(a.path) > 0 && a.path[0] != a.current {
		a.coord.ReleaseVertex(a.path[0], a.id)
	}
	a.lane = nil
	a.progress = 0
}
