package agent

import (
	"fmt"

	"github.com/kilianp07/fleetnav/core/model"
	"github.com/kilianp07/fleetnav/core/navgraph"
)

// AssignTask routes the agent to target. Occupancy is ignored at assignment
// time; conflicts are resolved while moving. A rejected task leaves the
// agent untouched.
func (a *Agent) AssignTask(target int) (bool, string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if target < 0 || target >= a.graph.Len() {
		return false, ReasonInvalidTarget
	}
	if a.status == model.StatusCharging {
		return false, ReasonCharging
	}
	if a.status == model.StatusDisabled {
		return false, ReasonDisabled
	}
	if a.battery <= a.cfg.CriticalThreshold {
		return false, fmt.Sprintf("%s (%.0f%%)", ReasonCriticalBattery, a.battery)
	}
	if target == a.current {
		return false, ReasonAtTarget
	}
	sp, ok := a.graph.ShortestPath(a.current, target, navgraph.Blocked{})
	if !ok {
		return false, ReasonNoPath
	}

	a.leaveWaiting()
	a.abandonSegment()
	a.setRoute(target, sp)
	a.status = model.StatusMoving
	a.pathRetries = 0
	a.emergencyRetries = 0
	a.emergency = false
	a.logf("Assigned task: move to %s", a.name(target))
	return true, ReasonAssigned
}

// RequestEmergencyCharge sends the agent to the nearest reachable charger.
// Without one the agent is disabled.
func (a *Agent) RequestEmergencyCharge() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requestEmergencyCharge()
}

func (a *Agent) requestEmergencyCharge() {
	a.emergency = true
	a.leaveWaiting()

	if a.graph.IsCharger(a.current) {
		a.abandonSegment()
		a.path = nil
		a.target = a.current
		a.hasTarget = true
		a.status = model.StatusCharging
		a.chargeProgress = 0
		a.logf("Low battery! Started charging at %s", a.name(a.current))
		return
	}

	a.abandonSegment()
	charger, sp, ok := a.graph.NearestCharger(a.current, a.blocked())
	if !ok {
		a.path = nil
		a.status = model.StatusDisabled
		a.coord.LogConflict(fmt.Sprintf("Agent %d disabled - no charger available!", a.id))
		a.logf("Critical battery! No charger available (Battery: %.0f%%)", a.battery)
		return
	}
	a.setRoute(charger, sp)
	a.status = model.StatusMoving
	a.pathRetries = 0
	a.emergencyRetries = 0
	a.coord.LogConflict(fmt.Sprintf("Agent %d emergency routing to charger (Battery: %.0f%%)", a.id, a.battery))
	a.logf("Low battery! Redirecting to charger at %s", a.name(charger))
}

func (a *Agent) leaveWaiting() {
	if a.status == model.StatusWaiting {
		a.coord.RemoveWaiting(a.current, a.id)
	}
}
