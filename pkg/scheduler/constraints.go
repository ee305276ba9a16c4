package scheduler

import (
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// sharesAircraft and friends define which team pairs constrain each other.

func sharesAircraft(a, b *model.TeamDefinition) bool {
	return a.AircraftRegistration != "" &&
		a.AircraftRegistration == b.AircraftRegistration
}

func sharesTracker(a, b *model.TeamDefinition) bool {
	return a.TrackerID != "" && a.TrackerID == b.TrackerID &&
		a.TrackerService == b.TrackerService
}

func sharesCrew(a, b *model.TeamDefinition) bool {
	for _, member := range []string{a.Member1, a.Member2} {
		if member == "" {
			continue
		}
		if member == b.Member1 || member == b.Member2 {
			return true
		}
	}
	return false
}

// requiredGap returns the minimum start slot distance between two teams.
func requiredGap(a, b *model.TeamDefinition, p *Params) int {
	gap := p.MinimumStartInterval
	shortest := min(a.FlightTimeMinutes, b.FlightTimeMinutes)
	if sharesAircraft(a, b) {
		gap = max(gap, shortest+p.AircraftSwitchTime)
	}
	if sharesTracker(a, b) {
		gap = max(gap, shortest+p.TrackerSwitchTime+p.TrackerStartLeadTime)
	}
	if sharesCrew(a, b) {
		gap = max(gap, shortest+p.CrewSwitchTime+p.TrackerStartLeadTime)
	}
	return gap
}

// pairFeasible checks all pairwise constraints for a concrete slot pair.
//
//nolint:cyclop // each clause is one table row
func pairFeasible(a, b *model.TeamDefinition, slotA, slotB int, p *Params) bool {
	gap := slotA - slotB
	if gap < 0 {
		gap = -gap
	}
	if gap < requiredGap(a, b, p) {
		return false
	}
	finishGap := (slotA + a.FlightTimeMinutes) - (slotB + b.FlightTimeMinutes)
	if finishGap < 0 {
		finishGap = -finishGap
	}
	if finishGap < p.MinimumFinishInterval {
		return false
	}
	// a faster team must start late enough not to overtake a slower one
	if a.FlightTimeMinutes <= b.FlightTimeMinutes-p.MinimumStartInterval &&
		slotA < slotB+(b.FlightTimeMinutes-a.FlightTimeMinutes)+1 {
		return false
	}
	if b.FlightTimeMinutes <= a.FlightTimeMinutes-p.MinimumStartInterval &&
		slotB < slotA+(a.FlightTimeMinutes-b.FlightTimeMinutes)+1 {
		return false
	}
	return true
}

// feasibleAt checks team against every already assigned team at the given slot.
//
//nolint:whitespace // keep signature grouping
func feasibleAt(
	team *model.TeamDefinition, slot int,
	teams []*model.TeamDefinition, assignment map[int]int, p *Params,
) bool {
	if slot < 0 || slot+team.FlightTimeMinutes > windowSlots {
		return false
	}
	for _, other := range teams {
		if other.PK == team.PK {
			continue
		}
		otherSlot, ok := assignment[other.PK]
		if !ok {
			continue
		}
		if !pairFeasible(team, other, slot, otherSlot, p) {
			return false
		}
	}
	return true
}
