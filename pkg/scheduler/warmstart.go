package scheduler

import (
	"sort"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// conflictPriority scores a team by how contested its resources are. Heavily
// contested teams are placed first so they get the tight early slots.
func conflictPriority(team *model.TeamDefinition, teams []*model.TeamDefinition) int {
	trackers, aircraft, crew := 1, 1, 1
	for _, other := range teams {
		if other.PK == team.PK {
			continue
		}
		if sharesTracker(team, other) {
			trackers++
		}
		if sharesAircraft(team, other) {
			aircraft++
		}
		if sharesCrew(team, other) {
			crew++
		}
	}
	return trackers * aircraft * crew
}

// warmStart builds a feasible assignment greedily. Frozen teams keep their
// slots, the rest are placed by descending conflict priority with longer
// flights breaking ties.
//
//nolint:whitespace // keep signature grouping
func warmStart(
	teams []*model.TeamDefinition, p *Params,
) (map[int]int, bool) {
	assignment := make(map[int]int, len(teams))
	for _, team := range teams {
		if team.Frozen {
			assignment[team.PK] = team.StartSlot
		}
	}
	order := make([]*model.TeamDefinition, 0, len(teams))
	priorities := make(map[int]int, len(teams))
	for _, team := range teams {
		if team.Frozen {
			continue
		}
		order = append(order, team)
		priorities[team.PK] = conflictPriority(team, teams)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if priorities[order[i].PK] != priorities[order[j].PK] {
			return priorities[order[i].PK] > priorities[order[j].PK]
		}
		return order[i].FlightTimeMinutes > order[j].FlightTimeMinutes
	})

	nextAvailable := make(map[string]int)
	for _, team := range order {
		base := 0
		for _, key := range resourceKeys(team) {
			if next, ok := nextAvailable[key]; ok && next > base {
				base = next
			}
		}
		slot, ok := firstFeasibleSlot(team, base, teams, assignment, p)
		if !ok {
			return nil, false
		}
		assignment[team.PK] = slot
		release := slot + team.FlightTimeMinutes
		for _, key := range resourceKeys(team) {
			switch key[0] {
			case 'a':
				nextAvailable[key] = release + p.AircraftSwitchTime
			case 't':
				nextAvailable[key] = release + p.TrackerSwitchTime + p.TrackerStartLeadTime
			default:
				nextAvailable[key] = release + p.CrewSwitchTime + p.TrackerStartLeadTime
			}
		}
	}
	// frozen teams must be mutually feasible too
	for _, team := range teams {
		if team.Frozen &&
			!feasibleAt(team, assignment[team.PK], teams, assignment, p) {
			return nil, false
		}
	}
	return assignment, true
}

//nolint:whitespace // keep signature grouping
func firstFeasibleSlot(
	team *model.TeamDefinition, from int,
	teams []*model.TeamDefinition, assignment map[int]int, p *Params,
) (int, bool) {
	for slot := from; slot+team.FlightTimeMinutes <= windowSlots; slot++ {
		if feasibleAt(team, slot, teams, assignment, p) {
			return slot, true
		}
	}
	return 0, false
}

// resourceKeys names the shared resources a team occupies. The prefix
// selects the switch time applied on release.
func resourceKeys(team *model.TeamDefinition) []string {
	ret := make([]string, 0, 4)
	if team.AircraftRegistration != "" {
		ret = append(ret, "a:"+team.AircraftRegistration)
	}
	if team.TrackerID != "" {
		ret = append(ret, "t:"+team.TrackerID+"/"+team.TrackerService)
	}
	if team.Member1 != "" {
		ret = append(ret, "m:"+team.Member1)
	}
	if team.Member2 != "" {
		ret = append(ret, "m:"+team.Member2)
	}
	return ret
}
