//nolint:funlen // ok for tests
package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

var takeoff = time.Date(2025, 6, 14, 8, 0, 0, 0, time.UTC)

func team(pk, flightTime int) *model.TeamDefinition {
	return &model.TeamDefinition{PK: pk, FlightTimeMinutes: flightTime}
}

func assertAllPairsFeasible(t *testing.T, result *Result, p *Params) {
	t.Helper()
	for i, a := range result.Teams {
		for _, b := range result.Teams[i+1:] {
			assert.True(t,
				pairFeasible(a, b, a.StartSlot, b.StartSlot, p),
				"teams %d and %d at slots %d and %d",
				a.PK, b.PK, a.StartSlot, b.StartSlot)
		}
	}
}

func TestScheduleSingleTeam(t *testing.T) {
	s := New()
	result := s.Schedule([]*model.TeamDefinition{team(1, 45)}, takeoff)

	require.Len(t, result.Teams, 1)
	assert.Zero(t, result.Teams[0].StartSlot)
	assert.Equal(t, takeoff, result.Teams[0].StartTime)
	assert.Contains(t, result.Message, "span 45m")
}

func TestSharedAircraftDoesNotOverlap(t *testing.T) {
	params := Params{
		MinimumStartInterval: 1,
		AircraftSwitchTime:   10,
		Optimise:             true,
	}
	a := team(1, 60)
	a.AircraftRegistration = "LN-ABC"
	b := team(2, 60)
	b.AircraftRegistration = "LN-ABC"

	s := New(WithParams(params))
	result := s.Schedule([]*model.TeamDefinition{a, b}, takeoff)

	require.Len(t, result.Teams, 2)
	gap := result.Teams[0].StartSlot - result.Teams[1].StartSlot
	if gap < 0 {
		gap = -gap
	}
	assert.GreaterOrEqual(t, gap, 70)
	assertAllPairsFeasible(t, result, &params)
}

func TestSharedCrewAndTrackerGaps(t *testing.T) {
	params := Params{
		MinimumStartInterval: 2,
		TrackerSwitchTime:    5,
		TrackerStartLeadTime: 3,
		CrewSwitchTime:       15,
		Optimise:             true,
	}
	a := team(1, 30)
	a.TrackerID = "T9"
	a.Member1 = "Kari"
	b := team(2, 30)
	b.TrackerID = "T9"
	b.Member2 = "Kari"
	c := team(3, 30)

	s := New(WithParams(params))
	result := s.Schedule([]*model.TeamDefinition{a, b, c}, takeoff)

	require.Len(t, result.Teams, 3)
	assertAllPairsFeasible(t, result, &params)
}

func TestFrozenTeamKeepsItsSlot(t *testing.T) {
	params := Params{MinimumStartInterval: 5, Optimise: true}
	frozen := team(1, 60)
	frozen.Frozen = true
	frozen.StartTime = takeoff.Add(30 * time.Minute)
	free := team(2, 60)

	s := New(WithParams(params))
	result := s.Schedule([]*model.TeamDefinition{frozen, free}, takeoff)

	require.Len(t, result.Teams, 2)
	for _, scheduled := range result.Teams {
		if scheduled.PK == 1 {
			assert.Equal(t, 30, scheduled.StartSlot)
			assert.Equal(t, takeoff.Add(30*time.Minute), scheduled.StartTime)
		}
	}
	assertAllPairsFeasible(t, result, &params)
}

func TestFasterTeamStartsAfterSlower(t *testing.T) {
	params := Params{MinimumStartInterval: 5, Optimise: true}
	slow := team(1, 100)
	fast := team(2, 60)

	s := New(WithParams(params))
	result := s.Schedule([]*model.TeamDefinition{slow, fast}, takeoff)

	require.Len(t, result.Teams, 2)
	var slowSlot, fastSlot int
	for _, scheduled := range result.Teams {
		if scheduled.PK == 1 {
			slowSlot = scheduled.StartSlot
		} else {
			fastSlot = scheduled.StartSlot
		}
	}
	// the faster team may not overtake the slower one before the finish
	assert.GreaterOrEqual(t, fastSlot, slowSlot+40+1)
	assertAllPairsFeasible(t, result, &params)
}

func TestInfeasibleScheduleReturnsEmpty(t *testing.T) {
	params := Params{MinimumStartInterval: 10, Optimise: true}
	a := team(1, 60)
	a.Frozen = true
	a.StartTime = takeoff
	b := team(2, 60)
	b.Frozen = true
	b.StartTime = takeoff.Add(2 * time.Minute)

	s := New(WithParams(params))
	result := s.Schedule([]*model.TeamDefinition{a, b}, takeoff)

	assert.Empty(t, result.Teams)
	assert.Contains(t, result.Message, "no feasible schedule")
}

func TestWarmStartOnlyWhenOptimiseDisabled(t *testing.T) {
	params := Params{MinimumStartInterval: 3, Optimise: false}
	teams := []*model.TeamDefinition{team(1, 30), team(2, 30), team(3, 30)}

	s := New(WithParams(params))
	result := s.Schedule(teams, takeoff)

	require.Len(t, result.Teams, 3)
	assertAllPairsFeasible(t, result, &params)
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	original := team(1, 30)
	s := New()
	result := s.Schedule([]*model.TeamDefinition{original}, takeoff)

	require.Len(t, result.Teams, 1)
	assert.True(t, original.StartTime.IsZero())
	assert.NotSame(t, original, result.Teams[0])
}
