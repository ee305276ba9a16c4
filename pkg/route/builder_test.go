//nolint:funlen // ok for tests
package route

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

func straightWaypoints() []*model.Waypoint {
	return []*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 1, Type: model.GateStartingPoint},
		{Name: "TP1", Latitude: 60.5, Longitude: 10, WidthNM: 1, Type: model.GateTurningPoint},
		{Name: "FP", Latitude: 61, Longitude: 10, WidthNM: 1, Type: model.GateFinishPoint},
	}
}

func TestBuildRejectsTooFewWaypoints(t *testing.T) {
	_, err := Build([]*model.Waypoint{
		{Name: "SP", Type: model.GateStartingPoint},
	})
	assert.ErrorIs(t, err, ErrTooFewWaypoints)
}

func TestBuildRejectsBadEdgeTypes(t *testing.T) {
	wps := straightWaypoints()
	wps[0].Type = model.GateTurningPoint
	_, err := Build(wps)
	assert.ErrorIs(t, err, ErrBadEdgeType)
}

func TestBuildRejectsDegenerateZone(t *testing.T) {
	_, err := Build(straightWaypoints(), WithZones(&model.Zone{
		Name: "bad", Type: model.ZonePenalty,
		Path: []geo.Point{{Lat: 60, Lon: 10}, {Lat: 60.1, Lon: 10}},
	}))
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestBuildDistancesAndBearings(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)

	sp, tp, fp := r.Waypoints[0], r.Waypoints[1], r.Waypoints[2]
	assert.InDelta(t, 55597, sp.DistanceNext, 50)
	assert.Equal(t, sp.DistanceNext, tp.DistancePrevious)
	assert.Equal(t, tp.DistanceNext, fp.DistancePrevious)
	assert.InDelta(t, 0, sp.BearingNext, 0.5)
	assert.InDelta(t, 0, tp.BearingFromPrevious, 0.5)
}

func TestBuildGateLineCrossesWaypoint(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	tp := r.Waypoints[1]
	mid := geo.MidPoint(tp.GateLine[0], tp.GateLine[1])
	assert.InDelta(t, tp.Latitude, mid.Lat, 1e-4)
	assert.InDelta(t, tp.Longitude, mid.Lon, 1e-4)
	// full width one NM
	assert.InDelta(t, geo.MetersPerNauticalMile,
		geo.Distance(tp.GateLine[0], tp.GateLine[1]), 1)
}

func TestBuildInfiniteLineIsLonger(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	tp := r.Waypoints[1]
	narrow := geo.Distance(tp.GateLine[0], tp.GateLine[1])
	inf := geo.Distance(tp.GateLineInfinite[0], tp.GateLineInfinite[1])
	assert.Greater(t, inf, 10*narrow)
}

func TestBuildTypeDefaults(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	for _, wp := range r.Waypoints {
		assert.True(t, wp.TimeCheck, wp.Name)
		assert.True(t, wp.GateCheck, wp.Name)
	}
}

func TestBuildProcedureTurnMarking(t *testing.T) {
	wps := []*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 1, Type: model.GateStartingPoint},
		{Name: "TP1", Latitude: 60.5, Longitude: 10, WidthNM: 1, Type: model.GateTurningPoint},
		// sharp turn back south-east, well above 90 degrees
		{Name: "FP", Latitude: 60.1, Longitude: 10.1, WidthNM: 1, Type: model.GateFinishPoint},
	}
	r, err := Build(wps, WithProcedureTurns())
	require.NoError(t, err)
	assert.True(t, r.Waypoints[1].IsProcedureTurn)
	assert.True(t, r.Waypoints[1].IsSteepTurn)

	// without the option only the steep turn marker remains
	r2, err := Build(straightWaypoints(), WithProcedureTurns())
	require.NoError(t, err)
	assert.False(t, r2.Waypoints[1].IsProcedureTurn)
}

func TestBuildRoundedCorners(t *testing.T) {
	wps := []*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 0.5, Type: model.GateStartingPoint},
		{Name: "TP1", Latitude: 60.2, Longitude: 10, WidthNM: 0.5, Type: model.GateTurningPoint},
		{Name: "FP", Latitude: 60.2, Longitude: 10.5, WidthNM: 0.5, Type: model.GateFinishPoint},
	}
	r, err := Build(wps, WithRoundedCorners(0.5))
	require.NoError(t, err)
	tp := r.Waypoints[1]
	assert.NotEmpty(t, tp.LeftCorridorLine)
	assert.NotEmpty(t, tp.RightCorridorLine)
	// right turn: the arc sits on the inside (right) boundary
	assert.Greater(t, len(tp.RightCorridorLine), len(tp.LeftCorridorLine))
}

func TestGateIntersectionAndCrossingTime(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	tp := r.Waypoints[1]
	gate := NewGate(tp, time.Date(2020, 8, 1, 8, 10, 0, 0, time.UTC))
	proj := geo.NewProjector(tp.Point())

	from := &model.Position{
		Time: time.Date(2020, 8, 1, 8, 9, 58, 0, time.UTC),
		Latitude: 60.499, Longitude: 10,
	}
	to := &model.Position{
		Time: time.Date(2020, 8, 1, 8, 10, 2, 0, time.UTC),
		Latitude: 60.501, Longitude: 10,
	}
	x, ok := gate.Intersection(proj, from.Point(), to.Point())
	require.True(t, ok)
	crossing := CrossingTime(proj, from, to, x)
	assert.False(t, crossing.Before(from.Time))
	assert.False(t, crossing.After(to.Time))
	// halfway along the segment
	assert.InDelta(t, 2,
		crossing.Sub(from.Time).Seconds(), 0.1)
}

func TestGateNoIntersectionBesideLine(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	tp := r.Waypoints[1]
	gate := NewGate(tp, time.Time{})
	proj := geo.NewProjector(tp.Point())

	// passes 5 NM east of the gate
	_, ok := gate.Intersection(proj,
		geo.Point{Lat: 60.499, Lon: 10.15}, geo.Point{Lat: 60.501, Lon: 10.15})
	assert.False(t, ok)
	// but the infinite line still catches it
	_, ok = gate.InfiniteIntersection(proj,
		geo.Point{Lat: 60.499, Lon: 10.05}, geo.Point{Lat: 60.501, Lon: 10.05})
	assert.True(t, ok)
}

func TestGateDirectionCheck(t *testing.T) {
	r, err := Build(straightWaypoints())
	require.NoError(t, err)
	sp := NewGate(r.Waypoints[0], time.Time{})
	assert.True(t, sp.IsCrossedInCorrectDirection(10))
	assert.False(t, sp.IsCrossedInCorrectDirection(180))
}
