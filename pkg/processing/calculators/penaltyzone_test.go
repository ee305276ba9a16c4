//nolint:funlen // ok for tests
package calculators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

func zoneRoute(zoneType model.ZoneType) *model.Route {
	zone := &model.Zone{
		Name: "alpha",
		Type: zoneType,
		Path: []geo.Point{
			{Lat: 60.20, Lon: 9.98}, {Lat: 60.20, Lon: 10.02},
			{Lat: 60.30, Lon: 10.02}, {Lat: 60.30, Lon: 9.98},
		},
	}
	return mustBuildRoute([]*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 0.5,
			Type: model.GateStartingPoint},
		{Name: "FP", Latitude: 61, Longitude: 10, WidthNM: 0.5,
			Type: model.GateFinishPoint},
	}, route.WithZones(zone))
}

func TestPenaltyZoneStayIsCharged(t *testing.T) {
	r := zoneRoute(model.ZonePenalty)
	sink := &recordingSink{}
	calc := NewPenaltyZoneCalculator(r, testScorecard(), sink)
	gate := route.NewGate(r.Waypoints[0], time.Time{})

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	// enter at t+1, exit at t+11: ten seconds inside, five of grace
	coords := [][2]float64{{60.19, 10}}
	for i := 0; i < 10; i++ {
		coords = append(coords, [2]float64{60.21 + float64(i)*0.005, 10})
	}
	coords = append(coords, [2]float64{60.31, 10})
	track := trackAt(base, coords...)

	for i := 0; i < len(track); i++ {
		calc.CalculateEnroute(track[:i+1], gate, nil)
	}

	entries := 0
	var lastCharge float64
	for _, u := range sink.updates {
		switch {
		case u.Message == "entered penalty zone alpha":
			entries++
			assert.Equal(t, model.AnnotationAnomaly, u.AnnotationType)
			assert.InDelta(t, 0.0, u.Score, 0.001)
		case u.AnnotationType == model.AnnotationAnomaly && u.Score > 0:
			lastCharge = u.Score
			assert.Equal(t, "inside_penalty_zone", u.ScoreType)
		}
	}
	assert.Equal(t, 1, entries)
	// (10 - 5) * 3
	assert.InDelta(t, 15.0, lastCharge, 0.001)
}

func TestPenaltyZoneShortDipIsFree(t *testing.T) {
	r := zoneRoute(model.ZonePenalty)
	sink := &recordingSink{}
	calc := NewPenaltyZoneCalculator(r, testScorecard(), sink)
	gate := route.NewGate(r.Waypoints[0], time.Time{})

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	track := trackAt(base,
		[2]float64{60.19, 10},
		[2]float64{60.21, 10}, [2]float64{60.22, 10}, [2]float64{60.23, 10},
		[2]float64{60.31, 10})

	for i := 0; i < len(track); i++ {
		calc.CalculateEnroute(track[:i+1], gate, nil)
	}

	assert.Empty(t, sink.anomalies())
}

func TestProhibitedZoneFixedPenalty(t *testing.T) {
	r := zoneRoute(model.ZoneProhibited)
	sink := &recordingSink{}
	calc := NewPenaltyZoneCalculator(r, testScorecard(), sink)
	gate := route.NewGate(r.Waypoints[0], time.Time{})

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	coords := [][2]float64{{60.19, 10}}
	for i := 0; i < 8; i++ {
		coords = append(coords, [2]float64{60.21 + float64(i)*0.005, 10})
	}
	coords = append(coords, [2]float64{60.31, 10})
	track := trackAt(base, coords...)

	for i := 0; i < len(track); i++ {
		calc.CalculateEnroute(track[:i+1], gate, nil)
	}

	anomalies := sink.anomalies()
	if assert.Len(t, anomalies, 1) {
		assert.InDelta(t, 2000.0, anomalies[0].Score, 0.001)
		assert.Equal(t, "inside_prohibited_zone", anomalies[0].ScoreType)
		assert.InDelta(t, -1.0, anomalies[0].MaximumScore, 0.001)
	}
}

func TestPenaltyZoneOpenStayClosedOnFinish(t *testing.T) {
	r := zoneRoute(model.ZonePenalty)
	sink := &recordingSink{}
	calc := NewPenaltyZoneCalculator(r, testScorecard(), sink)
	gate := route.NewGate(r.Waypoints[1], time.Time{})

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	coords := [][2]float64{{60.19, 10}}
	for i := 0; i < 10; i++ {
		coords = append(coords, [2]float64{60.21 + float64(i)*0.005, 10})
	}
	track := trackAt(base, coords...)
	for i := 0; i < len(track); i++ {
		calc.CalculateEnroute(track[:i+1], gate, nil)
	}
	before := len(sink.anomalies())

	calc.PassedFinishpoint(track, gate)

	after := sink.anomalies()
	assert.GreaterOrEqual(t, len(after), before)
	last := after[len(after)-1]
	// (9 - 5) * 3 for the full stay, reported incrementally
	assert.InDelta(t, 12.0, last.Score, 0.001)
}
