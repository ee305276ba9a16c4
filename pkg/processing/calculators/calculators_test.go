//nolint:funlen // ok for tests
package calculators

import (
	"time"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/score"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

// recordingSink captures score updates for assertions.
type recordingSink struct {
	updates []*score.Update
}

func (r *recordingSink) UpdateScore(u *score.Update) {
	r.updates = append(r.updates, u)
}

func (r *recordingSink) anomalies() []*score.Update {
	var ret []*score.Update
	for _, u := range r.updates {
		if u.AnnotationType == model.AnnotationAnomaly && u.Score != 0 {
			ret = append(ret, u)
		}
	}
	return ret
}

func testScorecard() *model.Scorecard {
	return &model.Scorecard{
		GateScores: map[model.GateType]*model.GateScoreValues{
			model.GateStartingPoint: {
				GracePeriodBefore: 2, GracePeriodAfter: 2,
				PenaltyPerSecond: 3, MaximumPenalty: 100, MissedPenalty: 100,
				MissedProcedureTurnPenalty:            200,
				BadCrossingExtendedGatePenalty:        200,
				BacktrackingAfterGateGracePeriodNM:    0.5,
				BacktrackingBeforeGateGracePeriodNM:   0.5,
				BacktrackingAfterSteepGateGracePeriod: 15,
			},
			model.GateTurningPoint: {
				GracePeriodBefore: 2, GracePeriodAfter: 2,
				PenaltyPerSecond: 3, MaximumPenalty: 100, MissedPenalty: 100,
				MissedProcedureTurnPenalty:            200,
				BacktrackingAfterGateGracePeriodNM:    0.5,
				BacktrackingBeforeGateGracePeriodNM:   0.5,
				BacktrackingAfterSteepGateGracePeriod: 15,
			},
			model.GateFinishPoint: {
				GracePeriodBefore: 2, GracePeriodAfter: 2,
				PenaltyPerSecond: 3, MaximumPenalty: 100, MissedPenalty: 100,
				MissedProcedureTurnPenalty:         200,
				BacktrackingAfterGateGracePeriodNM: 0.5,
			},
		},
		BacktrackingPenalty:           200,
		BacktrackingMaximumPenalty:    400,
		BacktrackingBearingDifference: 90,
		BacktrackingGraceTimeSeconds:  5,
		CorridorGraceTime:             5,
		CorridorOutsidePenalty:        3,
		CorridorMaximumPenalty:        -1,
		ProhibitedZonePenalty:         2000,
		ProhibitedZoneGraceTime:       3,
		PenaltyZoneGraceTime:          5,
		PenaltyZonePenaltyPerSecond:   3,
		PenaltyZoneMaximum:            100,
	}
}

func mustBuildRoute(waypoints []*model.Waypoint, opts ...route.Option) *model.Route {
	r, err := route.Build(waypoints, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func northboundRoute() *model.Route {
	return mustBuildRoute([]*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 0.5,
			Type: model.GateStartingPoint},
		{Name: "TP1", Latitude: 60.5, Longitude: 10, WidthNM: 0.5,
			Type: model.GateTurningPoint},
		{Name: "FP", Latitude: 61, Longitude: 10, WidthNM: 0.5,
			Type: model.GateFinishPoint},
	}, route.WithCorridorWidth(0.5))
}

// trackAt builds a 1 Hz track from waypoints of (lat, lon) starting at base.
func trackAt(base time.Time, coords ...[2]float64) []*model.Position {
	ret := make([]*model.Position, 0, len(coords))
	for i, c := range coords {
		ret = append(ret, &model.Position{
			Time:     base.Add(time.Duration(i) * time.Second),
			Latitude: c[0], Longitude: c[1],
		})
	}
	return ret
}
