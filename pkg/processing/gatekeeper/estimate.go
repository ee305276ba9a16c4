package gatekeeper

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

const (
	// speed averaging windows for the crossing estimate
	estimateWindow      = 20 * time.Second
	estimateShortWindow = 6 * time.Second
	// below this ground speed no sensible estimate exists
	minimumEstimateSpeedKt = 1.0
)

// publishEstimate computes the live crossing estimate for the next timed
// gate and hands it to the notifier.
func (g *Gatekeeper) publishEstimate(position *model.Position) {
	gate := g.nextTimedGate()
	if gate == nil {
		return
	}
	eta, ok := g.estimateCrossingTime(gate, position, estimateWindow)
	if !ok {
		return
	}
	// close to the gate a shorter window tracks the final approach speed
	if eta.Sub(position.Time) < estimateShortWindow*4 {
		if short, okShort := g.estimateCrossingTime(
			gate, position, estimateShortWindow); okShort {
			eta = short
		}
	}
	points, err := g.scorecard.CalculateGateScore(gate.Type(), gate.ExpectedTime, &eta)
	if err != nil {
		return
	}
	g.notify(&model.GateScoreIfCrossedNow{
		WaypointName: gate.Name(),
		Seconds:      eta.Sub(gate.ExpectedTime).Seconds(),
		Score:        points,
	})
}

func (g *Gatekeeper) nextTimedGate() *route.Gate {
	for _, gate := range g.outstanding {
		if gate.Waypoint.TimeCheck {
			return gate
		}
	}
	return nil
}

// estimateCrossingTime projects the perpendicular distance to the gate line
// onto the average speed over the trailing window.
//
//nolint:whitespace // keep signature grouping
func (g *Gatekeeper) estimateCrossingTime(
	gate *route.Gate, position *model.Position, window time.Duration,
) (time.Time, bool) {
	speed := g.averageSpeed(position.Time, window)
	if speed < minimumEstimateSpeedKt {
		return time.Time{}, false
	}
	crossTrack := math.Abs(geo.CrossTrackDistance(
		gate.Waypoint.GateLine[0], gate.Waypoint.GateLine[1], position.Point()))
	hours := crossTrack / geo.MetersPerNauticalMile / speed
	return position.Time.Add(time.Duration(hours * float64(time.Hour))), true
}

func (g *Gatekeeper) averageSpeed(now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	var speeds []float64
	for i := len(g.track) - 1; i >= 0; i-- {
		if g.track[i].Time.Before(cutoff) {
			break
		}
		speeds = append(speeds, g.track[i].Speed)
	}
	if len(speeds) == 0 {
		return 0
	}
	return stat.Mean(speeds, nil)
}
