package gatekeeper

import (
	"math"
	"time"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
)

// recalculateGateTimes rebuilds the contestant's gate times from an actual
// start time using the route geometry and the planned wind triangle. Runs at
// most once per flight, on the first valid crossing of the infinite
// starting line.
func (g *Gatekeeper) recalculateGateTimes(start time.Time) {
	times := make(map[string]time.Time, len(g.route.Waypoints))
	wps := g.route.Waypoints
	times[wps[0].Name] = start
	elapsed := time.Duration(0)
	for i := 1; i < len(wps); i++ {
		elapsed += legDuration(
			wps[i].DistancePrevious, wps[i].BearingFromPrevious,
			g.contestant.AirSpeed, g.contestant.WindSpeed, g.contestant.WindDirection)
		times[wps[i].Name] = start.Add(elapsed)
	}
	g.contestant.GateTimes = times
	for _, gate := range g.gates {
		if t, ok := times[gate.Name()]; ok {
			gate.ExpectedTime = t
		}
	}
	g.startingLine.ExpectedTime = start
	g.l.Info("gate times recalculated from adaptive start",
		log.Int("contestant", g.contestant.ID),
		log.Time("start", start))
}

// legDuration is the time to fly one leg given airspeed and wind.
//
//nolint:whitespace // keep signature grouping
func legDuration(
	distanceM, trackBearing, airSpeedKt, windSpeedKt, windDirectionDeg float64,
) time.Duration {
	gs := groundSpeed(airSpeedKt, windSpeedKt, windDirectionDeg, trackBearing)
	hours := distanceM / geo.MetersPerNauticalMile / gs
	return time.Duration(hours * float64(time.Hour))
}

// groundSpeed solves the wind triangle for the speed made good along the
// track. windDirection is the direction the wind blows from.
func groundSpeed(airSpeedKt, windSpeedKt, windDirectionDeg, trackDeg float64) float64 {
	rel := (windDirectionDeg - trackDeg) * math.Pi / 180
	cross := windSpeedKt * math.Sin(rel)
	along := airSpeedKt*airSpeedKt - cross*cross
	if along <= 0 {
		return minimumEstimateSpeedKt
	}
	gs := math.Sqrt(along) - windSpeedKt*math.Cos(rel)
	if gs < minimumEstimateSpeedKt {
		return minimumEstimateSpeedKt
	}
	return gs
}
