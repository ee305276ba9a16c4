package calculators

import (
	"fmt"
	"math"
	"time"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/score"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

const (
	insideCorridor  = "INSIDE_CORRIDOR"
	outsideCorridor = "OUTSIDE_CORRIDOR"
)

// CorridorCalculator enforces the ANR corridor: one polygon around the
// route centre line. Each leg accumulates its own outside penalty
// annotation so per gate caps apply.
type CorridorCalculator struct {
	scorecard *model.Scorecard
	sink      score.Sink
	l         *log.Logger

	polygon []geo.Point
	proj    *geo.Projector

	state                  string
	crossedOutsideTime     time.Time
	crossedOutsidePosition *model.Position
	previousLastGate       *route.Gate
	previousMissPosition   *model.Position
}

type CorridorOption func(*CorridorCalculator)

func WithCorridorLogger(l *log.Logger) CorridorOption {
	return func(c *CorridorCalculator) { c.l = l }
}

//nolint:whitespace // keep signature grouping
func NewCorridorCalculator(
	r *model.Route, scorecard *model.Scorecard, sink score.Sink,
	opts ...CorridorOption,
) *CorridorCalculator {
	ret := &CorridorCalculator{
		scorecard: scorecard,
		sink:      sink,
		l:         log.Default().Named("corridor"),
		state:     insideCorridor,
		polygon:   corridorPolygon(r),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.proj = geo.NewProjector(polygonCentroid(ret.polygon))
	return ret
}

// corridorPolygon walks the waypoints forward along the left boundary and
// back along the right boundary.
func corridorPolygon(r *model.Route) []geo.Point {
	var poly []geo.Point
	for _, wp := range r.Waypoints {
		if r.RoundedCorners && len(wp.LeftCorridorLine) > 0 {
			poly = append(poly, wp.LeftCorridorLine...)
		} else {
			poly = append(poly, wp.GateLine[0])
		}
	}
	for i := len(r.Waypoints) - 1; i >= 0; i-- {
		wp := r.Waypoints[i]
		if r.RoundedCorners && len(wp.RightCorridorLine) > 0 {
			for j := len(wp.RightCorridorLine) - 1; j >= 0; j-- {
				poly = append(poly, wp.RightCorridorLine[j])
			}
		} else {
			poly = append(poly, wp.GateLine[1])
		}
	}
	return poly
}

func polygonCentroid(poly []geo.Point) geo.Point {
	var lat, lon float64
	for _, p := range poly {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(poly))
	return geo.Point{Lat: lat / n, Lon: lon / n}
}

//nolint:whitespace // keep signature grouping
func (c *CorridorCalculator) CalculateEnroute(
	track []*model.Position, lastGate, inRangeOfGate *route.Gate,
) {
	cur := track[len(track)-1]
	inside := c.proj.PointInPolygon(cur.Point(), c.polygon)
	switch {
	case !inside && c.state == insideCorridor:
		c.state = outsideCorridor
		c.crossedOutsideTime = cur.Time
		c.crossedOutsidePosition = cur
		c.previousLastGate = lastGate
	case !inside && c.state == outsideCorridor:
		// charge each leg separately so the per gate cap applies
		if lastGate != c.previousLastGate {
			c.checkAndApplyOutsidePenalty(cur, c.previousLastGate, false)
			c.previousLastGate = lastGate
		}
	case inside && c.state == outsideCorridor:
		c.state = insideCorridor
		c.checkAndApplyOutsidePenalty(cur, lastGate, false)
	}
}

// checkAndApplyOutsidePenalty charges the outside time elapsed since the
// corridor was left (minus grace). Resets the outside reference so a
// continued excursion keeps accumulating from there.
//
//nolint:whitespace // keep signature grouping
func (c *CorridorCalculator) checkAndApplyOutsidePenalty(
	position *model.Position, lastGate *route.Gate, applyMaximumPenalty bool,
) {
	outsideTime := position.Time.Sub(c.crossedOutsideTime).Seconds()
	// rounding is half-up on the positive value
	penaltyTime := math.Round(outsideTime - c.scorecard.CorridorGraceTime)
	if penaltyTime <= 0 && !applyMaximumPenalty {
		return
	}
	if penaltyTime < 0 {
		penaltyTime = 0
	}
	points := c.scorecard.CorridorOutsidePenalty * penaltyTime
	if applyMaximumPenalty {
		points = c.scorecard.CorridorMaximumPenalty
	}
	gateName := ""
	if lastGate != nil {
		gateName = lastGate.Name()
	}
	c.sink.UpdateScore(&score.Update{
		Time:           position.Time,
		Gate:           gateName,
		Score:          points,
		Message:        fmt.Sprintf("outside corridor (%d seconds)", int(penaltyTime)+int(c.scorecard.CorridorGraceTime)),
		Latitude:       position.Latitude,
		Longitude:      position.Longitude,
		AnnotationType: model.AnnotationAnomaly,
		ScoreType:      "outside_corridor" + gateName,
		MaximumScore:   c.scorecard.CorridorMaximumPenalty,
	})
	c.crossedOutsideTime = position.Time.Add(
		-time.Duration(c.scorecard.CorridorGraceTime * float64(time.Second)))
}

// MissedGate charges the maximum penalty once per consecutive missed leg
// when the contestant skipped a gate while outside the corridor.
func (c *CorridorCalculator) MissedGate(gate *route.Gate, position *model.Position) {
	if c.state != outsideCorridor {
		return
	}
	if c.previousMissPosition == position {
		c.checkAndApplyOutsidePenalty(position, gate, true)
	} else {
		c.checkAndApplyOutsidePenalty(position, gate, false)
	}
	c.previousMissPosition = position
	c.previousLastGate = gate
}

//nolint:whitespace // keep signature grouping
func (c *CorridorCalculator) CalculateOutsideRoute(
	track []*model.Position, lastGate *route.Gate,
) {
	// the corridor only exists on the route
}

//nolint:whitespace // keep signature grouping
func (c *CorridorCalculator) PassedFinishpoint(
	track []*model.Position, lastGate *route.Gate,
) {
	if c.state == outsideCorridor {
		cur := track[len(track)-1]
		c.checkAndApplyOutsidePenalty(cur, lastGate, false)
		c.state = insideCorridor
	}
}
