package route

import (
	"time"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// Gate wraps a waypoint with the mutable passing state for one contestant.
// A Gate is owned by exactly one processor; the gatekeeper is the only
// component mutating it.
type Gate struct {
	Waypoint     *model.Waypoint
	ExpectedTime time.Time

	PassingTime         time.Time
	ExtendedPassingTime time.Time
	InfinitePassingTime time.Time
	Missed              bool

	MaybeMissedTime     time.Time
	MaybeMissedPosition *model.Position
}

func NewGate(wp *model.Waypoint, expected time.Time) *Gate {
	return &Gate{Waypoint: wp, ExpectedTime: expected}
}

func (g *Gate) Name() string         { return g.Waypoint.Name }
func (g *Gate) Type() model.GateType { return g.Waypoint.Type }

func (g *Gate) HasPassed() bool { return !g.PassingTime.IsZero() }

// HasBeenSeen reports whether the gate has either been passed or missed.
func (g *Gate) HasBeenSeen() bool { return g.HasPassed() || g.Missed }

// Intersection returns the crossing point of the segment [from,to] with the
// narrow gate line, if any.
func (g *Gate) Intersection(proj *geo.Projector, from, to geo.Point) (geo.Point, bool) {
	return proj.LineIntersect(from, to, g.Waypoint.GateLine[0], g.Waypoint.GateLine[1])
}

// ExtendedIntersection is Intersection against the extended gate line.
//
//nolint:whitespace // keep signature grouping
func (g *Gate) ExtendedIntersection(
	proj *geo.Projector, from, to geo.Point,
) (geo.Point, bool) {
	return proj.LineIntersect(from, to,
		g.Waypoint.GateLineExtended[0], g.Waypoint.GateLineExtended[1])
}

// InfiniteIntersection is Intersection against the infinite gate line.
//
//nolint:whitespace // keep signature grouping
func (g *Gate) InfiniteIntersection(
	proj *geo.Projector, from, to geo.Point,
) (geo.Point, bool) {
	return proj.LineIntersect(from, to,
		g.Waypoint.GateLineInfinite[0], g.Waypoint.GateLineInfinite[1])
}

// CrossingTime interpolates the crossing time linearly on the segment by the
// fractional distance from prev to the intersection point.
//
//nolint:whitespace // keep signature grouping
func CrossingTime(
	proj *geo.Projector, prev, cur *model.Position, crossing geo.Point,
) time.Time {
	f := proj.FractionAlong(prev.Point(), cur.Point(), crossing)
	dt := cur.Time.Sub(prev.Time)
	return prev.Time.Add(time.Duration(f * float64(dt)))
}

// IsCrossedInCorrectDirection reports whether a track with the given bearing
// crosses the gate in the direction of flight: the signed angle between the
// track bearing and the waypoint's reference bearing is within 90 degrees.
func (g *Gate) IsCrossedInCorrectDirection(trackBearing float64) bool {
	ref := g.Waypoint.BearingNext
	if g.Waypoint.Type == model.GateFinishPoint ||
		g.Waypoint.Type == model.GateLanding {
		ref = g.Waypoint.BearingFromPrevious
	}
	return geo.AbsoluteBearingDifference(trackBearing, ref) < 90
}

// DistanceTo returns the distance in meters from p to the waypoint.
func (g *Gate) DistanceTo(p geo.Point) float64 {
	return geo.Distance(p, g.Waypoint.Point())
}
