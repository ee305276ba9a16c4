package route

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

var (
	ErrTooFewWaypoints = errors.New("route needs at least two waypoints")
	ErrBadEdgeType     = errors.New("route must start with sp/to and end with fp/ldg")
	ErrInvalidZone     = errors.New("zone polygon needs at least three points")
)

// procedure turns require the turn at the waypoint to exceed this magnitude
const procedureTurnThreshold = 90.0

// infinite gate lines extend the nominal line by this factor of the width
const infiniteWidthFactor = 10.0

// sampling step for rounded corner arcs
const arcStepDeg = 10.0

type Option func(*builder)

type builder struct {
	roundedCorners  bool
	corridorWidthNM float64
	procedureTurns  bool
	takeoffGates    []*model.Waypoint
	landingGates    []*model.Waypoint
	zones           []*model.Zone
	extendedWidths  map[model.GateType]float64 // NM, per gate type
}

// WithRoundedCorners enables ANR style corridor geometry with the given
// corridor width in NM.
func WithRoundedCorners(widthNM float64) Option {
	return func(b *builder) {
		b.roundedCorners = true
		b.corridorWidthNM = widthNM
	}
}

// WithCorridorWidth sets the corridor width (NM) without rounded corners.
func WithCorridorWidth(widthNM float64) Option {
	return func(b *builder) { b.corridorWidthNM = widthNM }
}

// WithProcedureTurns enables marking of procedure turn waypoints.
func WithProcedureTurns() Option {
	return func(b *builder) { b.procedureTurns = true }
}

func WithTakeoffGates(gates ...*model.Waypoint) Option {
	return func(b *builder) { b.takeoffGates = gates }
}

func WithLandingGates(gates ...*model.Waypoint) Option {
	return func(b *builder) { b.landingGates = gates }
}

func WithZones(zones ...*model.Zone) Option {
	return func(b *builder) { b.zones = zones }
}

// WithExtendedGateWidths supplies the scorecard's extended gate widths (NM)
// used for the extended gate lines.
func WithExtendedGateWidths(widths map[model.GateType]float64) Option {
	return func(b *builder) { b.extendedWidths = widths }
}

// Build computes all derived waypoint geometry and assembles the route.
// Rejects invalid input at task creation time so bad routes never reach the
// runtime.
//
//nolint:funlen,cyclop // route assembly is one sequential computation
func Build(waypoints []*model.Waypoint, opts ...Option) (*model.Route, error) {
	b := &builder{extendedWidths: map[model.GateType]float64{}}
	for _, opt := range opts {
		opt(b)
	}
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	first, last := waypoints[0], waypoints[len(waypoints)-1]
	if !isValidFirstType(first.Type) || !isValidLastType(last.Type) {
		return nil, fmt.Errorf("%w: got %s .. %s", ErrBadEdgeType, first.Type, last.Type)
	}
	for _, z := range b.zones {
		if len(z.Path) < 3 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidZone, z.Name)
		}
	}

	for i, wp := range waypoints {
		applyTypeDefaults(wp)
		if i > 0 {
			prev := waypoints[i-1]
			wp.DistancePrevious = geo.Distance(prev.Point(), wp.Point())
			wp.BearingFromPrevious = geo.Bearing(prev.Point(), wp.Point())
			prev.DistanceNext = wp.DistancePrevious
			prev.BearingNext = wp.BearingFromPrevious
		}
	}
	// the last waypoint keeps its incoming bearing as outgoing reference
	last.BearingNext = last.BearingFromPrevious
	first.BearingFromPrevious = first.BearingNext

	for i, wp := range waypoints {
		width := wp.WidthNM
		if b.roundedCorners && b.corridorWidthNM > 0 && isIntermediate(i, waypoints) {
			width = b.corridorWidthNM
		}
		widthM := width * geo.MetersPerNauticalMile
		gateBearing := b.gateLineBearing(i, waypoints)
		wp.GateLine = gateLineAt(wp.Point(), gateBearing, widthM)

		extendedNM := lo.ValueOr(b.extendedWidths, wp.Type, width)
		wp.GateLineExtended = gateLineAt(
			wp.Point(), gateBearing, extendedNM*geo.MetersPerNauticalMile)

		infA, infB := geo.ExtendLine(
			wp.GateLine[0], wp.GateLine[1], infiniteWidthFactor*widthM)
		wp.GateLineInfinite = [2]geo.Point{infA, infB}

		b.markTurns(i, wp, waypoints)
	}

	if b.roundedCorners && b.corridorWidthNM > 0 {
		b.buildCorridorBoundaries(waypoints)
	}

	return &model.Route{
		Waypoints:      waypoints,
		TakeoffGates:   b.takeoffGates,
		LandingGates:   b.landingGates,
		Zones:          b.zones,
		RoundedCorners: b.roundedCorners,
		CorridorWidth:  b.corridorWidthNM,
	}, nil
}

func isValidFirstType(t model.GateType) bool {
	return t == model.GateStartingPoint || t == model.GateTakeoff ||
		t == model.GateDummy
}

func isValidLastType(t model.GateType) bool {
	return t == model.GateFinishPoint || t == model.GateLanding ||
		t == model.GateDummy
}

func isIntermediate(i int, waypoints []*model.Waypoint) bool {
	return i > 0 && i < len(waypoints)-1
}

// applyTypeDefaults sets the per type check flags per the gate policies.
func applyTypeDefaults(wp *model.Waypoint) {
	switch wp.Type {
	case model.GateStartingPoint, model.GateTurningPoint,
		model.GateSecret, model.GateFinishPoint:
		wp.TimeCheck = true
		wp.GateCheck = true
	default:
		wp.TimeCheck = false
		wp.GateCheck = false
	}
	if wp.InsideDistance == 0 {
		wp.InsideDistance = 2 * wp.WidthNM * geo.MetersPerNauticalMile
	}
	if wp.OutsideDistance == 0 {
		wp.OutsideDistance = wp.InsideDistance * 2
	}
}

// gateLineBearing returns the travel bearing to build the gate line
// perpendicular to: the bisector at intermediate waypoints, the outgoing leg
// at the start, the incoming leg at the finish.
func (b *builder) gateLineBearing(i int, waypoints []*model.Waypoint) float64 {
	wp := waypoints[i]
	switch {
	case i == 0:
		return wp.BearingNext
	case i == len(waypoints)-1:
		return wp.BearingFromPrevious
	default:
		return geo.NormalizeBearing(wp.BearingFromPrevious +
			geo.BearingDifference(wp.BearingFromPrevious, wp.BearingNext)/2)
	}
}

// gateLineAt builds the two point gate line crossing the waypoint,
// perpendicular to travelBearing. Endpoint 0 is the left side seen in the
// direction of flight.
func gateLineAt(p geo.Point, travelBearing, widthM float64) [2]geo.Point {
	left := geo.ProjectBearing(p, geo.NormalizeBearing(travelBearing-90), widthM/2)
	right := geo.ProjectBearing(p, geo.NormalizeBearing(travelBearing+90), widthM/2)
	return [2]geo.Point{left, right}
}

func (b *builder) markTurns(i int, wp *model.Waypoint, waypoints []*model.Waypoint) {
	if !isIntermediate(i, waypoints) {
		return
	}
	turn := geo.AbsoluteBearingDifference(wp.BearingFromPrevious, wp.BearingNext)
	wp.IsSteepTurn = turn > procedureTurnThreshold
	if b.procedureTurns && turn > procedureTurnThreshold {
		wp.IsProcedureTurn = true
	}
}

// buildCorridorBoundaries computes the left/right corridor polylines for
// rounded corners: a sampled arc on the inside of each turn, the straight
// gate endpoint on the outside. Leg distances are corrected with the centre
// line arc length.
//
//nolint:gocognit // geometric case analysis
func (b *builder) buildCorridorBoundaries(waypoints []*model.Waypoint) {
	radius := b.corridorWidthNM * geo.MetersPerNauticalMile
	half := radius / 2
	for i, wp := range waypoints {
		if !isIntermediate(i, waypoints) {
			continue
		}
		turn := geo.BearingDifference(wp.BearingFromPrevious, wp.BearingNext)
		if turn == 0 {
			continue
		}
		// arc on the inside of the turn, between the perpendiculars of the
		// two adjacent legs
		insideSign := -1.0 // left of track for a left turn
		if turn > 0 {
			insideSign = 1.0
		}
		fromDir := geo.NormalizeBearing(wp.BearingFromPrevious + insideSign*90)
		arc := sampleArc(wp.Point(), fromDir, turn, half)
		outside := [2]geo.Point{
			geo.ProjectBearing(wp.Point(),
				geo.NormalizeBearing(fromDir+180+turn/2), half),
		}
		if turn > 0 {
			wp.RightCorridorLine = arc
			wp.LeftCorridorLine = outside[:]
		} else {
			wp.LeftCorridorLine = arc
			wp.RightCorridorLine = outside[:]
		}
		// replace the straight corner with the centre line arc length
		tangent := radius * math.Abs(math.Tan(turn*math.Pi/360))
		arcLen := radius * math.Abs(turn) * math.Pi / 180
		correction := arcLen - 2*tangent
		waypoints[i-1].DistanceNext += correction / 2
		wp.DistancePrevious = waypoints[i-1].DistanceNext
		wp.DistanceNext += correction / 2
		waypoints[i+1].DistancePrevious = wp.DistanceNext
	}
}

// sampleArc returns points at the given radius from center, sweeping from
// startDir by sweepDeg in steps of arcStepDeg.
func sampleArc(center geo.Point, startDir, sweepDeg, radius float64) []geo.Point {
	steps := int(math.Ceil(math.Abs(sweepDeg) / arcStepDeg))
	if steps < 1 {
		steps = 1
	}
	pts := make([]geo.Point, 0, steps+1)
	for k := 0; k <= steps; k++ {
		dir := startDir + sweepDeg*float64(k)/float64(steps)
		pts = append(pts, geo.ProjectBearing(center, geo.NormalizeBearing(dir), radius))
	}
	return pts
}
