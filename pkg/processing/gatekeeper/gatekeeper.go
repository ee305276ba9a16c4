package gatekeeper

import (
	"fmt"
	"time"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/calculators"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/score"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

const (
	// a backwards crossing of the extended starting line is only charged
	// once per debounce window
	backwardsCrossingDebounce = 15 * time.Second
	// how long after crossing the infinite line a gate may still be
	// crossed before it counts as missed
	maybeMissedTimeLimit = 0 * time.Second
	// look-back window for the calculators
	trackWindow = 600

	scoreTypeGateScore = "gate_score"
)

// Gatekeeper drives the gate state machine for one contestant. It owns the
// contestant's Gate list and calculator instances and must only be called
// from the contestant's processor goroutine.
type Gatekeeper struct {
	contestant *model.Contestant
	route      *model.Route
	scorecard  *model.Scorecard
	sink       score.Sink
	l          *log.Logger

	proj *geo.Projector

	gates        []*route.Gate
	outstanding  []*route.Gate
	takeoffGates []*route.Gate
	startingLine *route.Gate

	track []*model.Position

	lastGate  *route.Gate
	inRangeOf *route.Gate

	calculators []calculators.Calculator
	notify      func(*model.GateScoreIfCrossedNow)

	lastBackwards     time.Time
	recalculationDone bool
	finished          bool
}

type Option func(*Gatekeeper)

func WithCalculators(calcs ...calculators.Calculator) Option {
	return func(g *Gatekeeper) { g.calculators = append(g.calculators, calcs...) }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gatekeeper) { g.l = l }
}

// WithEstimateNotifier registers the callback receiving the live crossing
// estimate for the next timed gate.
func WithEstimateNotifier(fn func(*model.GateScoreIfCrossedNow)) Option {
	return func(g *Gatekeeper) { g.notify = fn }
}

//nolint:whitespace // keep signature grouping
func New(
	contestant *model.Contestant, r *model.Route, scorecard *model.Scorecard,
	sink score.Sink, opts ...Option,
) (*Gatekeeper, error) {
	if len(r.Waypoints) < 2 {
		return nil, route.ErrTooFewWaypoints
	}
	ret := &Gatekeeper{
		contestant: contestant,
		route:      r,
		scorecard:  scorecard,
		sink:       sink,
		l:          log.Default().Named("gatekeeper"),
		notify:     func(*model.GateScoreIfCrossedNow) {},
		proj:       geo.NewProjector(r.First().Point()),
	}
	for _, wp := range r.Waypoints {
		ret.gates = append(ret.gates, route.NewGate(wp, contestant.GateTimes[wp.Name]))
	}
	ret.outstanding = append(ret.outstanding, ret.gates...)
	for _, wp := range r.TakeoffGates {
		ret.takeoffGates = append(ret.takeoffGates,
			route.NewGate(wp, contestant.GateTimes[wp.Name]))
	}
	for _, wp := range r.LandingGates {
		gate := route.NewGate(wp, contestant.GateTimes[wp.Name])
		ret.gates = append(ret.gates, gate)
		ret.outstanding = append(ret.outstanding, gate)
	}
	ret.startingLine = startingLineGate(r.First(), contestant.GateTimes[r.First().Name])
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

// startingLineGate builds the synthetic extended gate used for start line
// crossing detection.
func startingLineGate(first *model.Waypoint, expected time.Time) *route.Gate {
	wp := *first
	wp.GateLine = wp.GateLineExtended
	return route.NewGate(&wp, expected)
}

// CalculateScore feeds one position through gate detection and the
// calculators. Positions must arrive strictly monotonic in time.
func (g *Gatekeeper) CalculateScore(position *model.Position) {
	position.CalculatorReceivedTime = time.Now()
	g.track = append(g.track, position)
	if len(g.track) > trackWindow {
		g.track = g.track[1:]
	}
	if len(g.track) >= 2 {
		g.checkGates()
	}
	switch {
	case g.finished:
		// timing is settled, only the zone calculators keep running
	case g.outsideRoute():
		for _, c := range g.calculators {
			c.CalculateOutsideRoute(g.track, g.lastGate)
		}
	default:
		for _, c := range g.calculators {
			c.CalculateEnroute(g.track, g.lastGate, g.inRangeOf)
		}
	}
	g.publishEstimate(position)
}

// outsideRoute reports whether the contestant is between an intermediate
// finish and the next intermediate start, where the route rules are
// suspended.
func (g *Gatekeeper) outsideRoute() bool {
	return g.lastGate != nil && g.lastGate.Type() == model.GateIntermediateFinish
}

func (g *Gatekeeper) checkGates() {
	prev := g.track[len(g.track)-2]
	cur := g.track[len(g.track)-1]
	g.checkTakeoffGates(prev, cur)
	g.checkStartingLine(prev, cur)
	if !g.checkNarrowCrossings(prev, cur) {
		g.checkExtendedNext(prev, cur)
	}
	g.checkMissedAfterInfinite(cur)
	g.checkGateRange(cur)
}

func (g *Gatekeeper) checkTakeoffGates(prev, cur *model.Position) {
	for _, gate := range g.takeoffGates {
		if gate.HasBeenSeen() {
			continue
		}
		crossing, ok := gate.Intersection(g.proj, prev.Point(), cur.Point())
		if !ok {
			continue
		}
		t := route.CrossingTime(g.proj, prev, cur, crossing)
		gate.PassingTime = t
		gate.ExtendedPassingTime = t
		gate.InfinitePassingTime = t
		g.sink.UpdateScore(&score.Update{
			Time:           t,
			Gate:           gate.Name(),
			Score:          0,
			Message:        fmt.Sprintf("passing %s", gate.Name()),
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationInformation,
			ScoreType:      scoreTypeGateScore,
			MaximumScore:   -1,
		})
	}
}

//nolint:cyclop // the crossing rules are one sequential decision
func (g *Gatekeeper) checkStartingLine(prev, cur *model.Position) {
	if g.startingLine.Type() != model.GateStartingPoint {
		return
	}
	bearing := geo.Bearing(prev.Point(), cur.Point())
	if _, ok := g.startingLine.Intersection(g.proj, prev.Point(), cur.Point()); ok &&
		!g.startingLine.IsCrossedInCorrectDirection(bearing) {
		if g.lastBackwards.IsZero() ||
			cur.Time.Sub(g.lastBackwards) > backwardsCrossingDebounce {
			g.lastBackwards = cur.Time
			g.chargeBackwardsCrossing(cur)
		}
	}
	if !g.startingLine.InfinitePassingTime.IsZero() {
		return
	}
	crossing, ok := g.startingLine.InfiniteIntersection(g.proj, prev.Point(), cur.Point())
	if !ok || !g.startingLine.IsCrossedInCorrectDirection(bearing) {
		return
	}
	t := route.CrossingTime(g.proj, prev, cur, crossing)
	g.startingLine.InfinitePassingTime = t
	for _, tg := range g.takeoffGates {
		if !tg.HasBeenSeen() {
			tg.Missed = true
		}
	}
	if len(g.outstanding) > 0 {
		first := g.outstanding[0]
		g.inRangeOf = first
		if first.MaybeMissedTime.IsZero() {
			first.MaybeMissedTime = t
			first.MaybeMissedPosition = cur
		}
	}
	if g.contestant.AdaptiveStart && !g.recalculationDone {
		g.recalculationDone = true
		g.recalculateGateTimes(t.Round(time.Second))
	}
}

func (g *Gatekeeper) chargeBackwardsCrossing(cur *model.Position) {
	values, err := g.scorecard.GateScoreFor(g.startingLine.Type())
	if err != nil {
		g.l.Error("starting line score lookup", log.ErrorField(err))
		return
	}
	g.sink.UpdateScore(&score.Update{
		Time:           cur.Time,
		Gate:           g.startingLine.Name(),
		Score:          values.BadCrossingExtendedGatePenalty,
		Message:        "crossing extended starting gate backwards",
		Latitude:       cur.Latitude,
		Longitude:      cur.Longitude,
		AnnotationType: model.AnnotationAnomaly,
		ScoreType:      "bad_crossing_extended_gate",
		MaximumScore:   -1,
	})
}

// requiresDirection reports whether a narrow crossing only counts in the
// direction of flight.
func requiresDirection(t model.GateType) bool {
	return t == model.GateStartingPoint || t == model.GateFinishPoint
}

// checkNarrowCrossings scans the outstanding gates from the end so that the
// furthest gate crossed on this segment wins; every earlier unpassed gate is
// then necessarily missed.
func (g *Gatekeeper) checkNarrowCrossings(prev, cur *model.Position) bool {
	bearing := geo.Bearing(prev.Point(), cur.Point())
	hit := -1
	for i := len(g.outstanding) - 1; i >= 0; i-- {
		gate := g.outstanding[i]
		crossing, ok := gate.Intersection(g.proj, prev.Point(), cur.Point())
		if !ok {
			continue
		}
		if requiresDirection(gate.Type()) && !gate.IsCrossedInCorrectDirection(bearing) {
			continue
		}
		t := route.CrossingTime(g.proj, prev, cur, crossing)
		gate.PassingTime = t
		gate.ExtendedPassingTime = t
		gate.InfinitePassingTime = t
		hit = i
		break
	}
	if hit < 0 {
		return false
	}
	for j := 0; j < hit; j++ {
		if !g.outstanding[j].HasPassed() {
			g.outstanding[j].Missed = true
		}
	}
	for j := 0; j <= hit; j++ {
		g.popGate(cur, j == hit)
	}
	return true
}

// checkExtendedNext handles the extended and infinite lines of the next
// outstanding gate when its narrow line was not crossed.
func (g *Gatekeeper) checkExtendedNext(prev, cur *model.Position) {
	if len(g.outstanding) == 0 {
		return
	}
	next := g.outstanding[0]
	if next.Type() == model.GateStartingPoint || next.Type() == model.GateFinishPoint {
		// the starting line handles the start, the finish has no
		// early miss detection
		return
	}
	bearing := geo.Bearing(prev.Point(), cur.Point())
	if next.Waypoint.IsProcedureTurn && next.ExtendedPassingTime.IsZero() {
		if crossing, ok := next.ExtendedIntersection(g.proj, prev.Point(), cur.Point()); ok {
			t := route.CrossingTime(g.proj, prev, cur, crossing)
			next.ExtendedPassingTime = t
			next.InfinitePassingTime = t
		}
	}
	if next.MaybeMissedTime.IsZero() {
		if _, ok := next.InfiniteIntersection(g.proj, prev.Point(), cur.Point()); ok &&
			next.IsCrossedInCorrectDirection(bearing) {
			next.MaybeMissedTime = cur.Time
			next.MaybeMissedPosition = cur
		}
	}
}

// checkMissedAfterInfinite pops the head gate once the infinite line was
// crossed without the narrow gate line following within the time limit.
func (g *Gatekeeper) checkMissedAfterInfinite(cur *model.Position) {
	for len(g.outstanding) > 0 {
		head := g.outstanding[0]
		if head.HasPassed() || head.MaybeMissedTime.IsZero() {
			return
		}
		if cur.Time.Sub(head.MaybeMissedTime) <= maybeMissedTimeLimit {
			return
		}
		head.Missed = true
		g.popGate(cur, true)
	}
}

// checkGateRange tracks whether the contestant is in range of a turning
// point and misses the gate when the range is left without a crossing.
func (g *Gatekeeper) checkGateRange(cur *model.Position) {
	if g.inRangeOf != nil && len(g.outstanding) > 0 && g.inRangeOf == g.outstanding[0] {
		if g.inRangeOf.DistanceTo(cur.Point()) > g.inRangeOf.Waypoint.OutsideDistance {
			gate := g.inRangeOf
			g.inRangeOf = nil
			if !gate.HasBeenSeen() {
				gate.Missed = true
				g.popGate(cur, true)
			}
		}
		return
	}
	if len(g.outstanding) == 0 {
		return
	}
	next := g.outstanding[0]
	if next.Type() != model.GateTurningPoint && next.Type() != model.GateSecret {
		return
	}
	if !next.HasBeenSeen() && next.DistanceTo(cur.Point()) < next.Waypoint.InsideDistance {
		g.inRangeOf = next
	}
}

// popGate removes the head of the outstanding queue, emits its score and
// informs the calculators about a miss. last marks the final gate handled on
// this segment; only that one publishes a final crossing estimate.
func (g *Gatekeeper) popGate(position *model.Position, last bool) {
	gate := g.outstanding[0]
	g.outstanding = g.outstanding[1:]
	g.lastGate = gate
	if g.inRangeOf == gate {
		g.inRangeOf = nil
	}
	g.emitGateScore(gate, position, last)
	if gate.Missed {
		for _, c := range g.calculators {
			if mh, ok := c.(calculators.MissedGateHandler); ok {
				mh.MissedGate(gate, position)
			}
		}
	}
	if gate.Type() == model.GateFinishPoint {
		g.finish()
	}
}

func (g *Gatekeeper) finish() {
	if g.finished {
		return
	}
	g.finished = true
	if len(g.track) == 0 {
		return
	}
	for _, c := range g.calculators {
		c.PassedFinishpoint(g.track, g.lastGate)
	}
}

//nolint:cyclop // one branch per gate policy row
func (g *Gatekeeper) emitGateScore(gate *route.Gate, position *model.Position, last bool) {
	wp := gate.Waypoint
	switch {
	case gate.HasPassed() && wp.TimeCheck:
		points, err := g.scorecard.CalculateGateScore(
			gate.Type(), gate.ExpectedTime, &gate.PassingTime)
		if err != nil {
			g.internalError(gate, position, err)
			return
		}
		planned := gate.ExpectedTime
		actual := gate.PassingTime
		g.sink.UpdateScore(&score.Update{
			Time:           gate.PassingTime,
			Gate:           gate.Name(),
			Score:          points,
			Message:        fmt.Sprintf("passing gate %s", gate.Name()),
			Latitude:       position.Latitude,
			Longitude:      position.Longitude,
			AnnotationType: model.AnnotationInformation,
			ScoreType:      scoreTypeGateScore,
			Planned:        &planned,
			Actual:         &actual,
			MaximumScore:   -1,
		})
		if last {
			g.notify(&model.GateScoreIfCrossedNow{
				WaypointName: gate.Name(),
				Seconds:      gate.PassingTime.Sub(gate.ExpectedTime).Seconds(),
				Final:        true,
				Score:        points,
			})
		}
	case gate.HasPassed() && wp.GateCheck:
		g.sink.UpdateScore(&score.Update{
			Time:           gate.PassingTime,
			Gate:           gate.Name(),
			Score:          0,
			Message:        fmt.Sprintf("passing gate %s", gate.Name()),
			Latitude:       position.Latitude,
			Longitude:      position.Longitude,
			AnnotationType: model.AnnotationInformation,
			ScoreType:      scoreTypeGateScore,
			MaximumScore:   -1,
		})
	case gate.Missed && wp.GateCheck:
		points, err := g.scorecard.CalculateGateScore(gate.Type(), gate.ExpectedTime, nil)
		if err != nil {
			g.internalError(gate, position, err)
			return
		}
		planned := gate.ExpectedTime
		g.sink.UpdateScore(&score.Update{
			Time:           position.Time,
			Gate:           gate.Name(),
			Score:          points,
			Message:        fmt.Sprintf("missing gate %s", gate.Name()),
			Latitude:       position.Latitude,
			Longitude:      position.Longitude,
			AnnotationType: model.AnnotationAnomaly,
			ScoreType:      scoreTypeGateScore,
			Planned:        &planned,
			MaximumScore:   -1,
		})
		if last {
			g.notify(&model.GateScoreIfCrossedNow{
				WaypointName: gate.Name(),
				Final:        true,
				Missed:       true,
				Score:        points,
			})
		}
	}
}

func (g *Gatekeeper) internalError(gate *route.Gate, position *model.Position, err error) {
	g.l.Error("gate score", log.String("gate", gate.Name()), log.ErrorField(err))
	g.sink.UpdateScore(&score.Update{
		Time:           position.Time,
		Gate:           gate.Name(),
		Score:          0,
		Message:        "internal error",
		Latitude:       position.Latitude,
		Longitude:      position.Longitude,
		AnnotationType: model.AnnotationAnomaly,
		ScoreType:      scoreTypeGateScore,
		MaximumScore:   -1,
	})
}

// FinishedProcessing closes the gate state at processor termination. Every
// remaining outstanding gate is marked missed so the score log is complete.
func (g *Gatekeeper) FinishedProcessing() {
	if len(g.track) == 0 {
		g.outstanding = nil
		return
	}
	cur := g.track[len(g.track)-1]
	for len(g.outstanding) > 0 {
		head := g.outstanding[0]
		if !head.HasPassed() {
			head.Missed = true
		}
		g.popGate(cur, len(g.outstanding) == 1)
	}
	g.finish()
}

// LastGateName is the name of the most recently handled gate.
func (g *Gatekeeper) LastGateName() string {
	if g.lastGate == nil {
		return ""
	}
	return g.lastGate.Name()
}

// LastGateTimeOffset is the signed offset in seconds between the planned and
// the actual crossing of the last passed gate.
func (g *Gatekeeper) LastGateTimeOffset() float64 {
	if g.lastGate == nil || !g.lastGate.HasPassed() {
		return 0
	}
	return g.lastGate.PassingTime.Sub(g.lastGate.ExpectedTime).Seconds()
}

// CurrentLeg is the name of the next outstanding gate.
func (g *Gatekeeper) CurrentLeg() string {
	if len(g.outstanding) == 0 {
		return ""
	}
	return g.outstanding[0].Name()
}

// Finished reports whether the finish point has been handled.
func (g *Gatekeeper) Finished() bool { return g.finished }

// Gates exposes the gate list for persistence and display.
func (g *Gatekeeper) Gates() []*route.Gate { return g.gates }
