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

// Backtracking states
const (
	StateBeforeStart          = "BEFORE_START"
	StateTakeoff              = "TAKEOFF"
	StateStarted              = "STARTED"
	StateTracking             = "TRACKING"
	StateDeviating            = "DEVIATING"
	StateBacktrackingTemp     = "BACKTRACKING_TEMPORARY"
	StateBacktracking         = "BACKTRACKING"
	StateProcedureTurn        = "PROCEDURE_TURN"
	StateFailedProcedureTurn  = "FAILED_PROCEDURE_TURN"
	StateFinished             = "FINISHED"
)

const (
	// a procedure turn succeeds when the accumulated turn is within this
	// margin of the expected turn
	procedureTurnTolerance = 60.0
	// and must complete within this time
	procedureTurnTimeLimit = 180 * time.Second
	// circling looks at the accumulated heading change over this window
	circlingWindow = 90 * time.Second
	// accumulated heading change that counts as circling
	circlingThreshold = 180.0

	scoreTypeBacktracking  = "backtracking"
	scoreTypeProcedureTurn = "procedure_turn"
)

// BacktrackingCalculator detects flying against the leg direction, failed
// procedure turns and circling in front of a gate.
type BacktrackingCalculator struct {
	scorecard *model.Scorecard
	sink      score.Sink
	l         *log.Logger

	state            string
	bearingThreshold float64

	// procedure turn bookkeeping
	ptAttempted   map[string]bool
	ptExpected    float64
	ptTotal       float64
	ptStart       time.Time
	ptLastBearing float64

	btStart        time.Time
	circlingActive bool
}

type BacktrackingOption func(*BacktrackingCalculator)

func WithBacktrackingLogger(l *log.Logger) BacktrackingOption {
	return func(c *BacktrackingCalculator) { c.l = l }
}

//nolint:whitespace // keep signature grouping
func NewBacktrackingCalculator(
	scorecard *model.Scorecard, sink score.Sink, opts ...BacktrackingOption,
) *BacktrackingCalculator {
	ret := &BacktrackingCalculator{
		scorecard:        scorecard,
		sink:             sink,
		l:                log.Default().Named("backtracking"),
		state:            StateBeforeStart,
		bearingThreshold: scorecard.BacktrackingBearingDifference,
		ptAttempted:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// State returns the current state for the contestant track display.
func (c *BacktrackingCalculator) State() string { return c.state }

//nolint:cyclop,funlen // the transition table is one sequential decision
func (c *BacktrackingCalculator) CalculateEnroute(
	track []*model.Position, lastGate, inRangeOfGate *route.Gate,
) {
	if len(track) < 2 {
		return
	}
	cur := track[len(track)-1]
	prev := track[len(track)-2]
	bearing := geo.Bearing(prev.Point(), cur.Point())

	if lastGate == nil {
		c.state = StateBeforeStart
		return
	}
	if c.state == StateBeforeStart || c.state == StateTakeoff {
		c.state = StateStarted
	}

	if c.maybeStartProcedureTurn(cur, bearing, lastGate) {
		return
	}
	if c.state == StateProcedureTurn {
		c.trackProcedureTurn(cur, bearing, lastGate)
		return
	}

	offTrack := geo.AbsoluteBearingDifference(bearing, lastGate.Waypoint.BearingNext) >
		c.bearingThreshold
	if offTrack && !c.withinGrace(cur, lastGate, inRangeOfGate) &&
		!compatibleWithNextGate(bearing, inRangeOfGate, c.bearingThreshold) {
		c.advanceBacktracking(cur, lastGate)
	} else if c.state == StateBacktrackingTemp || c.state == StateDeviating ||
		c.state == StateStarted || c.state == StateFailedProcedureTurn ||
		c.state == StateBacktracking {
		c.state = StateTracking
	}

	c.detectCircling(track, inRangeOfGate)
}

// maybeStartProcedureTurn enters procedure turn mode on the first leg after
// a procedure turn gate.
//
//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) maybeStartProcedureTurn(
	cur *model.Position, bearing float64, lastGate *route.Gate,
) bool {
	if !lastGate.Waypoint.IsProcedureTurn || c.ptAttempted[lastGate.Name()] {
		return false
	}
	c.ptAttempted[lastGate.Name()] = true
	c.state = StateProcedureTurn
	c.ptExpected = geo.BearingDifference(
		lastGate.Waypoint.BearingFromPrevious, lastGate.Waypoint.BearingNext)
	c.ptTotal = 0
	c.ptStart = cur.Time
	c.ptLastBearing = bearing
	c.l.Debug("procedure turn started",
		log.String("gate", lastGate.Name()),
		log.Float64("expected", c.ptExpected))
	return true
}

//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) trackProcedureTurn(
	cur *model.Position, bearing float64, lastGate *route.Gate,
) {
	c.ptTotal += geo.BearingDifference(c.ptLastBearing, bearing)
	c.ptLastBearing = bearing
	if math.Abs(c.ptTotal-c.ptExpected) < procedureTurnTolerance {
		c.state = StateTracking
		return
	}
	if cur.Time.Sub(c.ptStart) > procedureTurnTimeLimit {
		c.state = StateFailedProcedureTurn
		values, err := c.scorecard.GateScoreFor(lastGate.Type())
		if err != nil {
			c.l.Error("procedure turn score lookup", log.ErrorField(err))
			return
		}
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           lastGate.Name(),
			Score:          values.MissedProcedureTurnPenalty,
			Message:        fmt.Sprintf("missing procedure turn at %s", lastGate.Name()),
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationAnomaly,
			ScoreType:      scoreTypeProcedureTurn,
			MaximumScore:   -1,
		})
	}
}

// withinGrace reports whether backtracking detection is suppressed because
// the contestant just passed a gate or a steep turn.
//
//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) withinGrace(
	cur *model.Position, lastGate, inRangeOfGate *route.Gate,
) bool {
	values, err := c.scorecard.GateScoreFor(lastGate.Type())
	if err != nil {
		return false
	}
	distAfter := lastGate.DistanceTo(cur.Point()) / geo.MetersPerNauticalMile
	if distAfter < values.BacktrackingAfterGateGracePeriodNM {
		return true
	}
	if lastGate.Waypoint.IsSteepTurn && lastGate.HasPassed() &&
		cur.Time.Sub(lastGate.PassingTime).Seconds() <
			values.BacktrackingAfterSteepGateGracePeriod {
		return true
	}
	if inRangeOfGate != nil {
		distBefore := inRangeOfGate.DistanceTo(cur.Point()) / geo.MetersPerNauticalMile
		if distBefore < values.BacktrackingBeforeGateGracePeriodNM {
			return true
		}
	}
	return false
}

// compatibleWithNextGate suppresses backtracking when the gate in range
// points in a direction the track is compatible with.
func compatibleWithNextGate(bearing float64, inRange *route.Gate, threshold float64) bool {
	if inRange == nil {
		return false
	}
	return geo.AbsoluteBearingDifference(bearing, inRange.Waypoint.BearingNext) <=
		threshold
}

func (c *BacktrackingCalculator) advanceBacktracking(cur *model.Position, lastGate *route.Gate) {
	switch c.state {
	case StateTracking, StateStarted, StateFailedProcedureTurn:
		c.state = StateBacktrackingTemp
		c.btStart = cur.Time
	case StateBacktrackingTemp:
		if cur.Time.Sub(c.btStart).Seconds() > c.scorecard.BacktrackingGraceTimeSeconds {
			c.state = StateBacktracking
			c.sink.UpdateScore(&score.Update{
				Time:           cur.Time,
				Gate:           lastGate.Name(),
				Score:          c.scorecard.BacktrackingPenalty,
				Message:        fmt.Sprintf("backtracking after %s", lastGate.Name()),
				Latitude:       cur.Latitude,
				Longitude:      cur.Longitude,
				AnnotationType: model.AnnotationAnomaly,
				ScoreType:      scoreTypeBacktracking,
				MaximumScore:   c.scorecard.BacktrackingMaximumPenalty,
			})
		}
	}
}

// detectCircling sums the signed bearing changes over the trailing window
// and charges one backtracking penalty while the contestant circles in
// front of a gate.
//
//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) detectCircling(
	track []*model.Position, inRangeOfGate *route.Gate,
) {
	if inRangeOfGate == nil ||
		c.state == StateBacktracking || c.state == StateBacktrackingTemp ||
		c.state == StateProcedureTurn {
		return
	}
	cur := track[len(track)-1]
	cutoff := cur.Time.Add(-circlingWindow)
	var sum, lastBearing float64
	haveBearing := false
	for i := 1; i < len(track); i++ {
		if track[i].Time.Before(cutoff) {
			continue
		}
		b := geo.Bearing(track[i-1].Point(), track[i].Point())
		if haveBearing {
			sum += geo.BearingDifference(lastBearing, b)
		}
		lastBearing = b
		haveBearing = true
	}
	circling := math.Abs(sum) > circlingThreshold
	if circling && !c.circlingActive {
		c.circlingActive = true
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           inRangeOfGate.Name(),
			Score:          c.scorecard.BacktrackingPenalty,
			Message:        "circling start",
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationAnomaly,
			ScoreType:      scoreTypeBacktracking,
			MaximumScore:   c.scorecard.BacktrackingMaximumPenalty,
		})
	} else if !circling && c.circlingActive {
		c.circlingActive = false
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           inRangeOfGate.Name(),
			Score:          0,
			Message:        "circling finished",
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationInformation,
			ScoreType:      scoreTypeBacktracking,
			MaximumScore:   -1,
		})
	}
}

//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) CalculateOutsideRoute(
	track []*model.Position, lastGate *route.Gate,
) {
	// no backtracking between an intermediate finish and the next start
	if c.state != StateFinished {
		c.state = StateTracking
	}
}

//nolint:whitespace // keep signature grouping
func (c *BacktrackingCalculator) PassedFinishpoint(
	track []*model.Position, lastGate *route.Gate,
) {
	// disable further backtracking, run a final pass so an ongoing
	// violation is closed out, then freeze
	c.bearingThreshold = 360
	c.CalculateEnroute(track, lastGate, nil)
	c.state = StateFinished
}
