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
	scoreTypePenaltyZone    = "inside_penalty_zone"
	scoreTypeProhibitedZone = "inside_prohibited_zone"
)

type zoneState struct {
	insideSince time.Time
	lastUpdate  time.Time
	charged     float64
}

// PenaltyZoneCalculator accounts for time spent inside penalty and
// prohibited polygons. Prohibited zones are penalty zones with a fixed
// immediate penalty after their grace time.
type PenaltyZoneCalculator struct {
	scorecard *model.Scorecard
	sink      score.Sink
	l         *log.Logger
	proj      *geo.Projector
	zones     []*model.Zone
	states    map[string]*zoneState
}

type PenaltyZoneOption func(*PenaltyZoneCalculator)

func WithPenaltyZoneLogger(l *log.Logger) PenaltyZoneOption {
	return func(c *PenaltyZoneCalculator) { c.l = l }
}

//nolint:whitespace // keep signature grouping
func NewPenaltyZoneCalculator(
	r *model.Route, scorecard *model.Scorecard, sink score.Sink,
	opts ...PenaltyZoneOption,
) *PenaltyZoneCalculator {
	ret := &PenaltyZoneCalculator{
		scorecard: scorecard,
		sink:      sink,
		l:         log.Default().Named("penaltyzone"),
		states:    make(map[string]*zoneState),
	}
	for _, z := range r.Zones {
		if z.Type == model.ZonePenalty || z.Type == model.ZoneProhibited {
			ret.zones = append(ret.zones, z)
		}
	}
	for _, opt := range opts {
		opt(ret)
	}
	ref := r.First().Point()
	ret.proj = geo.NewProjector(ref)
	return ret
}

//nolint:whitespace // keep signature grouping
func (c *PenaltyZoneCalculator) CalculateEnroute(
	track []*model.Position, lastGate, inRangeOfGate *route.Gate,
) {
	cur := track[len(track)-1]
	for _, zone := range c.zones {
		c.checkZone(zone, cur, lastGate)
	}
}

//nolint:cyclop // zone transitions are one decision tree
func (c *PenaltyZoneCalculator) checkZone(
	zone *model.Zone, cur *model.Position, lastGate *route.Gate,
) {
	inside := c.proj.PointInPolygon(cur.Point(), zone.Path)
	state := c.states[zone.Name]
	gateName := ""
	if lastGate != nil {
		gateName = lastGate.Name()
	}
	switch {
	case inside && state == nil:
		c.states[zone.Name] = &zoneState{insideSince: cur.Time, lastUpdate: cur.Time}
		// score 0 entry so the GUI can show the moment the zone was entered
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           gateName,
			Score:          0,
			Message:        fmt.Sprintf("entered %s zone %s", zone.Type, zone.Name),
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationAnomaly,
			ScoreType:      c.scoreType(zone),
			MaximumScore:   c.maximum(zone),
		})
	case inside && state != nil:
		grace := c.grace(zone)
		if cur.Time.Sub(state.lastUpdate).Seconds() > grace {
			total := c.zoneScore(zone, state.insideSince, cur.Time)
			c.sink.UpdateScore(&score.Update{
				Time:           cur.Time,
				Gate:           gateName,
				Score:          total,
				Message:        fmt.Sprintf("inside %s zone %s", zone.Type, zone.Name),
				Latitude:       cur.Latitude,
				Longitude:      cur.Longitude,
				AnnotationType: model.AnnotationAnomaly,
				ScoreType:      c.scoreType(zone),
				MaximumScore:   c.maximum(zone),
				PreviousScore:  state.charged,
			})
			state.charged = total
			state.lastUpdate = cur.Time
		}
	case !inside && state != nil:
		final := c.zoneScore(zone, state.insideSince, cur.Time)
		if final != state.charged {
			c.sink.UpdateScore(&score.Update{
				Time:           cur.Time,
				Gate:           gateName,
				Score:          final,
				Message:        fmt.Sprintf("inside %s zone %s", zone.Type, zone.Name),
				Latitude:       cur.Latitude,
				Longitude:      cur.Longitude,
				AnnotationType: model.AnnotationAnomaly,
				ScoreType:      c.scoreType(zone),
				MaximumScore:   c.maximum(zone),
				PreviousScore:  state.charged,
			})
		}
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           gateName,
			Score:          0,
			Message:        fmt.Sprintf("exited penalty zone %s", zone.Name),
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationInformation,
			ScoreType:      c.scoreType(zone),
			MaximumScore:   -1,
		})
		delete(c.states, zone.Name)
	}
}

func (c *PenaltyZoneCalculator) grace(zone *model.Zone) float64 {
	if zone.Type == model.ZoneProhibited {
		return c.scorecard.ProhibitedZoneGraceTime
	}
	return c.scorecard.PenaltyZoneGraceTime
}

func (c *PenaltyZoneCalculator) maximum(zone *model.Zone) float64 {
	if zone.Type == model.ZoneProhibited {
		return -1
	}
	return c.scorecard.PenaltyZoneMaximum
}

func (c *PenaltyZoneCalculator) scoreType(zone *model.Zone) string {
	if zone.Type == model.ZoneProhibited {
		return scoreTypeProhibitedZone
	}
	return scoreTypePenaltyZone
}

// zoneScore computes the accumulated score for a stay in the zone. For a
// prohibited zone the penalty is the fixed amount once the grace time has
// elapsed.
func (c *PenaltyZoneCalculator) zoneScore(zone *model.Zone, enter, now time.Time) float64 {
	if zone.Type == model.ZoneProhibited {
		if math.Round(now.Sub(enter).Seconds()) > c.scorecard.ProhibitedZoneGraceTime {
			return c.scorecard.ProhibitedZonePenalty
		}
		return 0
	}
	return c.scorecard.CalculatePenaltyZoneScore(enter, now)
}

//nolint:whitespace // keep signature grouping
func (c *PenaltyZoneCalculator) CalculateOutsideRoute(
	track []*model.Position, lastGate *route.Gate,
) {
	// zones apply off route as well
	c.CalculateEnroute(track, lastGate, nil)
}

//nolint:whitespace // keep signature grouping
func (c *PenaltyZoneCalculator) PassedFinishpoint(
	track []*model.Position, lastGate *route.Gate,
) {
	// close out any open stays
	cur := track[len(track)-1]
	for _, zone := range c.zones {
		if state := c.states[zone.Name]; state != nil {
			c.checkZoneExit(zone, cur, lastGate, state)
		}
	}
}

//nolint:whitespace // keep signature grouping
func (c *PenaltyZoneCalculator) checkZoneExit(
	zone *model.Zone, cur *model.Position, lastGate *route.Gate, state *zoneState,
) {
	final := c.zoneScore(zone, state.insideSince, cur.Time)
	gateName := ""
	if lastGate != nil {
		gateName = lastGate.Name()
	}
	if final != state.charged {
		c.sink.UpdateScore(&score.Update{
			Time:           cur.Time,
			Gate:           gateName,
			Score:          final,
			Message:        fmt.Sprintf("inside %s zone %s", zone.Type, zone.Name),
			Latitude:       cur.Latitude,
			Longitude:      cur.Longitude,
			AnnotationType: model.AnnotationAnomaly,
			ScoreType:      c.scoreType(zone),
			MaximumScore:   c.maximum(zone),
			PreviousScore:  state.charged,
		})
	}
	delete(c.states, zone.Name)
}
