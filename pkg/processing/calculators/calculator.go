package calculators

import (
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

// Calculator is a plug-in scoring module invoked by the gatekeeper on every
// position. Calculators never block; all I/O happens behind the score sink.
type Calculator interface {
	// CalculateEnroute is called while the contestant is on the route.
	// track is the gatekeeper's sliding position window, lastGate the most
	// recently passed gate, inRangeOfGate the turning point currently in
	// range (may be nil).
	CalculateEnroute(track []*model.Position, lastGate, inRangeOfGate *route.Gate)
	// CalculateOutsideRoute is called between an intermediate finish point
	// and the following intermediate start point.
	CalculateOutsideRoute(track []*model.Position, lastGate *route.Gate)
	// PassedFinishpoint is called once when the finish point has been
	// crossed.
	PassedFinishpoint(track []*model.Position, lastGate *route.Gate)
}

// MissedGateHandler is implemented by calculators that need to know about
// missed gates (the corridor calculator charges per missed leg).
type MissedGateHandler interface {
	MissedGate(gate *route.Gate, position *model.Position)
}
