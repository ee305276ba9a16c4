package route

import (
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// FromTask assembles the runtime route for a stored navigation task.
func FromTask(task *model.NavigationTask) (*model.Route, error) {
	opts := make([]Option, 0, 6)
	if task.RoundedCornersNM > 0 {
		opts = append(opts, WithRoundedCorners(task.RoundedCornersNM))
	} else if task.CorridorWidthNM > 0 {
		opts = append(opts, WithCorridorWidth(task.CorridorWidthNM))
	}
	if task.UseProcedureTurns {
		opts = append(opts, WithProcedureTurns())
	}
	if len(task.TakeoffGates) > 0 {
		opts = append(opts, WithTakeoffGates(task.TakeoffGates...))
	}
	if len(task.LandingGates) > 0 {
		opts = append(opts, WithLandingGates(task.LandingGates...))
	}
	if len(task.Zones) > 0 {
		opts = append(opts, WithZones(task.Zones...))
	}
	if task.Scorecard != nil {
		widths := make(map[model.GateType]float64)
		for gateType, values := range task.Scorecard.GateScores {
			if values.ExtendedGateWidthNM > 0 {
				widths[gateType] = values.ExtendedGateWidthNM
			}
		}
		if len(widths) > 0 {
			opts = append(opts, WithExtendedGateWidths(widths))
		}
	}
	return Build(task.Waypoints, opts...)
}
