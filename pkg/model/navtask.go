package model

// NavigationTask bundles everything needed to score one task: the route
// definition, the optional takeoff/landing gates, zones and the scorecard.
type NavigationTask struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Waypoints         []*Waypoint `json:"waypoints"`
	TakeoffGates      []*Waypoint `json:"takeoffGates,omitempty"`
	LandingGates      []*Waypoint `json:"landingGates,omitempty"`
	Zones             []*Zone     `json:"zones,omitempty"`
	CorridorWidthNM   float64     `json:"corridorWidthNm,omitempty"`
	RoundedCornersNM  float64     `json:"roundedCornersNm,omitempty"`
	UseProcedureTurns bool        `json:"useProcedureTurns,omitempty"`
	Scorecard         *Scorecard  `json:"scorecard"`
}
