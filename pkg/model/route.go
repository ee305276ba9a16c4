package model

import (
	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
)

// GateType enumerates the waypoint kinds a route may contain.
type GateType string

const (
	GateStartingPoint        GateType = "sp"
	GateIntermediateStart    GateType = "isp"
	GateTurningPoint         GateType = "tp"
	GateSecret               GateType = "secret"
	GateFinishPoint          GateType = "fp"
	GateIntermediateFinish   GateType = "ifp"
	GateTakeoff              GateType = "to"
	GateLanding              GateType = "ldg"
	GateIntermediateTakeoff  GateType = "ito"
	GateIntermediateLanding  GateType = "ildg"
	GateUnlimited            GateType = "ul"
	GateDummy                GateType = "dummy"
)

// ZoneType tags a polygon attached to the route.
type ZoneType string

const (
	ZoneProhibited ZoneType = "prohibited"
	ZonePenalty    ZoneType = "penalty"
	ZoneInfo       ZoneType = "info"
	ZoneGate       ZoneType = "gate"
)

// Zone is a named polygon over the route.
type Zone struct {
	Name string      `json:"name"`
	Type ZoneType    `json:"type"`
	Path []geo.Point `json:"path"`
}

// Waypoint is a point on the route with its gate line. All fields are
// computed once by the route builder and immutable during a task.
type Waypoint struct {
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	WidthNM   float64  `json:"width"`
	Type      GateType `json:"type"`

	GateLine         [2]geo.Point `json:"gateLine"`
	GateLineExtended [2]geo.Point `json:"gateLineExtended"`
	GateLineInfinite [2]geo.Point `json:"gateLineInfinite"`

	// polylines bounding the corridor around the waypoint when the route
	// uses rounded corners
	LeftCorridorLine  []geo.Point `json:"leftCorridorLine,omitempty"`
	RightCorridorLine []geo.Point `json:"rightCorridorLine,omitempty"`

	DistancePrevious    float64 `json:"distancePrevious"` // meters
	DistanceNext        float64 `json:"distanceNext"`     // meters
	BearingFromPrevious float64 `json:"bearingFromPrevious"`
	BearingNext         float64 `json:"bearingNext"`

	IsProcedureTurn bool `json:"isProcedureTurn"`
	IsSteepTurn     bool `json:"isSteepTurn"`
	TimeCheck       bool `json:"timeCheck"`
	GateCheck       bool `json:"gateCheck"`

	InsideDistance  float64 `json:"insideDistance"`  // meters
	OutsideDistance float64 `json:"outsideDistance"` // meters
}

func (w *Waypoint) Point() geo.Point {
	return geo.Point{Lat: w.Latitude, Lon: w.Longitude}
}

// Route is the ordered waypoint sequence plus gates and polygons. Immutable
// after task creation, shared read-only by all processors.
type Route struct {
	Waypoints      []*Waypoint `json:"waypoints"`
	TakeoffGates   []*Waypoint `json:"takeoffGates,omitempty"`
	LandingGates   []*Waypoint `json:"landingGates,omitempty"`
	Zones          []*Zone     `json:"zones,omitempty"`
	RoundedCorners bool        `json:"roundedCorners"`
	CorridorWidth  float64     `json:"corridorWidth"` // NM
}

// First returns the first waypoint of the route.
func (r *Route) First() *Waypoint { return r.Waypoints[0] }

// Last returns the last waypoint of the route.
func (r *Route) Last() *Waypoint { return r.Waypoints[len(r.Waypoints)-1] }
