package model

import (
	"time"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
)

// Position is one GPS fix as it flows through the queues. Positions are
// never mutated after creation.
type Position struct {
	Time                   time.Time `json:"time"`
	Latitude               float64   `json:"latitude"`
	Longitude              float64   `json:"longitude"`
	Altitude               float64   `json:"altitude"`
	Speed                  float64   `json:"speed"`  // knots
	Course                 float64   `json:"course"` // degrees 0-360
	BatteryLevel           float64   `json:"batteryLevel"`
	DeviceID               string    `json:"deviceId,omitempty"`
	Interpolated           bool      `json:"interpolated"`
	ServerTime             time.Time `json:"serverTime,omitempty"`
	ProcessorReceivedTime  time.Time `json:"-"`
	CalculatorReceivedTime time.Time `json:"-"`
}

func (p *Position) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lon: p.Longitude}
}

// SamePlace reports whether the fix has the identical coordinates as other.
func (p *Position) SamePlace(other *Position) bool {
	return p.Latitude == other.Latitude && p.Longitude == other.Longitude
}

// InboundFix is a raw tracker fix as delivered by the tracker service.
type InboundFix struct {
	DeviceID     int       `json:"deviceId"`
	DeviceTime   time.Time `json:"deviceTime"`
	ServerTime   time.Time `json:"serverTime"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Altitude     float64   `json:"altitude"`
	Speed        float64   `json:"speed"`
	Course       float64   `json:"course"`
	Attributes   FixAttrs  `json:"attributes"`
}

type FixAttrs struct {
	BatteryLevel float64 `json:"batteryLevel"`
}
