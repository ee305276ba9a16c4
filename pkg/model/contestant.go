package model

import (
	"fmt"
	"time"
)

// TrackingDevice describes which device(s) deliver positions for a contestant.
type TrackingDevice string

const (
	TrackingDeviceTracker         TrackingDevice = "DEVICE"
	TrackingDevicePilot           TrackingDevice = "PILOT"
	TrackingDeviceCopilot         TrackingDevice = "COPILOT"
	TrackingDevicePilotAndCopilot TrackingDevice = "PILOT_AND_COPILOT"
)

// Contestant is one team's run of a navigation task.
type Contestant struct {
	ID                     int                  `json:"id"`
	Team                   string               `json:"team"`
	NavigationTaskID       int                  `json:"navigationTaskId"`
	TakeoffTime            time.Time            `json:"takeoffTime"`
	TrackerStartTime       time.Time            `json:"trackerStartTime"`
	FinishedByTime         time.Time            `json:"finishedByTime"`
	AirSpeed               float64              `json:"airSpeed"` // knots
	WindSpeed              float64              `json:"windSpeed"`
	WindDirection          float64              `json:"windDirection"`
	MinutesToStartingPoint float64              `json:"minutesToStartingPoint"`
	AdaptiveStart          bool                 `json:"adaptiveStart"`
	GateTimes              map[string]time.Time `json:"gateTimes"`
	TrackerDeviceIDs       []string             `json:"trackerDeviceIds"`
	TrackingDevice         TrackingDevice       `json:"trackingDevice"`
}

// QueueName is the name of the contestant's per-contestant FIFO.
func (c *Contestant) QueueName() string {
	return fmt.Sprint(c.ID)
}

// ContestantTrack is the aggregate scoring state for one contestant. Mutated
// only by the contestant's processor and gatekeeper.
type ContestantTrack struct {
	ContestantID       int     `json:"contestantId"`
	CurrentState       string  `json:"currentState"`
	CurrentLeg         string  `json:"currentLeg"`
	LastGate           string  `json:"lastGate"`
	LastGateTimeOffset float64 `json:"lastGateTimeOffset"`
	Score              float64 `json:"score"`
	CalculatorStarted  bool    `json:"calculatorStarted"`
	CalculatorFinished bool    `json:"calculatorFinished"`
	TrackTerminated    bool    `json:"trackTerminated"`
}

// TeamDefinition is the scheduler input for one team. It lives only during
// one schedule solve; StartTime and StartSlot are the outputs.
type TeamDefinition struct {
	PK                   int       `json:"pk"`
	FlightTimeMinutes    int       `json:"flightTimeMinutes"`
	TrackerID            string    `json:"trackerId"`
	TrackerService       string    `json:"trackerService"`
	AircraftRegistration string    `json:"aircraftRegistration"`
	Member1              string    `json:"member1"`
	Member2              string    `json:"member2"`
	Frozen               bool      `json:"frozen"`
	StartTime            time.Time `json:"startTime"`
	StartSlot            int       `json:"startSlot"`
}
