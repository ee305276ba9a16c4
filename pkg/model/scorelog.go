package model

import (
	"time"

	"github.com/google/uuid"
)

// AnnotationType classifies a score log entry for display.
type AnnotationType string

const (
	AnnotationInformation AnnotationType = "information"
	AnnotationAnomaly     AnnotationType = "anomaly"
)

// ScoreLogEntry is one human visible scoring event. Append only during
// flight, never modified afterwards.
type ScoreLogEntry struct {
	ID           uuid.UUID      `json:"id"`
	ContestantID int            `json:"contestantId"`
	Time         time.Time      `json:"time"`
	Gate         string         `json:"gate"`
	Type         AnnotationType `json:"type"`
	Message      string         `json:"message"`
	Points       float64        `json:"points"`
	Planned      *time.Time     `json:"planned,omitempty"`
	Actual       *time.Time     `json:"actual,omitempty"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	ScoreType    string         `json:"scoreType"`
}

// TrackAnnotation carries the same payload as a score log entry but is
// rendered on the map at its coordinates.
type TrackAnnotation struct {
	ID           uuid.UUID      `json:"id"`
	ContestantID int            `json:"contestantId"`
	Time         time.Time      `json:"time"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Message      string         `json:"message"`
	Type         AnnotationType `json:"type"`
	Gate         string         `json:"gate"`
}

// GateScoreIfCrossedNow is the live crossing estimate for the next timed gate.
type GateScoreIfCrossedNow struct {
	WaypointName string  `json:"waypointName"`
	Seconds      float64 `json:"seconds"`
	Final        bool    `json:"final"`
	Missed       bool    `json:"missed"`
	Score        float64 `json:"score"`
}
