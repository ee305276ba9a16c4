package score

import (
	"time"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// Update is one scoring event produced by the gatekeeper or a calculator.
// Updates flow through the processor's score channel and are applied in
// order by the score updater goroutine.
type Update struct {
	Time           time.Time
	Gate           string
	Score          float64
	Message        string
	Latitude       float64
	Longitude      float64
	AnnotationType model.AnnotationType
	ScoreType      string
	Planned        *time.Time
	Actual         *time.Time
	// MaximumScore caps the running total for ScoreType; -1 is unbounded.
	MaximumScore float64
	// PreviousScore is the amount already charged for the same ongoing
	// event; only the difference is added to the running total.
	PreviousScore float64
}

// Sink consumes score updates. It decouples the calculators from the
// processor that owns the channel.
type Sink interface {
	UpdateScore(update *Update)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(update *Update)

func (f SinkFunc) UpdateScore(update *Update) { f(update) }
