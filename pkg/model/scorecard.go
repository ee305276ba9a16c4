package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrUnknownGateType = errors.New("unknown gate type")

// GateScoreValues holds the per gate type numbers consumed by the
// calculators. All durations are seconds, distances NM unless noted.
type GateScoreValues struct {
	ExtendedGateWidthNM                   float64 `json:"extendedGateWidth"`
	GracePeriodBefore                     float64 `json:"graceperiodBefore"`
	GracePeriodAfter                      float64 `json:"graceperiodAfter"`
	MaximumPenalty                        float64 `json:"maximumPenalty"`
	PenaltyPerSecond                      float64 `json:"penaltyPerSecond"`
	MissedPenalty                         float64 `json:"missedPenalty"`
	MissedProcedureTurnPenalty            float64 `json:"missedProcedureTurnPenalty"`
	BadCrossingExtendedGatePenalty        float64 `json:"badCrossingExtendedGatePenalty"`
	BacktrackingAfterSteepGateGracePeriod float64 `json:"backtrackingAfterSteepGateGracePeriodSeconds"`
	BacktrackingBeforeGateGracePeriodNM   float64 `json:"backtrackingBeforeGateGracePeriodNm"`
	BacktrackingAfterGateGracePeriodNM    float64 `json:"backtrackingAfterGateGracePeriodNm"`
}

// Scorecard is the frozen per task scoring configuration. Each navigation
// task owns its own copy so operators can tweak parameters without
// affecting other tasks.
type Scorecard struct {
	InitialScore *float64                      `json:"initialScore,omitempty"`
	GateScores   map[GateType]*GateScoreValues `json:"gateScores"`

	BacktrackingPenalty           float64 `json:"backtrackingPenalty"`
	BacktrackingMaximumPenalty    float64 `json:"backtrackingMaximumPenalty"`
	BacktrackingBearingDifference float64 `json:"backtrackingBearingDifference"`
	BacktrackingGraceTimeSeconds  float64 `json:"backtrackingGraceTimeSeconds"`

	CorridorGraceTime      float64 `json:"corridorGraceTime"`
	CorridorOutsidePenalty float64 `json:"corridorOutsidePenalty"`
	CorridorMaximumPenalty float64 `json:"corridorMaximumPenalty"`

	ProhibitedZonePenalty   float64 `json:"prohibitedZonePenalty"`
	ProhibitedZoneGraceTime float64 `json:"prohibitedZoneGraceTime"`

	PenaltyZoneGraceTime        float64 `json:"penaltyZoneGraceTime"`
	PenaltyZonePenaltyPerSecond float64 `json:"penaltyZonePenaltyPerSecond"`
	PenaltyZoneMaximum          float64 `json:"penaltyZoneMaximum"`
}

// Copy returns a deep copy so a navigation task can own its own scorecard.
func (s *Scorecard) Copy() *Scorecard {
	ret := *s
	ret.GateScores = make(map[GateType]*GateScoreValues, len(s.GateScores))
	for k, v := range s.GateScores {
		gv := *v
		ret.GateScores[k] = &gv
	}
	if s.InitialScore != nil {
		v := *s.InitialScore
		ret.InitialScore = &v
	}
	return &ret
}

// GateScoreFor looks up the values for a gate type. An unknown gate type is
// fatal for the contestant, so it is reported as an error rather than a
// zero value.
func (s *Scorecard) GateScoreFor(t GateType) (*GateScoreValues, error) {
	if v, ok := s.GateScores[t]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownGateType, t)
}

// applyCap applies the signed cap rule: a positive cap limits the score from
// above, a negative cap from below, -1 means unbounded.
func applyCap(raw, cap float64) float64 {
	switch {
	case cap == -1:
		return raw
	case cap > 0:
		return math.Min(raw, cap)
	case cap < 0:
		return math.Max(raw, cap)
	}
	return raw
}

// CalculateGateScore returns the timing score for crossing a gate of the
// given type at actual when planned was expected. actual == nil means the
// gate was missed.
func (s *Scorecard) CalculateGateScore(
	t GateType, planned time.Time, actual *time.Time,
) (float64, error) {
	values, err := s.GateScoreFor(t)
	if err != nil {
		return 0, err
	}
	if actual == nil {
		return values.MissedPenalty, nil
	}
	delta := actual.Sub(planned).Seconds()
	if -values.GracePeriodBefore < delta && delta < values.GracePeriodAfter {
		return 0, nil
	}
	var excess float64
	if delta <= -values.GracePeriodBefore {
		excess = math.Round(-delta) - values.GracePeriodBefore
	} else {
		excess = math.Round(delta) - values.GracePeriodAfter
	}
	if excess <= 0 {
		return 0, nil
	}
	return applyCap(excess*values.PenaltyPerSecond, values.MaximumPenalty), nil
}

// CalculatePenaltyZoneScore returns the score for a stay inside a penalty
// zone from enter to exit.
func (s *Scorecard) CalculatePenaltyZoneScore(enter, exit time.Time) float64 {
	excess := math.Round(exit.Sub(enter).Seconds()) - s.PenaltyZoneGraceTime
	if excess <= 0 {
		return 0
	}
	return applyCap(excess*s.PenaltyZonePenaltyPerSecond, s.PenaltyZoneMaximum)
}
