//nolint:funlen // ok for tests
package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScorecard() *Scorecard {
	return &Scorecard{
		GateScores: map[GateType]*GateScoreValues{
			GateTurningPoint: {
				GracePeriodBefore: 2,
				GracePeriodAfter:  2,
				PenaltyPerSecond:  3,
				MaximumPenalty:    100,
				MissedPenalty:     200,
			},
		},
		PenaltyZoneGraceTime:        5,
		PenaltyZonePenaltyPerSecond: 3,
		PenaltyZoneMaximum:          100,
	}
}

func TestGateScoreWithinGrace(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, time.Second, -time.Second} {
		actual := planned.Add(offset)
		score, err := sc.CalculateGateScore(GateTurningPoint, planned, &actual)
		require.NoError(t, err)
		assert.Zero(t, score, "offset %v", offset)
	}
}

func TestGateScoreLate(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	actual := planned.Add(10 * time.Second)
	score, err := sc.CalculateGateScore(GateTurningPoint, planned, &actual)
	require.NoError(t, err)
	assert.Equal(t, 24.0, score) // (10-2)*3
}

func TestGateScoreEarly(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	actual := planned.Add(-7 * time.Second)
	score, err := sc.CalculateGateScore(GateTurningPoint, planned, &actual)
	require.NoError(t, err)
	assert.Equal(t, 15.0, score) // (7-2)*3
}

func TestGateScoreCapped(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	actual := planned.Add(10 * time.Minute)
	score, err := sc.CalculateGateScore(GateTurningPoint, planned, &actual)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestGateScoreMissed(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	score, err := sc.CalculateGateScore(GateTurningPoint, planned, nil)
	require.NoError(t, err)
	assert.Equal(t, 200.0, score)
}

func TestGateScoreUnknownType(t *testing.T) {
	sc := sampleScorecard()
	planned := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)
	_, err := sc.CalculateGateScore(GateSecret, planned, nil)
	assert.ErrorIs(t, err, ErrUnknownGateType)
}

func TestPenaltyZoneScore(t *testing.T) {
	sc := sampleScorecard()
	enter := time.Date(2020, 8, 1, 8, 5, 0, 0, time.UTC)

	assert.Zero(t, sc.CalculatePenaltyZoneScore(enter, enter.Add(5*time.Second)))
	assert.Equal(t, 3.0, sc.CalculatePenaltyZoneScore(enter, enter.Add(6*time.Second)))
	assert.Equal(t, 100.0,
		sc.CalculatePenaltyZoneScore(enter, enter.Add(10*time.Minute)))
}

func TestApplyCapRules(t *testing.T) {
	assert.Equal(t, 50.0, applyCap(50, -1))
	assert.Equal(t, 30.0, applyCap(50, 30))
	assert.Equal(t, -20.0, applyCap(-50, -20))
}

func TestScorecardCopyIsIndependent(t *testing.T) {
	sc := sampleScorecard()
	cp := sc.Copy()
	cp.GateScores[GateTurningPoint].PenaltyPerSecond = 99
	assert.Equal(t, 3.0, sc.GateScores[GateTurningPoint].PenaltyPerSecond)
}
