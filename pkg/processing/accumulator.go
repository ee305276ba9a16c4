package processing

// ScoreAccumulator keeps per score type running totals with caps. It is
// owned by one processor's score updater goroutine and needs no locking.
type ScoreAccumulator struct {
	totals map[string]float64
}

func NewScoreAccumulator() *ScoreAccumulator {
	return &ScoreAccumulator{totals: make(map[string]float64)}
}

// SetAndUpdateScore applies a score for the given type. previousScore is the
// amount already charged for the same event (used when a penalty grows while
// the condition persists). maximumScore > -1 caps the running total; the
// returned score is the effective amount after capping, capped is true on
// the update that reached the cap.
//
//nolint:whitespace // keep signature grouping
func (a *ScoreAccumulator) SetAndUpdateScore(
	score float64, scoreType string, maximumScore, previousScore float64,
) (effective float64, capped bool) {
	delta := score - previousScore
	running := a.totals[scoreType]
	if maximumScore > -1 {
		if running+delta >= maximumScore {
			delta = maximumScore - running
			capped = true
		}
	}
	a.totals[scoreType] = running + delta
	return delta + previousScore, capped
}

// Total returns the running total for a score type.
func (a *ScoreAccumulator) Total(scoreType string) float64 {
	return a.totals[scoreType]
}
