//nolint:funlen // ok for tests
package processing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
	"github.com/airsportlive/airsports-calculator-go/pkg/rstate"
)

type fakeState struct {
	fixes chan *model.Position

	mu          sync.Mutex
	termination bool
	drained     bool
	cleared     bool
}

//nolint:whitespace // keep signature grouping
func (f *fakeState) PopPosition(
	ctx context.Context, contestantID int, timeout time.Duration,
) (*model.Position, error) {
	select {
	case p := <-f.fixes:
		return p, nil
	case <-time.After(timeout):
		return nil, rstate.ErrQueueTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeState) DrainQueue(ctx context.Context, contestantID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained = true
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakeState) Heartbeat(
	ctx context.Context, contestantID int, ttl time.Duration,
) error {
	return nil
}

func (f *fakeState) ClearLiveness(ctx context.Context, contestantID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakeState) TerminationRequested(
	ctx context.Context, contestantID int,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.termination, nil
}

func (f *fakeState) ClearTermination(ctx context.Context, contestantID int) error {
	return nil
}

type fakeHistoric struct{}

//nolint:whitespace // keep signature grouping
func (f *fakeHistoric) LongestTrack(
	ctx context.Context, deviceIDs []string, from, to time.Time,
) ([]*model.Position, error) {
	return nil, nil
}

//nolint:whitespace // keep signature grouping
func (f *fakeHistoric) PositionsBetween(
	ctx context.Context, deviceID string, from, to time.Time,
) ([]*model.Position, error) {
	return nil, nil
}

type fakePersistence struct {
	mu         sync.Mutex
	contestant *model.Contestant
	positions  []*model.Position
	entries    []*model.ScoreLogEntry
	track      *model.ContestantTrack
}

//nolint:whitespace // keep signature grouping
func (f *fakePersistence) SavePositions(
	ctx context.Context, contestantID int, positions []*model.Position,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, positions...)
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakePersistence) SaveScoreLogEntry(
	ctx context.Context, entry *model.ScoreLogEntry,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakePersistence) SaveAnnotation(
	ctx context.Context, annotation *model.TrackAnnotation,
) error {
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakePersistence) SaveContestantTrack(
	ctx context.Context, track *model.ContestantTrack,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track = track
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakePersistence) LoadContestant(
	ctx context.Context, id int,
) (*model.Contestant, error) {
	return f.contestant, nil
}

func (f *fakePersistence) entryMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		ret = append(ret, e.Message)
	}
	return ret
}

type fakeLive struct {
	mu        sync.Mutex
	positions int
	tracks    []*model.ContestantTrack
}

func (f *fakeLive) PublishPositions(contestantID int, positions []*model.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions += len(positions)
}

func (f *fakeLive) PublishScoreLogEntry(contestantID int, entry *model.ScoreLogEntry) {}

func (f *fakeLive) PublishAnnotation(contestantID int, annotation *model.TrackAnnotation) {}

func (f *fakeLive) PublishContestantTrack(track *model.ContestantTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, track)
}

//nolint:whitespace // keep signature grouping
func (f *fakeLive) PublishGateScore(
	contestantID int, estimate *model.GateScoreIfCrossedNow,
) {
}

func processorScorecard() *model.Scorecard {
	gateScores := make(map[model.GateType]*model.GateScoreValues)
	for _, t := range []model.GateType{
		model.GateStartingPoint, model.GateTurningPoint, model.GateFinishPoint,
	} {
		gateScores[t] = &model.GateScoreValues{
			GracePeriodBefore: 2, GracePeriodAfter: 2,
			PenaltyPerSecond: 3, MaximumPenalty: 100, MissedPenalty: 100,
		}
	}
	return &model.Scorecard{
		GateScores:                    gateScores,
		BacktrackingBearingDifference: 90,
		BacktrackingGraceTimeSeconds:  5,
		BacktrackingPenalty:           200,
		BacktrackingMaximumPenalty:    400,
	}
}

func processorRoute(t *testing.T) *model.Route {
	t.Helper()
	r, err := route.Build([]*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 1,
			Type: model.GateStartingPoint},
		{Name: "TP1", Latitude: 60.1, Longitude: 10, WidthNM: 1,
			Type: model.GateTurningPoint},
		{Name: "FP", Latitude: 60.2, Longitude: 10, WidthNM: 1,
			Type: model.GateFinishPoint},
	})
	require.NoError(t, err)
	return r
}

func TestProcessorRunsToSentinel(t *testing.T) {
	base := time.Now().Add(-time.Hour).UTC()
	contestant := &model.Contestant{
		ID: 7,
		GateTimes: map[string]time.Time{
			"SP":  base.Add(time.Second),
			"TP1": base.Add(5 * time.Minute),
			"FP":  base.Add(10 * time.Minute),
		},
	}
	state := &fakeState{fixes: make(chan *model.Position, 8)}
	store := &fakePersistence{contestant: contestant}
	live := &fakeLive{}
	p, err := NewContestantProcessor(contestant, processorRoute(t),
		processorScorecard(), state, &fakeHistoric{}, store, live,
		WithQueueTimeout(100*time.Millisecond))
	require.NoError(t, err)

	state.fixes <- &model.Position{Time: base, Latitude: 59.999, Longitude: 10}
	state.fixes <- &model.Position{
		Time: base.Add(2 * time.Second), Latitude: 60.001, Longitude: 10}
	state.fixes <- nil // sentinel

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	messages := store.entryMessages()
	assert.Contains(t, messages, "passing gate SP")
	assert.Contains(t, messages, "missing gate TP1")
	assert.Contains(t, messages, "missing gate FP")
	assert.Len(t, store.positions, 2)
	assert.True(t, state.drained)
	assert.True(t, state.cleared)
	require.NotNil(t, store.track)
	assert.True(t, store.track.CalculatorFinished)
	// two missed timed gates at 100 points each
	assert.InDelta(t, 200.0, store.track.Score, 0.001)
}

func TestProcessorManualTermination(t *testing.T) {
	base := time.Now().Add(-time.Hour).UTC()
	contestant := &model.Contestant{
		ID:        8,
		GateTimes: map[string]time.Time{"SP": base},
	}
	state := &fakeState{fixes: make(chan *model.Position), termination: true}
	store := &fakePersistence{contestant: contestant}
	p, err := NewContestantProcessor(contestant, processorRoute(t),
		processorScorecard(), state, &fakeHistoric{}, store, &fakeLive{},
		WithQueueTimeout(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Contains(t, store.entryMessages(), "manually terminated")
	require.NotNil(t, store.track)
	assert.True(t, store.track.TrackTerminated)
}

func TestProcessorDropsStalePositions(t *testing.T) {
	base := time.Now().Add(-time.Hour).UTC()
	contestant := &model.Contestant{
		ID:        9,
		GateTimes: map[string]time.Time{"SP": base},
	}
	state := &fakeState{fixes: make(chan *model.Position, 8)}
	store := &fakePersistence{contestant: contestant}
	p, err := NewContestantProcessor(contestant, processorRoute(t),
		processorScorecard(), state, &fakeHistoric{}, store, &fakeLive{},
		WithQueueTimeout(100*time.Millisecond))
	require.NoError(t, err)

	state.fixes <- &model.Position{Time: base, Latitude: 59.9, Longitude: 10}
	// not newer than the previous fix, dropped
	state.fixes <- &model.Position{Time: base, Latitude: 59.95, Longitude: 10}
	// newer but in the same place, dropped
	state.fixes <- &model.Position{
		Time: base.Add(time.Second), Latitude: 59.9, Longitude: 10}
	state.fixes <- nil

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Len(t, store.positions, 1)
}
