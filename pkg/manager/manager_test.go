package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
	"github.com/airsportlive/airsports-calculator-go/pkg/rstate"
)

type stubState struct {
	fixes chan *model.Position
}

//nolint:whitespace // keep signature grouping
func (s *stubState) PopPosition(
	ctx context.Context, contestantID int, timeout time.Duration,
) (*model.Position, error) {
	select {
	case p := <-s.fixes:
		return p, nil
	case <-time.After(timeout):
		return nil, rstate.ErrQueueTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *stubState) DrainQueue(ctx context.Context, contestantID int) error { return nil }

//nolint:whitespace // keep signature grouping
func (s *stubState) Heartbeat(
	ctx context.Context, contestantID int, ttl time.Duration,
) error {
	return nil
}

func (s *stubState) ClearLiveness(ctx context.Context, contestantID int) error { return nil }

//nolint:whitespace // keep signature grouping
func (s *stubState) TerminationRequested(
	ctx context.Context, contestantID int,
) (bool, error) {
	return false, nil
}

func (s *stubState) ClearTermination(ctx context.Context, contestantID int) error {
	return nil
}

type stubHistoric struct{}

//nolint:whitespace // keep signature grouping
func (s *stubHistoric) LongestTrack(
	ctx context.Context, deviceIDs []string, from, to time.Time,
) ([]*model.Position, error) {
	return nil, nil
}

//nolint:whitespace // keep signature grouping
func (s *stubHistoric) PositionsBetween(
	ctx context.Context, deviceID string, from, to time.Time,
) ([]*model.Position, error) {
	return nil, nil
}

type stubPersistence struct {
	contestant *model.Contestant
}

//nolint:whitespace // keep signature grouping
func (s *stubPersistence) SavePositions(
	ctx context.Context, contestantID int, positions []*model.Position,
) error {
	return nil
}

func (s *stubPersistence) SaveScoreLogEntry(ctx context.Context, entry *model.ScoreLogEntry) error {
	return nil
}

func (s *stubPersistence) SaveAnnotation(ctx context.Context, annotation *model.TrackAnnotation) error {
	return nil
}

func (s *stubPersistence) SaveContestantTrack(ctx context.Context, track *model.ContestantTrack) error {
	return nil
}

//nolint:whitespace // keep signature grouping
func (s *stubPersistence) LoadContestant(
	ctx context.Context, id int,
) (*model.Contestant, error) {
	return s.contestant, nil
}

type stubLive struct{}

func (s *stubLive) PublishPositions(contestantID int, positions []*model.Position) {}
func (s *stubLive) PublishScoreLogEntry(contestantID int, entry *model.ScoreLogEntry) {
}
func (s *stubLive) PublishAnnotation(contestantID int, annotation *model.TrackAnnotation) {
}
func (s *stubLive) PublishContestantTrack(track *model.ContestantTrack) {}

//nolint:whitespace // keep signature grouping
func (s *stubLive) PublishGateScore(
	contestantID int, estimate *model.GateScoreIfCrossedNow,
) {
}

type stubLiveness struct {
	mu    sync.Mutex
	alive map[int]bool
}

func (s *stubLiveness) IsAlive(ctx context.Context, contestantID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[contestantID], nil
}

func testRoute(t *testing.T) *model.Route {
	t.Helper()
	r, err := route.Build([]*model.Waypoint{
		{Name: "SP", Latitude: 60, Longitude: 10, WidthNM: 1,
			Type: model.GateStartingPoint},
		{Name: "FP", Latitude: 60.2, Longitude: 10, WidthNM: 1,
			Type: model.GateFinishPoint},
	})
	require.NoError(t, err)
	return r
}

func testScorecard() *model.Scorecard {
	return &model.Scorecard{
		GateScores: map[model.GateType]*model.GateScoreValues{
			model.GateStartingPoint: {MissedPenalty: 100},
			model.GateFinishPoint:   {MissedPenalty: 100},
		},
		BacktrackingBearingDifference: 90,
		BacktrackingGraceTimeSeconds:  5,
	}
}

func testContestant(id int) *model.Contestant {
	return &model.Contestant{
		ID:        id,
		GateTimes: map[string]time.Time{"SP": time.Now().Add(-time.Hour)},
	}
}

func TestEnsureRunningSpawnsOnce(t *testing.T) {
	state := &stubState{fixes: make(chan *model.Position)}
	contestant := testContestant(1)
	m := New(state, &stubHistoric{}, &stubPersistence{contestant: contestant},
		&stubLive{},
		WithProcessorOptions(processing.WithQueueTimeout(50*time.Millisecond)))

	started, err := m.EnsureRunning(context.Background(), contestant,
		testRoute(t), testScorecard())
	require.NoError(t, err)
	assert.True(t, started)

	again, err := m.EnsureRunning(context.Background(), contestant,
		testRoute(t), testScorecard())
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, []int{1}, m.Running())

	state.fixes <- nil // sentinel shuts the processor down
	m.Shutdown()
	assert.Empty(t, m.Running())
}

func TestEnsureRunningHonorsRemoteLiveness(t *testing.T) {
	state := &stubState{fixes: make(chan *model.Position)}
	contestant := testContestant(2)
	m := New(state, &stubHistoric{}, &stubPersistence{contestant: contestant},
		&stubLive{},
		WithLiveness(&stubLiveness{alive: map[int]bool{2: true}}))

	started, err := m.EnsureRunning(context.Background(), contestant,
		testRoute(t), testScorecard())
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, m.Running())
}

func TestStopCancelsProcessor(t *testing.T) {
	state := &stubState{fixes: make(chan *model.Position)}
	contestant := testContestant(3)
	m := New(state, &stubHistoric{}, &stubPersistence{contestant: contestant},
		&stubLive{},
		WithProcessorOptions(processing.WithQueueTimeout(50*time.Millisecond)))

	started, err := m.EnsureRunning(context.Background(), contestant,
		testRoute(t), testScorecard())
	require.NoError(t, err)
	require.True(t, started)

	m.Stop(3)
	m.Shutdown()
	assert.Empty(t, m.Running())
}
