package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

type fakeDirectory struct {
	mu          sync.Mutex
	names       map[int]string
	resolutions map[string]*Resolution
	resolves    int
}

func (f *fakeDirectory) DeviceName(deviceID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[deviceID]
	if !ok {
		return "", assert.AnError
	}
	return name, nil
}

func (f *fakeDirectory) ResolveContestant(deviceName string) (*Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	resolution, ok := f.resolutions[deviceName]
	if !ok {
		return &Resolution{}, nil
	}
	return resolution, nil
}

type fakeSink struct {
	mu     sync.Mutex
	queued map[int][]*model.Position
	global map[string]*model.Position
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		queued: make(map[int][]*model.Position),
		global: make(map[string]*model.Position),
	}
}

//nolint:whitespace // keep signature grouping
func (f *fakeSink) PushPosition(
	ctx context.Context, contestantID int, pos *model.Position,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[contestantID] = append(f.queued[contestantID], pos)
	return nil
}

//nolint:whitespace // keep signature grouping
func (f *fakeSink) PublishGlobalPosition(
	ctx context.Context, deviceID string, pos *model.Position,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global[deviceID] = pos
	return nil
}

func fix(deviceID int, at time.Time) *model.InboundFix {
	return &model.InboundFix{
		DeviceID:   deviceID,
		DeviceTime: at,
		ServerTime: at,
		Latitude:   60,
		Longitude:  10,
		Speed:      70,
	}
}

func TestAcceptBatchRoutesToContestant(t *testing.T) {
	now := time.Now()
	directory := &fakeDirectory{
		names: map[int]string{42: "bravo"},
		resolutions: map[string]*Resolution{
			"bravo": {Contestant: &model.Contestant{
				ID: 7, FinishedByTime: now.Add(time.Hour)}},
		},
	}
	sink := newFakeSink()
	service := NewService(directory, sink)

	queued := service.AcceptBatch(context.Background(), []*model.InboundFix{
		fix(42, now.Add(-2*time.Second)),
		fix(42, now.Add(-time.Second)),
	})

	assert.Equal(t, 2, queued)
	assert.Len(t, sink.queued[7], 2)
	require.Contains(t, sink.global, "bravo")
	assert.Equal(t, "42", sink.global["bravo"].DeviceID)
}

func TestAcceptBatchDropsOldAndDuplicate(t *testing.T) {
	now := time.Now()
	directory := &fakeDirectory{
		names: map[int]string{42: "bravo"},
		resolutions: map[string]*Resolution{
			"bravo": {Contestant: &model.Contestant{
				ID: 7, FinishedByTime: now.Add(time.Hour)}},
		},
	}
	sink := newFakeSink()
	service := NewService(directory, sink)

	stamp := now.Add(-time.Second)
	queued := service.AcceptBatch(context.Background(), []*model.InboundFix{
		fix(42, now.Add(-15*time.Hour)), // too old
		fix(42, stamp),
		fix(42, stamp), // duplicate device time
	})

	assert.Equal(t, 1, queued)
	assert.Len(t, sink.queued[7], 1)
}

func TestAcceptBatchUnassignedDeviceStillOnGlobalMap(t *testing.T) {
	now := time.Now()
	directory := &fakeDirectory{
		names:       map[int]string{42: "bravo"},
		resolutions: map[string]*Resolution{"bravo": {}},
	}
	sink := newFakeSink()
	service := NewService(directory, sink)

	queued := service.AcceptBatch(context.Background(), []*model.InboundFix{
		fix(42, now.Add(-time.Second)),
	})

	assert.Zero(t, queued)
	assert.Empty(t, sink.queued)
	assert.Contains(t, sink.global, "bravo")
}

func TestAcceptBatchSimulatorSkipsGlobalMap(t *testing.T) {
	now := time.Now()
	directory := &fakeDirectory{
		names: map[int]string{42: "bravo"},
		resolutions: map[string]*Resolution{
			"bravo": {
				Contestant: &model.Contestant{
					ID: 7, FinishedByTime: now.Add(time.Hour)},
				IsSimulator: true,
			},
		},
	}
	sink := newFakeSink()
	service := NewService(directory, sink)

	queued := service.AcceptBatch(context.Background(), []*model.InboundFix{
		fix(42, now.Add(-time.Second)),
	})

	assert.Equal(t, 1, queued)
	assert.Len(t, sink.queued[7], 1)
	assert.Empty(t, sink.global)
}

func TestResolveAgainAfterContestantWindowCloses(t *testing.T) {
	now := time.Now()
	directory := &fakeDirectory{
		names: map[int]string{42: "bravo"},
		resolutions: map[string]*Resolution{
			"bravo": {Contestant: &model.Contestant{
				ID: 7, FinishedByTime: now.Add(-time.Minute)}},
		},
	}
	sink := newFakeSink()
	service := NewService(directory, sink)

	service.AcceptBatch(context.Background(), []*model.InboundFix{
		fix(42, now.Add(-time.Second)),
	})

	// fix after the contestant's window forces a fresh lookup
	directory.mu.Lock()
	resolves := directory.resolves
	directory.mu.Unlock()
	assert.Equal(t, 2, resolves)
}
