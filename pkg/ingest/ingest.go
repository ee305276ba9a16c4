// Package ingest accepts raw tracker fixes, resolves the owning contestant
// and forwards each fix to the per-contestant FIFO and the global map stream.
package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/tracker"
	"github.com/airsportlive/airsports-calculator-go/pkg/utils/cache"
	"github.com/airsportlive/airsports-calculator-go/pkg/utils/cache/loadercache"
)

const (
	// fixes older than this are discarded on arrival
	defaultMaxFixAge = 14 * time.Hour
	// resolver entries go stale quickly so mid-flight contestant edits
	// take effect without a restart
	defaultResolverExpiration = 60 * time.Second
)

// Resolution is the outcome of mapping a device to its current contestant.
// Contestant is nil when the device is not assigned to anybody right now.
type Resolution struct {
	Contestant  *model.Contestant
	IsSimulator bool
}

// Directory answers the database lookups behind the ingestion caches.
type Directory interface {
	DeviceName(deviceID int) (string, error)
	ResolveContestant(deviceName string) (*Resolution, error)
}

// PositionSink receives resolved fixes. Satisfied by rstate.Store.
type PositionSink interface {
	PushPosition(ctx context.Context, contestantID int, pos *model.Position) error
	PublishGlobalPosition(ctx context.Context, deviceID string, pos *model.Position) error
}

type Option func(*Service)

func WithLogger(arg *log.Logger) Option {
	return func(s *Service) { s.l = arg }
}

func WithMaxFixAge(d time.Duration) Option {
	return func(s *Service) { s.maxFixAge = d }
}

func WithResolverExpiration(d time.Duration) Option {
	return func(s *Service) { s.resolverExpiration = d }
}

// Service is the ingestion pipeline. Safe for concurrent use.
type Service struct {
	directory Directory
	sink      PositionSink

	devices  cache.Cache[int, string]
	resolver cache.Cache[string, Resolution]

	mu       sync.Mutex
	lastSeen map[int]time.Time

	maxFixAge          time.Duration
	resolverExpiration time.Duration
	l                  *log.Logger
}

func NewService(directory Directory, sink PositionSink, opts ...Option) *Service {
	ret := &Service{
		directory:          directory,
		sink:               sink,
		lastSeen:           make(map[int]time.Time),
		maxFixAge:          defaultMaxFixAge,
		resolverExpiration: defaultResolverExpiration,
		l:                  log.Default().Named("ingest"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.devices = loadercache.New(
		loadercache.WithLoader(func(deviceID int) (*string, error) {
			name, err := directory.DeviceName(deviceID)
			if err != nil {
				return nil, err
			}
			return &name, nil
		}),
		loadercache.WithLogger[int, string](ret.l))
	ret.resolver = loadercache.New(
		loadercache.WithLoader(directory.ResolveContestant),
		loadercache.WithExpiration[string, Resolution](ret.resolverExpiration),
		loadercache.WithLogger[string, Resolution](ret.l))
	return ret
}

// AcceptBatch processes a batch of raw fixes and returns the number of fixes
// queued for a contestant. A failing fix never aborts the batch.
func (s *Service) AcceptBatch(ctx context.Context, fixes []*model.InboundFix) int {
	queued := 0
	for _, fix := range fixes {
		if s.acceptFix(ctx, fix) {
			queued++
		}
	}
	return queued
}

//nolint:cyclop // linear sequence of drop conditions
func (s *Service) acceptFix(ctx context.Context, fix *model.InboundFix) bool {
	if time.Since(fix.DeviceTime) >= s.maxFixAge {
		return false
	}
	if s.isDuplicate(fix) {
		return false
	}
	deviceName, err := s.devices.Get(ctx, fix.DeviceID)
	if err != nil {
		s.l.Warn("unknown device", log.Int("device", fix.DeviceID),
			log.ErrorField(err))
		return false
	}
	resolution, err := s.resolve(ctx, *deviceName, fix.DeviceTime)
	if err != nil {
		s.l.Warn("could not resolve contestant",
			log.String("device", *deviceName), log.ErrorField(err))
		return false
	}
	position := tracker.FixToPosition(fix)
	position.ProcessorReceivedTime = time.Now()
	if !resolution.IsSimulator {
		if err := s.sink.PublishGlobalPosition(ctx, *deviceName, position); err != nil {
			s.l.Warn("global publish", log.ErrorField(err))
		}
	}
	if resolution.Contestant == nil {
		return false
	}
	if err := s.sink.PushPosition(ctx, resolution.Contestant.ID, position); err != nil {
		s.l.Error("fifo push",
			log.Int("contestant", resolution.Contestant.ID), log.ErrorField(err))
		return false
	}
	return true
}

// resolve looks up the contestant for a device, re-resolving when the cached
// contestant's flight window has already closed at the fix time.
//
//nolint:whitespace // keep signature grouping
func (s *Service) resolve(
	ctx context.Context, deviceName string, at time.Time,
) (*Resolution, error) {
	resolution, err := s.resolver.Get(ctx, deviceName)
	if err != nil {
		return nil, err
	}
	if resolution.Contestant != nil &&
		at.After(resolution.Contestant.FinishedByTime) {
		s.resolver.Invalidate(ctx, deviceName)
		return s.resolver.Get(ctx, deviceName)
	}
	return resolution, nil
}

func (s *Service) isDuplicate(fix *model.InboundFix) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSeen[fix.DeviceID]; ok && last.Equal(fix.DeviceTime) {
		return true
	}
	s.lastSeen[fix.DeviceID] = fix.DeviceTime
	return false
}

// InvalidateDevice drops the cached mapping for one device. Called when a
// device or its contestant assignment changes.
func (s *Service) InvalidateDevice(ctx context.Context, deviceID int) {
	if name, err := s.devices.Get(ctx, deviceID); err == nil {
		s.resolver.Invalidate(ctx, *name)
	}
	s.devices.Invalidate(ctx, deviceID)
}

// Handler exposes the HTTP push path. Expects a JSON array of fixes.
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fixes []*model.InboundFix
		if err := json.NewDecoder(r.Body).Decode(&fixes); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		queued := s.AcceptBatch(r.Context(), fixes)
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // best effort response
		json.NewEncoder(w).Encode(map[string]int{"queued": queued})
	}
}
