// Package manager owns the set of running contestant processors. It
// guarantees at most one processor per contestant across the process and,
// via the liveness keys, across replicas.
package manager

import (
	"context"
	"sync"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing"
)

// Liveness answers whether another replica already processes a contestant.
// Satisfied by rstate.Store.
type Liveness interface {
	IsAlive(ctx context.Context, contestantID int) (bool, error)
}

type Option func(*Manager)

func WithLogger(arg *log.Logger) Option {
	return func(m *Manager) { m.l = arg }
}

// WithProcessorOptions is passed through to every spawned processor.
func WithProcessorOptions(opts ...processing.Option) Option {
	return func(m *Manager) { m.processorOpts = opts }
}

func WithLiveness(arg Liveness) Option {
	return func(m *Manager) { m.liveness = arg }
}

type Manager struct {
	state    processing.StateStore
	historic processing.HistoricSource
	store    processing.Persistence
	live     processing.LivePublisher
	liveness Liveness

	mu      sync.Mutex
	running map[int]context.CancelFunc
	wg      sync.WaitGroup

	processorOpts []processing.Option
	l             *log.Logger
}

//nolint:whitespace // keep signature grouping
func New(
	state processing.StateStore,
	historic processing.HistoricSource,
	store processing.Persistence,
	live processing.LivePublisher,
	opts ...Option,
) *Manager {
	ret := &Manager{
		state:    state,
		historic: historic,
		store:    store,
		live:     live,
		running:  make(map[int]context.CancelFunc),
		l:        log.Default().Named("manager"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// EnsureRunning spawns a processor for the contestant unless one is already
// active here or on another replica. Returns true when a processor was
// started.
//
//nolint:whitespace // keep signature grouping
func (m *Manager) EnsureRunning(
	ctx context.Context,
	contestant *model.Contestant,
	r *model.Route,
	scorecard *model.Scorecard,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[contestant.ID]; ok {
		return false, nil
	}
	if m.liveness != nil {
		alive, err := m.liveness.IsAlive(ctx, contestant.ID)
		if err != nil {
			return false, err
		}
		if alive {
			m.l.Debug("processor alive on another replica",
				log.Int("contestant", contestant.ID))
			return false, nil
		}
	}
	processor, err := processing.NewContestantProcessor(contestant, r, scorecard,
		m.state, m.historic, m.store, m.live, m.processorOpts...)
	if err != nil {
		return false, err
	}
	procCtx, cancel := context.WithCancel(ctx)
	m.running[contestant.ID] = cancel
	m.wg.Add(1)
	go m.run(procCtx, contestant.ID, processor)
	m.l.Info("processor started", log.Int("contestant", contestant.ID))
	return true, nil
}

//nolint:whitespace // keep signature grouping
func (m *Manager) run(
	ctx context.Context, contestantID int, processor *processing.ContestantProcessor,
) {
	defer m.wg.Done()
	if err := processor.Run(ctx); err != nil {
		m.l.Error("processor failed",
			log.Int("contestant", contestantID), log.ErrorField(err))
	}
	m.mu.Lock()
	delete(m.running, contestantID)
	m.mu.Unlock()
	m.l.Info("processor done", log.Int("contestant", contestantID))
}

// Stop cancels one running processor. The processor still flushes its state
// on the way out.
func (m *Manager) Stop(contestantID int) {
	m.mu.Lock()
	cancel, ok := m.running[contestantID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Running lists the contestants processed by this replica.
func (m *Manager) Running() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]int, 0, len(m.running))
	for id := range m.running {
		ret = append(ret, id)
	}
	return ret
}

// Shutdown cancels all processors and waits for them to flush.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
