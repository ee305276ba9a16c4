package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/calculators"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/gatekeeper"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing/score"
	"github.com/airsportlive/airsports-calculator-go/pkg/queue"
	"github.com/airsportlive/airsports-calculator-go/pkg/rstate"
)

const (
	defaultQueueTimeout    = 15 * time.Second
	defaultRefreshInterval = 15 * time.Second
	heartbeatTTL           = 30 * time.Second
	fifoPopTimeout         = 5 * time.Second
	scoreQueueSize         = 256
	// gap between the previous fix and a live fix above which the tracker
	// service is asked for the missing positions
	liveGapFetchMargin = time.Second
)

// StateStore is the per-contestant FIFO and liveness state, implemented by
// rstate.Store.
type StateStore interface {
	PopPosition(ctx context.Context, contestantID int, timeout time.Duration) (*model.Position, error)
	DrainQueue(ctx context.Context, contestantID int) error
	Heartbeat(ctx context.Context, contestantID int, ttl time.Duration) error
	ClearLiveness(ctx context.Context, contestantID int) error
	TerminationRequested(ctx context.Context, contestantID int) (bool, error)
	ClearTermination(ctx context.Context, contestantID int) error
}

// HistoricSource serves recorded positions, implemented by tracker.Client.
type HistoricSource interface {
	LongestTrack(ctx context.Context, deviceIDs []string, from, to time.Time) ([]*model.Position, error)
	PositionsBetween(ctx context.Context, deviceID string, from, to time.Time) ([]*model.Position, error)
}

// Persistence is the database surface the processor writes through.
type Persistence interface {
	SavePositions(ctx context.Context, contestantID int, positions []*model.Position) error
	SaveScoreLogEntry(ctx context.Context, entry *model.ScoreLogEntry) error
	SaveAnnotation(ctx context.Context, annotation *model.TrackAnnotation) error
	SaveContestantTrack(ctx context.Context, track *model.ContestantTrack) error
	LoadContestant(ctx context.Context, id int) (*model.Contestant, error)
}

// LivePublisher fans processor output out to the navigation task group.
type LivePublisher interface {
	PublishPositions(contestantID int, positions []*model.Position)
	PublishScoreLogEntry(contestantID int, entry *model.ScoreLogEntry)
	PublishAnnotation(contestantID int, annotation *model.TrackAnnotation)
	PublishContestantTrack(track *model.ContestantTrack)
	PublishGateScore(contestantID int, estimate *model.GateScoreIfCrossedNow)
}

// ContestantProcessor is the long-lived worker for one contestant: an
// enqueue goroutine drains the per-contestant FIFO into the delay queue, the
// main loop feeds released fixes through the gatekeeper, and a score
// goroutine applies the resulting updates.
type ContestantProcessor struct {
	contestant *model.Contestant
	route      *model.Route
	scorecard  *model.Scorecard

	state   StateStore
	tracker HistoricSource
	store   Persistence
	live    LivePublisher
	l       *log.Logger

	calculationDelay time.Duration
	queueTimeout     time.Duration
	refreshInterval  time.Duration
	liveProcessing   bool

	delay        *queue.DelayQueue[*model.Position]
	scoreQueue   chan *score.Update
	scoreDone    chan struct{}
	accumulator  *ScoreAccumulator
	gatekeeper   *gatekeeper.Gatekeeper
	backtracking *calculators.BacktrackingCalculator

	// track is shared between the main loop and the score goroutine
	trackMu sync.Mutex
	track   *model.ContestantTrack

	initialLoaded chan struct{}
	terminating   bool
	lastPosition  *model.Position
	lastRefresh   time.Time
}

type Option func(*ContestantProcessor)

func WithCalculationDelay(d time.Duration) Option {
	return func(p *ContestantProcessor) { p.calculationDelay = d }
}

func WithQueueTimeout(d time.Duration) Option {
	return func(p *ContestantProcessor) { p.queueTimeout = d }
}

func WithRefreshInterval(d time.Duration) Option {
	return func(p *ContestantProcessor) { p.refreshInterval = d }
}

// WithLiveProcessing enables live mode: historic seeding, gap fetches from
// the tracker service and the finished-by-time exit condition.
func WithLiveProcessing(live bool) Option {
	return func(p *ContestantProcessor) { p.liveProcessing = live }
}

func WithLogger(l *log.Logger) Option {
	return func(p *ContestantProcessor) { p.l = l }
}

//nolint:whitespace // keep signature grouping
func NewContestantProcessor(
	contestant *model.Contestant, r *model.Route, scorecard *model.Scorecard,
	state StateStore, historic HistoricSource, store Persistence,
	live LivePublisher, opts ...Option,
) (*ContestantProcessor, error) {
	ret := &ContestantProcessor{
		contestant:      contestant,
		route:           r,
		scorecard:       scorecard,
		state:           state,
		tracker:         historic,
		store:           store,
		live:            live,
		l:               log.Default().Named("processor"),
		queueTimeout:    defaultQueueTimeout,
		refreshInterval: defaultRefreshInterval,
		delay:           queue.NewDelayQueue[*model.Position](),
		scoreQueue:      make(chan *score.Update, scoreQueueSize),
		scoreDone:       make(chan struct{}),
		accumulator:     NewScoreAccumulator(),
		initialLoaded:   make(chan struct{}),
		track:           &model.ContestantTrack{ContestantID: contestant.ID},
	}
	for _, opt := range opts {
		opt(ret)
	}
	if scorecard.InitialScore != nil {
		ret.track.Score = *scorecard.InitialScore
	}
	ret.backtracking = calculators.NewBacktrackingCalculator(scorecard, ret)
	calcs := []calculators.Calculator{ret.backtracking}
	if r.CorridorWidth > 0 {
		calcs = append(calcs, calculators.NewCorridorCalculator(r, scorecard, ret))
	}
	if len(r.Zones) > 0 {
		calcs = append(calcs, calculators.NewPenaltyZoneCalculator(r, scorecard, ret))
	}
	gk, err := gatekeeper.New(contestant, r, scorecard, ret,
		gatekeeper.WithCalculators(calcs...),
		gatekeeper.WithEstimateNotifier(func(e *model.GateScoreIfCrossedNow) {
			live.PublishGateScore(contestant.ID, e)
		}))
	if err != nil {
		return nil, err
	}
	ret.gatekeeper = gk
	return ret, nil
}

// UpdateScore implements score.Sink: calculators and the gatekeeper hand
// their updates here and the score goroutine applies them in order.
func (p *ContestantProcessor) UpdateScore(u *score.Update) {
	p.scoreQueue <- u
}

// Run drives the processor until an exit condition is met. It blocks and is
// meant to be launched on its own goroutine by the manager.
func (p *ContestantProcessor) Run(ctx context.Context) error {
	go p.scoreLoop(ctx)
	go p.enqueueLoop(ctx)

	select {
	case <-p.initialLoaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.trackMu.Lock()
	p.track.CalculatorStarted = true
	p.trackMu.Unlock()
	p.persistTrack(ctx)

	for !p.terminating {
		select {
		case <-ctx.Done():
			p.terminating = true
			continue
		default:
		}
		if err := p.state.Heartbeat(ctx, p.contestant.ID, heartbeatTTL); err != nil {
			p.l.Warn("heartbeat", log.ErrorField(err))
		}
		p.checkFinishedByTime()
		p.maybeRefresh(ctx)

		position, err := p.delay.Get(p.queueTimeout)
		if errors.Is(err, queue.ErrTimedOut) {
			p.checkCommandedTermination(ctx)
			continue
		}
		if err != nil {
			p.l.Error("delay queue", log.ErrorField(err))
			continue
		}
		if position == nil {
			// stop sentinel
			p.terminating = true
			continue
		}
		p.processPosition(ctx, position)
		p.checkCommandedTermination(ctx)
	}
	p.shutdown(ctx)
	return nil
}

// enqueueLoop seeds the delay queue with the historic track and then drains
// the per-contestant FIFO into it.
func (p *ContestantProcessor) enqueueLoop(ctx context.Context) {
	if p.liveProcessing {
		historic, err := p.tracker.LongestTrack(ctx,
			p.contestant.TrackerDeviceIDs, p.contestant.TrackerStartTime, time.Now())
		if err != nil {
			p.l.Warn("historic track fetch", log.ErrorField(err))
		}
		now := time.Now()
		for _, position := range historic {
			p.delay.Put(position, now)
		}
		p.l.Info("historic track loaded",
			log.Int("contestant", p.contestant.ID),
			log.Int("positions", len(historic)))
	}
	close(p.initialLoaded)

	for {
		if ctx.Err() != nil {
			return
		}
		position, err := p.state.PopPosition(ctx, p.contestant.ID, fifoPopTimeout)
		if errors.Is(err, rstate.ErrQueueTimeout) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.l.Warn("fifo pop", log.ErrorField(err))
			continue
		}
		if position == nil {
			p.delay.Put(nil, time.Now())
			return
		}
		p.delay.Put(position, position.Time.Add(p.calculationDelay))
	}
}

// checkFinishedByTime terminates a live contestant whose flight window has
// closed and whose queue holds nothing ready.
func (p *ContestantProcessor) checkFinishedByTime() {
	if !p.liveProcessing || time.Now().Before(p.contestant.FinishedByTime) {
		return
	}
	if _, release, ok := p.delay.Peek(); !ok || release.After(time.Now()) {
		p.l.Info("finished by time reached",
			log.Int("contestant", p.contestant.ID))
		p.terminating = true
	}
}

func (p *ContestantProcessor) maybeRefresh(ctx context.Context) {
	if time.Since(p.lastRefresh) < p.refreshInterval {
		return
	}
	p.lastRefresh = time.Now()
	p.live.PublishContestantTrack(p.snapshotTrack())
	fresh, err := p.store.LoadContestant(ctx, p.contestant.ID)
	if err != nil {
		p.l.Info("contestant gone, terminating",
			log.Int("contestant", p.contestant.ID), log.ErrorField(err))
		p.terminating = true
		return
	}
	// operators may adjust these mid flight
	p.contestant.FinishedByTime = fresh.FinishedByTime
	p.contestant.TrackerDeviceIDs = fresh.TrackerDeviceIDs
}

func (p *ContestantProcessor) checkCommandedTermination(ctx context.Context) {
	requested, err := p.state.TerminationRequested(ctx, p.contestant.ID)
	if err != nil || !requested {
		return
	}
	p.l.Info("manual termination", log.Int("contestant", p.contestant.ID))
	when := time.Now()
	if p.lastPosition != nil {
		when = p.lastPosition.Time
	}
	p.UpdateScore(&score.Update{
		Time:           when,
		Score:          0,
		Message:        "manually terminated",
		AnnotationType: model.AnnotationAnomaly,
		ScoreType:      "manually_terminated",
		MaximumScore:   -1,
	})
	p.trackMu.Lock()
	p.track.TrackTerminated = true
	p.trackMu.Unlock()
	p.terminating = true
}

// processPosition expands one released fix into the ordered position batch
// handed to the gatekeeper.
func (p *ContestantProcessor) processPosition(ctx context.Context, position *model.Position) {
	position.ProcessorReceivedTime = time.Now()
	batch := []*model.Position{position}
	if p.liveProcessing && p.lastPosition != nil &&
		position.Time.Sub(p.lastPosition.Time) > 2*liveGapFetchMargin &&
		position.DeviceID != "" {
		missing, err := p.tracker.PositionsBetween(ctx, position.DeviceID,
			p.lastPosition.Time.Add(time.Millisecond),
			position.Time.Add(-liveGapFetchMargin))
		if err != nil {
			p.l.Warn("gap fetch", log.ErrorField(err))
		} else if len(missing) > 0 {
			batch = append(missing, position)
		}
	}

	var generated []*model.Position
	for _, fix := range batch {
		if p.lastPosition != nil {
			if !fix.Time.After(p.lastPosition.Time) || fix.SamePlace(p.lastPosition) {
				continue
			}
			for _, step := range InterpolatePositions(p.lastPosition, fix) {
				p.gatekeeper.CalculateScore(step)
				generated = append(generated, step)
			}
		} else {
			p.gatekeeper.CalculateScore(fix)
			generated = append(generated, fix)
		}
		p.lastPosition = fix
	}
	if len(generated) == 0 {
		return
	}
	p.syncTrackFromGatekeeper()
	if err := p.store.SavePositions(ctx, p.contestant.ID, generated); err != nil {
		p.l.Error("persist positions", log.ErrorField(err))
	}
	p.live.PublishPositions(p.contestant.ID, generated)
}

func (p *ContestantProcessor) shutdown(ctx context.Context) {
	p.gatekeeper.FinishedProcessing()
	p.syncTrackFromGatekeeper()
	close(p.scoreQueue)
	<-p.scoreDone
	p.trackMu.Lock()
	p.track.CalculatorFinished = true
	p.trackMu.Unlock()
	p.persistTrack(ctx)
	if err := p.state.DrainQueue(ctx, p.contestant.ID); err != nil {
		p.l.Warn("drain fifo", log.ErrorField(err))
	}
	if err := p.state.ClearTermination(ctx, p.contestant.ID); err != nil {
		p.l.Warn("clear termination", log.ErrorField(err))
	}
	if err := p.state.ClearLiveness(ctx, p.contestant.ID); err != nil {
		p.l.Warn("clear liveness", log.ErrorField(err))
	}
	p.l.Info("processor finished", log.Int("contestant", p.contestant.ID),
		log.Float64("score", p.track.Score))
}

// scoreLoop is the single consumer of the score update channel. It owns the
// accumulator and the persisted track score.
func (p *ContestantProcessor) scoreLoop(ctx context.Context) {
	defer close(p.scoreDone)
	for u := range p.scoreQueue {
		p.applyScore(ctx, u)
	}
}

func (p *ContestantProcessor) applyScore(ctx context.Context, u *score.Update) {
	effective, capped := p.accumulator.SetAndUpdateScore(
		u.Score, u.ScoreType, u.MaximumScore, u.PreviousScore)
	p.trackMu.Lock()
	p.track.Score += effective - u.PreviousScore
	p.trackMu.Unlock()
	message := u.Message
	if capped {
		message += " (capped)"
	}
	entry := &model.ScoreLogEntry{
		ID:           uuid.New(),
		ContestantID: p.contestant.ID,
		Time:         u.Time,
		Gate:         u.Gate,
		Type:         u.AnnotationType,
		Message:      message,
		Points:       effective,
		Planned:      u.Planned,
		Actual:       u.Actual,
		Latitude:     u.Latitude,
		Longitude:    u.Longitude,
		ScoreType:    u.ScoreType,
	}
	annotation := &model.TrackAnnotation{
		ID:           uuid.New(),
		ContestantID: p.contestant.ID,
		Time:         u.Time,
		Latitude:     u.Latitude,
		Longitude:    u.Longitude,
		Message:      message,
		Type:         u.AnnotationType,
		Gate:         u.Gate,
	}
	if err := p.store.SaveScoreLogEntry(ctx, entry); err != nil {
		p.l.Error("persist score log entry", log.ErrorField(err))
	}
	if err := p.store.SaveAnnotation(ctx, annotation); err != nil {
		p.l.Error("persist annotation", log.ErrorField(err))
	}
	p.persistTrack(ctx)
	p.live.PublishScoreLogEntry(p.contestant.ID, entry)
	p.live.PublishAnnotation(p.contestant.ID, annotation)
}

func (p *ContestantProcessor) persistTrack(ctx context.Context) {
	snapshot := p.snapshotTrack()
	if err := p.store.SaveContestantTrack(ctx, snapshot); err != nil {
		p.l.Error("persist contestant track", log.ErrorField(err))
	}
	p.live.PublishContestantTrack(snapshot)
}

func (p *ContestantProcessor) snapshotTrack() *model.ContestantTrack {
	p.trackMu.Lock()
	snapshot := *p.track
	p.trackMu.Unlock()
	return &snapshot
}

// syncTrackFromGatekeeper mirrors the gatekeeper state into the shared
// track. Only the main loop calls this; the score goroutine reads the track
// under the mutex.
func (p *ContestantProcessor) syncTrackFromGatekeeper() {
	p.trackMu.Lock()
	p.track.CurrentState = p.backtracking.State()
	p.track.LastGate = p.gatekeeper.LastGateName()
	p.track.LastGateTimeOffset = p.gatekeeper.LastGateTimeOffset()
	p.track.CurrentLeg = p.gatekeeper.CurrentLeg()
	p.trackMu.Unlock()
}
