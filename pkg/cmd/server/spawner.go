package server

import (
	"context"
	"time"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/live"
	"github.com/airsportlive/airsports-calculator-go/pkg/manager"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/store"
	"github.com/airsportlive/airsports-calculator-go/pkg/route"
)

const spawnInterval = 15 * time.Second

type builtTask struct {
	route     *model.Route
	scorecard *model.Scorecard
}

// spawner polls for contestants whose tracking window is open and makes sure
// each one has a processor.
type spawner struct {
	store *store.Store
	hub   *live.Hub
	mgr   *manager.Manager
	tasks map[int]*builtTask
	l     *log.Logger
}

func newSpawner(s *store.Store, hub *live.Hub, mgr *manager.Manager) *spawner {
	return &spawner{
		store: s,
		hub:   hub,
		mgr:   mgr,
		tasks: make(map[int]*builtTask),
		l:     log.Default().Named("spawner"),
	}
}

func (s *spawner) run(ctx context.Context) {
	ticker := time.NewTicker(spawnInterval)
	defer ticker.Stop()
	s.spawnActive(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawnActive(ctx)
		}
	}
}

func (s *spawner) spawnActive(ctx context.Context) {
	active, err := s.store.ActiveContestants(ctx)
	if err != nil {
		s.l.Warn("could not list active contestants", log.ErrorField(err))
		return
	}
	for _, contestant := range active {
		task, err := s.taskFor(ctx, contestant.NavigationTaskID)
		if err != nil {
			s.l.Warn("could not load navigation task",
				log.Int("task", contestant.NavigationTaskID),
				log.ErrorField(err))
			continue
		}
		s.hub.Register(contestant)
		if _, err := s.mgr.EnsureRunning(ctx, contestant,
			task.route, task.scorecard); err != nil {
			s.l.Warn("could not start processor",
				log.Int("contestant", contestant.ID), log.ErrorField(err))
		}
	}
}

// taskFor builds and caches the runtime route per navigation task. Routes
// are immutable once published.
func (s *spawner) taskFor(ctx context.Context, taskID int) (*builtTask, error) {
	if task, ok := s.tasks[taskID]; ok {
		return task, nil
	}
	definition, err := s.store.LoadNavigationTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	built, err := route.FromTask(definition)
	if err != nil {
		return nil, err
	}
	task := &builtTask{route: built, scorecard: definition.Scorecard}
	s.tasks[taskID] = task
	return task, nil
}
