// Package scheduler assigns start slots to teams of a navigation task so
// that shared aircraft, trackers and crew members never overlap.
package scheduler

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// slots are one minute wide, the contest window spans two days
const (
	minutesPerSlot = 1
	windowSlots    = 2 * 1440
)

type Params struct {
	MinimumStartInterval  int
	MinimumFinishInterval int
	AircraftSwitchTime    int
	TrackerSwitchTime     int
	TrackerStartLeadTime  int
	CrewSwitchTime        int
	Optimise              bool
}

type Option func(*Scheduler)

func WithParams(p Params) Option {
	return func(s *Scheduler) { s.params = p }
}

func WithSolver(arg Solver) Option {
	return func(s *Scheduler) { s.solver = arg }
}

func WithLogger(arg *log.Logger) Option {
	return func(s *Scheduler) { s.l = arg }
}

// Result carries the populated team definitions. Teams is empty when no
// feasible assignment exists.
type Result struct {
	Teams   []*model.TeamDefinition
	Message string
}

type Scheduler struct {
	params Params
	solver Solver
	l      *log.Logger
}

func New(opts ...Option) *Scheduler {
	ret := &Scheduler{
		params: Params{
			MinimumStartInterval: 1,
			Optimise:             true,
		},
		l: log.Default().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.solver == nil {
		ret.solver = newLocalSearchSolver(ret.l)
	}
	return ret
}

// Schedule assigns each team a start slot relative to firstTakeoff. The
// input teams are not modified.
//
//nolint:whitespace // keep signature grouping
func (s *Scheduler) Schedule(
	teams []*model.TeamDefinition, firstTakeoff time.Time,
) *Result {
	if len(teams) == 0 {
		return &Result{Message: "nothing to schedule"}
	}
	work := lo.Map(teams, func(team *model.TeamDefinition, _ int) *model.TeamDefinition {
		clone := *team
		return &clone
	})
	for _, team := range work {
		if team.Frozen {
			team.StartSlot = timeToSlot(firstTakeoff, team.StartTime)
		}
	}

	assignment, ok := warmStart(work, &s.params)
	if !ok {
		s.l.Warn("no feasible schedule", log.Int("teams", len(work)))
		return &Result{Message: "no feasible schedule found"}
	}
	if s.params.Optimise {
		if improved, err := s.solver.Solve(work, assignment, &s.params); err != nil {
			s.l.Warn("optimiser failed, keeping warm start", log.ErrorField(err))
		} else {
			assignment = improved
		}
	}

	for _, team := range work {
		team.StartSlot = assignment[team.PK]
		team.StartTime = slotToTime(firstTakeoff, team.StartSlot)
	}
	return &Result{
		Teams:   work,
		Message: s.describe(work, firstTakeoff),
	}
}

func (s *Scheduler) describe(teams []*model.TeamDefinition, firstTakeoff time.Time) string {
	lastFinish := lo.MaxBy(teams, func(a, b *model.TeamDefinition) bool {
		return a.StartSlot+a.FlightTimeMinutes > b.StartSlot+b.FlightTimeMinutes
	})
	finish := slotToTime(firstTakeoff,
		lastFinish.StartSlot+lastFinish.FlightTimeMinutes)
	return fmt.Sprintf("scheduled %d teams, first takeoff %s, last finish %s, span %s",
		len(teams),
		firstTakeoff.Format("15:04"),
		finish.Format("15:04"),
		finish.Sub(firstTakeoff).Round(time.Minute))
}

func timeToSlot(firstTakeoff, at time.Time) int {
	return int(at.Sub(firstTakeoff).Minutes()) / minutesPerSlot
}

func slotToTime(firstTakeoff time.Time, slot int) time.Time {
	return firstTakeoff.Add(time.Duration(slot*minutesPerSlot) * time.Minute)
}
