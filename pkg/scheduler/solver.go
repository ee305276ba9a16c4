package scheduler

import (
	"maps"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// Solver improves a feasible assignment. Implementations must return an
// assignment at least as good as the warm start.
type Solver interface {
	Solve(teams []*model.TeamDefinition, warm map[int]int, p *Params) (map[int]int, error)
}

// localSearchSolver repeatedly pulls teams towards earlier slots while every
// pairwise constraint stays satisfied. Deterministic.
type localSearchSolver struct {
	maxPasses int
	l         *log.Logger
}

func newLocalSearchSolver(l *log.Logger) *localSearchSolver {
	return &localSearchSolver{maxPasses: 50, l: l.Named("solver")}
}

// cost is the objective from the assignment problem, lower is better.
func cost(teams []*model.TeamDefinition, assignment map[int]int) int {
	total := 0
	for _, team := range teams {
		total += assignment[team.PK] * team.FlightTimeMinutes
	}
	return total
}

//nolint:whitespace // keep signature grouping
func (s *localSearchSolver) Solve(
	teams []*model.TeamDefinition, warm map[int]int, p *Params,
) (map[int]int, error) {
	current := maps.Clone(warm)
	best := cost(teams, current)
	for pass := 0; pass < s.maxPasses; pass++ {
		improved := false
		for _, team := range teams {
			if team.Frozen {
				continue
			}
			if s.pullEarlier(team, teams, current, p) {
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	final := cost(teams, current)
	s.l.Debug("local search done",
		log.Int("warmCost", best), log.Int("finalCost", final))
	return current, nil
}

// pullEarlier moves one team to the earliest feasible slot below its current
// one. Returns true when the team moved.
//
//nolint:whitespace // keep signature grouping
func (s *localSearchSolver) pullEarlier(
	team *model.TeamDefinition, teams []*model.TeamDefinition,
	assignment map[int]int, p *Params,
) bool {
	current := assignment[team.PK]
	for slot := 0; slot < current; slot++ {
		if feasibleAt(team, slot, teams, assignment, p) {
			assignment[team.PK] = slot
			return true
		}
	}
	return false
}
