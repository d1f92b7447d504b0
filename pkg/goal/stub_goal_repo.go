package goal

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type StubGoalRepo struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	goals  map[int]Goal
	nextId int
}

func NewStubGoalRepo() *StubGoalRepo {
	return &StubGoalRepo{goals: map[int]Goal{}}
}

func (s *StubGoalRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = map[int]Goal{}
	s.nextId = 0
}

func (s *StubGoalRepo) WithTransaction(ctx context.Context, fn func(repo GoalRepo) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := maps.Clone(s.goals)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.goals = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *StubGoalRepo) Store(ctx context.Context, userId int, goal Goal) (Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	goal.Id = s.nextId
	goal.UserId = userId
	s.goals[goal.Id] = goal
	return goal, nil
}

func (s *StubGoalRepo) Get(ctx context.Context, userId int, id int) (Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal, ok := s.goals[id]
	if !ok || goal.UserId != userId {
		return Goal{}, ErrGoalNotFound
	}
	return goal, nil
}

func (s *StubGoalRepo) Lock(ctx context.Context, userId int, id int) (Goal, error) {
	return s.Get(ctx, userId, id)
}

func (s *StubGoalRepo) GetAll(ctx context.Context, userId int) ([]Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goals := []Goal{}
	for _, goal := range s.goals {
		if goal.UserId == userId {
			goals = append(goals, goal)
		}
	}
	// newest first
	sort.Slice(goals, func(i, j int) bool { return goals[i].Id > goals[j].Id })
	return goals, nil
}

func (s *StubGoalRepo) Update(ctx context.Context, userId int, goal Goal) (Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[goal.Id]
	if !ok || existing.UserId != userId {
		return Goal{}, ErrGoalNotFound
	}
	goal.UserId = userId
	goal.CreatedAt = existing.CreatedAt
	s.goals[goal.Id] = goal
	return goal, nil
}

func (s *StubGoalRepo) Delete(ctx context.Context, userId int, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal, ok := s.goals[id]
	if !ok || goal.UserId != userId {
		return ErrGoalNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *StubGoalRepo) Totals(ctx context.Context, userId int) (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := Totals{Accumulated: decimal.Zero, Target: decimal.Zero}
	for _, goal := range s.goals {
		if goal.UserId != userId {
			continue
		}
		totals.Accumulated = totals.Accumulated.Add(goal.AccumulatedAmount)
		totals.Target = totals.Target.Add(goal.TargetAmount)
		totals.Total++
		if goal.Status == Completed {
			totals.Completed++
		}
	}
	return totals, nil
}
