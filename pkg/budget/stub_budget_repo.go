package budget

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klokku/cycleledger/pkg/period"
)

type StubBudgetRepo struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	budgets map[int]Budget
	nextId  int
}

func NewStubBudgetRepo() *StubBudgetRepo {
	return &StubBudgetRepo{budgets: map[int]Budget{}}
}

func (s *StubBudgetRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = map[int]Budget{}
	s.nextId = 0
}

// WithTransaction serializes transactions, which stands in for the row locks.
func (s *StubBudgetRepo) WithTransaction(ctx context.Context, fn func(repo BudgetRepo) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := maps.Clone(s.budgets)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.budgets = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *StubBudgetRepo) duplicate(userId int, budget Budget) bool {
	for _, existing := range s.budgets {
		if existing.Id != budget.Id && existing.UserId == userId && existing.Period == budget.Period &&
			strings.EqualFold(existing.Category, budget.Category) {
			return true
		}
	}
	return false
}

func (s *StubBudgetRepo) Store(ctx context.Context, userId int, budget Budget) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duplicate(userId, budget) {
		return 0, errDuplicate
	}
	s.nextId++
	budget.Id = s.nextId
	budget.UserId = userId
	budget.NotifiedThresholds = nonNil(budget.NotifiedThresholds)
	s.budgets[budget.Id] = budget
	return budget.Id, nil
}

func (s *StubBudgetRepo) Get(ctx context.Context, userId int, id int) (Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.budgets[id]
	if !ok || budget.UserId != userId {
		return Budget{}, ErrBudgetNotFound
	}
	return budget, nil
}

func (s *StubBudgetRepo) GetAll(ctx context.Context, userId int, kind period.Kind) ([]Budget, error) {
	return s.filter(func(b Budget) bool {
		return b.UserId == userId && (kind == "" || b.Period == kind)
	}), nil
}

func (s *StubBudgetRepo) LockByCategory(ctx context.Context, userId int, category string) ([]Budget, error) {
	return s.filter(func(b Budget) bool {
		return b.UserId == userId && strings.EqualFold(b.Category, category)
	}), nil
}

func (s *StubBudgetRepo) filter(match func(Budget) bool) []Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	budgets := []Budget{}
	for _, budget := range s.budgets {
		if match(budget) {
			budget.NotifiedThresholds = slices.Clone(budget.NotifiedThresholds)
			budgets = append(budgets, budget)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Id < budgets[j].Id })
	return budgets
}

func (s *StubBudgetRepo) Update(ctx context.Context, userId int, budget Budget) (Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[budget.Id]
	if !ok || existing.UserId != userId {
		return Budget{}, ErrBudgetNotFound
	}
	if s.duplicate(userId, budget) {
		return Budget{}, errDuplicate
	}
	budget.UserId = userId
	budget.NotifiedThresholds = nonNil(budget.NotifiedThresholds)
	s.budgets[budget.Id] = budget
	return budget, nil
}

func (s *StubBudgetRepo) UpdateThresholds(ctx context.Context, userId int, id int, thresholds []int, periodStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.budgets[id]
	if !ok || budget.UserId != userId {
		return ErrBudgetNotFound
	}
	budget.NotifiedThresholds = slices.Clone(nonNil(thresholds))
	budget.ThresholdPeriodStart = &periodStart
	s.budgets[id] = budget
	return nil
}

func (s *StubBudgetRepo) Delete(ctx context.Context, userId int, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.budgets[id]
	if !ok || budget.UserId != userId {
		return ErrBudgetNotFound
	}
	delete(s.budgets, id)
	return nil
}
