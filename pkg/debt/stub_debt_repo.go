package debt

import (
	"context"
	"maps"
	"sort"
	"sync"
)

type StubDebtRepo struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	debts  map[int]Debt
	nextId int
}

func NewStubDebtRepo() *StubDebtRepo {
	return &StubDebtRepo{debts: map[int]Debt{}}
}

func (s *StubDebtRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debts = map[int]Debt{}
	s.nextId = 0
}

func (s *StubDebtRepo) WithTransaction(ctx context.Context, fn func(repo DebtRepo) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := maps.Clone(s.debts)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.debts = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *StubDebtRepo) Store(ctx context.Context, userId int, debt Debt) (Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	debt.Id = s.nextId
	debt.UserId = userId
	s.debts[debt.Id] = debt
	return debt, nil
}

func (s *StubDebtRepo) Get(ctx context.Context, userId int, id int) (Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debt, ok := s.debts[id]
	if !ok || debt.UserId != userId {
		return Debt{}, ErrDebtNotFound
	}
	return debt, nil
}

func (s *StubDebtRepo) Lock(ctx context.Context, userId int, id int) (Debt, error) {
	return s.Get(ctx, userId, id)
}

func (s *StubDebtRepo) GetAll(ctx context.Context, userId int, direction Direction) ([]Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debts := []Debt{}
	for _, debt := range s.debts {
		if debt.UserId == userId && debt.Direction == direction {
			debts = append(debts, debt)
		}
	}
	// newest first
	sort.Slice(debts, func(i, j int) bool { return debts[i].Id > debts[j].Id })
	return debts, nil
}

func (s *StubDebtRepo) Update(ctx context.Context, userId int, debt Debt) (Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.debts[debt.Id]
	if !ok || existing.UserId != userId {
		return Debt{}, ErrDebtNotFound
	}
	debt.UserId = userId
	debt.Direction = existing.Direction
	debt.CreatedAt = existing.CreatedAt
	s.debts[debt.Id] = debt
	return debt, nil
}

func (s *StubDebtRepo) Delete(ctx context.Context, userId int, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	debt, ok := s.debts[id]
	if !ok || debt.UserId != userId {
		return ErrDebtNotFound
	}
	delete(s.debts, id)
	return nil
}
