package ledger

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
)

type RepositoryStub struct {
	mu      sync.Mutex
	nextId  int64
	entries []Entry
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

// Add stores an entry the way a committed posting would.
func (s *RepositoryStub) Add(entry Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	entry.Id = s.nextId
	s.entries = append(s.entries, entry)
	return entry
}

func (s *RepositoryStub) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId = 0
	s.entries = nil
}

func (s *RepositoryStub) matching(userId int, kind Kind, r period.Range) []Entry {
	var result []Entry
	for _, e := range s.entries {
		if e.UserId == userId && e.Kind == kind && r.Contains(e.Date) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func (s *RepositoryStub) CategoryTotals(ctx context.Context, userId int, kind Kind, r period.Range) ([]CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals []CategoryTotal
	index := map[string]int{}
	for _, e := range s.matching(userId, kind, r) {
		i, ok := index[e.Category]
		if !ok {
			i = len(totals)
			index[e.Category] = i
			totals = append(totals, CategoryTotal{Category: e.Category})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
		totals[i].Count++
	}
	return totals, nil
}

func (s *RepositoryStub) Total(ctx context.Context, userId int, kind Kind, r period.Range) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.matching(userId, kind, r) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *RepositoryStub) DayTotals(ctx context.Context, userId int, kind Kind, r period.Range) ([]DayTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals []DayTotal
	for _, e := range s.matching(userId, kind, r) {
		day := period.DayRange(e.Date).Start
		if n := len(totals); n > 0 && totals[n-1].Day.Equal(day) {
			totals[n-1].Total = totals[n-1].Total.Add(e.Amount)
			continue
		}
		totals = append(totals, DayTotal{Day: day, Total: e.Amount})
	}
	return totals, nil
}

func (s *RepositoryStub) MonthTotals(ctx context.Context, userId int, kind Kind, year int) ([]MonthTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMonth := map[time.Month]decimal.Decimal{}
	for _, e := range s.entries {
		if e.UserId == userId && e.Kind == kind && e.Date.UTC().Year() == year {
			byMonth[e.Date.UTC().Month()] = byMonth[e.Date.UTC().Month()].Add(e.Amount)
		}
	}
	var totals []MonthTotal
	for month := time.January; month <= time.December; month++ {
		if total, ok := byMonth[month]; ok {
			totals = append(totals, MonthTotal{Month: month, Total: total})
		}
	}
	return totals, nil
}

func (s *RepositoryStub) Entries(ctx context.Context, userId int, kind Kind, r period.Range) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.matching(userId, kind, r)
	slices.Reverse(entries)
	return entries, nil
}

func (s *RepositoryStub) ActiveUsers(ctx context.Context, userIds []int, r period.Range) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []int
	for _, id := range userIds {
		for _, e := range s.entries {
			if e.UserId == id && r.Contains(e.Date) {
				active = append(active, id)
				break
			}
		}
	}
	return active, nil
}
