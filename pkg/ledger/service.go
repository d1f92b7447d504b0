package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Aggregator answers sum queries over a user's ledger entries. Amounts are summed raw,
// regardless of the entry currency.
type Aggregator interface {
	// SumByCategory coalesces categories case-insensitively. The label of a group is the
	// spelling used by its earliest entry. Results are sorted by total, highest first.
	SumByCategory(ctx context.Context, userId int, kind Kind, r period.Range) ([]CategoryTotal, error)
	SumTotal(ctx context.Context, userId int, kind Kind, r period.Range) (decimal.Decimal, error)
	// SumByDay returns one row per UTC day of r, zero when the day has no entries.
	SumByDay(ctx context.Context, userId int, kind Kind, r period.Range) ([]DayTotal, error)
	// SumByMonth returns twelve rows for the calendar months of year.
	SumByMonth(ctx context.Context, userId int, kind Kind, year int) ([]MonthTotal, error)
	// SumTotalAfter sums entries dated strictly after `after` and not later than `until`.
	SumTotalAfter(ctx context.Context, userId int, kind Kind, after, until time.Time) (decimal.Decimal, error)
	Entries(ctx context.Context, userId int, kind Kind, r period.Range) ([]Entry, error)
	ActiveUsers(ctx context.Context, userIds []int, r period.Range) ([]int, error)

	DailySummary(ctx context.Context, day time.Time) (DailySummary, error)
	CycleSummary(ctx context.Context, month *period.YearMonth) (CycleSummary, error)
}

type AggregatorImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewAggregator(repo Repository, clock utils.Clock) *AggregatorImpl {
	return &AggregatorImpl{repo: repo, clock: clock}
}

func (a *AggregatorImpl) SumByCategory(ctx context.Context, userId int, kind Kind, r period.Range) ([]CategoryTotal, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	rows, err := a.repo.CategoryTotals(ctx, userId, kind, r)
	if err != nil {
		return nil, err
	}
	return coalesceCategories(rows), nil
}

func coalesceCategories(rows []CategoryTotal) []CategoryTotal {
	result := make([]CategoryTotal, 0, len(rows))
	index := map[string]int{}
	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Category))
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, CategoryTotal{Category: strings.TrimSpace(row.Category)})
		}
		result[i].Total = result[i].Total.Add(row.Total)
		result[i].Count += row.Count
	}
	for i := range result {
		result[i].Total = utils.Round2(result[i].Total)
	}
	// stable, so equal totals keep first encountered order
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Total.GreaterThan(result[j].Total)
	})
	return result
}

func (a *AggregatorImpl) SumTotal(ctx context.Context, userId int, kind Kind, r period.Range) (decimal.Decimal, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	total, err := a.repo.Total(ctx, userId, kind, r)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.Round2(total), nil
}

func (a *AggregatorImpl) SumByDay(ctx context.Context, userId int, kind Kind, r period.Range) ([]DayTotal, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	rows, err := a.repo.DayTotals(ctx, userId, kind, r)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		key := row.Day.Format(time.DateOnly)
		byDay[key] = byDay[key].Add(row.Total)
	}

	totals := make([]DayTotal, 0, r.Days())
	for day := period.DayRange(r.Start).Start; day.Before(r.EndExclusive()); day = day.AddDate(0, 0, 1) {
		totals = append(totals, DayTotal{Day: day, Total: utils.Round2(byDay[day.Format(time.DateOnly)])})
	}
	return totals, nil
}

func (a *AggregatorImpl) SumByMonth(ctx context.Context, userId int, kind Kind, year int) ([]MonthTotal, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	rows, err := a.repo.MonthTotals(ctx, userId, kind, year)
	if err != nil {
		return nil, err
	}
	totals := make([]MonthTotal, 12)
	for i := range totals {
		totals[i] = MonthTotal{Month: time.Month(i + 1), Total: decimal.Zero}
	}
	for _, row := range rows {
		if row.Month < time.January || row.Month > time.December {
			continue
		}
		totals[row.Month-1].Total = utils.Round2(totals[row.Month-1].Total.Add(row.Total))
	}
	return totals, nil
}

func (a *AggregatorImpl) SumTotalAfter(ctx context.Context, userId int, kind Kind, after, until time.Time) (decimal.Decimal, error) {
	r := period.Range{Start: after.Add(time.Millisecond), End: until}
	if r.End.Before(r.Start) {
		return decimal.Zero, nil
	}
	return a.SumTotal(ctx, userId, kind, r)
}

func (a *AggregatorImpl) Entries(ctx context.Context, userId int, kind Kind, r period.Range) ([]Entry, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return a.repo.Entries(ctx, userId, kind, r)
}

func (a *AggregatorImpl) ActiveUsers(ctx context.Context, userIds []int, r period.Range) ([]int, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return a.repo.ActiveUsers(ctx, userIds, r)
}

func (a *AggregatorImpl) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DailySummary{}, fmt.Errorf("failed to get current user: %w", err)
	}
	r := period.DayRange(day)
	income, err := a.SumTotal(ctx, userId, Income, r)
	if err != nil {
		return DailySummary{}, err
	}
	spending, err := a.SumTotal(ctx, userId, Spending, r)
	if err != nil {
		return DailySummary{}, err
	}
	return DailySummary{Date: r.Start, TotalIncome: income, TotalSpending: spending}, nil
}

func (a *AggregatorImpl) CycleSummary(ctx context.Context, month *period.YearMonth) (CycleSummary, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return CycleSummary{}, fmt.Errorf("failed to get current user: %w", err)
	}
	r := period.MonthRange(a.clock.Now(), currentUser.Settings.MonthStartDate, month)
	log.Tracef("cycle summary for user %d in %s", currentUser.Id, r.Format())

	income, err := a.SumTotal(ctx, currentUser.Id, Income, r)
	if err != nil {
		return CycleSummary{}, err
	}
	spending, err := a.SumTotal(ctx, currentUser.Id, Spending, r)
	if err != nil {
		return CycleSummary{}, err
	}
	return CycleSummary{
		Start:         r.Start,
		End:           r.End,
		TotalIncome:   income,
		TotalSpending: spending,
		Net:           income.Sub(spending),
	}, nil
}
