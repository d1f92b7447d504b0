package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var twelve = decimal.NewFromInt(12)
var hundred = decimal.NewFromInt(100)

// BalanceReader returns the sum of all account balances of a user.
type BalanceReader interface {
	CurrentBalance(ctx context.Context, userId int) (decimal.Decimal, error)
}

type Service interface {
	// DailyTrend derives the daily closing balances of a monthly cycle from the current
	// stored balance by undoing every posting made after the day.
	DailyTrend(ctx context.Context, month period.YearMonth) (Trend, error)
	IncomeVsExpenses(ctx context.Context, year int) (YearOverview, error)
	SpendingByCategory(ctx context.Context, month period.YearMonth) (CategoryBreakdown, error)
}

type ServiceImpl struct {
	ledger   ledger.Aggregator
	balances BalanceReader
	clock    utils.Clock
}

func NewService(aggregator ledger.Aggregator, balances BalanceReader, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{ledger: aggregator, balances: balances, clock: clock}
}

func (s *ServiceImpl) DailyTrend(ctx context.Context, month period.YearMonth) (Trend, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Trend{}, fmt.Errorf("failed to get current user: %w", err)
	}
	now := s.clock.Now()
	rng := period.MonthRange(now, currentUser.Settings.MonthStartDate, &month)

	currentBalance, err := s.balances.CurrentBalance(ctx, currentUser.Id)
	if err != nil {
		return Trend{}, err
	}
	trend := Trend{
		Month:            month,
		Range:            rng,
		DaysInMonth:      rng.Days(),
		CurrentBalance:   utils.Round2(currentBalance),
		StartBalance:     decimal.Zero,
		GrowthPercentage: decimal.Zero,
	}
	if rng.Start.After(now) {
		trend.Message = NoTransactionsMessage
		return trend, nil
	}

	incomeByDay, err := s.ledger.SumByDay(ctx, currentUser.Id, ledger.Income, rng)
	if err != nil {
		return Trend{}, err
	}
	spendingByDay, err := s.ledger.SumByDay(ctx, currentUser.Id, ledger.Spending, rng)
	if err != nil {
		return Trend{}, err
	}
	net := make([]decimal.Decimal, len(incomeByDay))
	hasEntries := false
	for i := range incomeByDay {
		if !incomeByDay[i].Total.IsZero() || !spendingByDay[i].Total.IsZero() {
			hasEntries = true
		}
		net[i] = incomeByDay[i].Total.Sub(spendingByDay[i].Total)
	}
	if !hasEntries {
		trend.Message = NoTransactionsMessage
		return trend, nil
	}

	lastDay := len(net)
	if rng.Contains(now) {
		lastDay = period.Range{Start: rng.Start, End: period.DayRange(now).End}.Days()
	}

	futureNet := decimal.Zero
	if now.After(rng.End) {
		futureNet, err = s.netAfter(ctx, currentUser.Id, rng.End, now)
		if err != nil {
			return Trend{}, err
		}
	}

	running := currentBalance.Sub(futureNet)
	endBalance := running
	points := make([]TrendPoint, lastDay)
	for day := lastDay; day >= 1; day-- {
		points[day-1] = TrendPoint{Day: day, Balance: utils.Round2(running)}
		running = running.Sub(net[day-1])
	}
	log.Tracef("balance trend for user %d in %s: start %s, end %s", currentUser.Id, rng.Format(), running, endBalance)

	trend.DaysInMonth = lastDay
	trend.Points = points
	trend.StartBalance = utils.Round2(running)
	trend.GrowthPercentage = growth(running, endBalance)
	return trend, nil
}

func (s *ServiceImpl) netAfter(ctx context.Context, userId int, after, until time.Time) (decimal.Decimal, error) {
	income, err := s.ledger.SumTotalAfter(ctx, userId, ledger.Income, after, until)
	if err != nil {
		return decimal.Zero, err
	}
	spending, err := s.ledger.SumTotalAfter(ctx, userId, ledger.Spending, after, until)
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(spending), nil
}

// growth is reported as 100 when starting from zero with a positive end balance.
func growth(start, end decimal.Decimal) decimal.Decimal {
	if start.IsZero() {
		if end.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return utils.Round2(end.Sub(start).Div(start.Abs()).Mul(hundred))
}

func (s *ServiceImpl) IncomeVsExpenses(ctx context.Context, year int) (YearOverview, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return YearOverview{}, fmt.Errorf("failed to get current user: %w", err)
	}

	var income, spending []ledger.MonthTotal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.ledger.SumByMonth(gctx, userId, ledger.Income, year)
		return err
	})
	g.Go(func() error {
		var err error
		spending, err = s.ledger.SumByMonth(gctx, userId, ledger.Spending, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return YearOverview{}, err
	}

	overview := YearOverview{Year: year, TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero}
	for i := range income {
		overview.Months = append(overview.Months, MonthFlow{
			Month:    income[i].Month,
			Income:   income[i].Total,
			Expenses: spending[i].Total,
		})
		overview.TotalIncome = overview.TotalIncome.Add(income[i].Total)
		overview.TotalExpenses = overview.TotalExpenses.Add(spending[i].Total)
	}
	overview.AvgMonthlyIncome = utils.Round2(overview.TotalIncome.Div(twelve))
	overview.AvgMonthlyExpenses = utils.Round2(overview.TotalExpenses.Div(twelve))
	return overview, nil
}

func (s *ServiceImpl) SpendingByCategory(ctx context.Context, month period.YearMonth) (CategoryBreakdown, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return CategoryBreakdown{}, fmt.Errorf("failed to get current user: %w", err)
	}
	rng := period.MonthRange(s.clock.Now(), currentUser.Settings.MonthStartDate, &month)
	totals, err := s.ledger.SumByCategory(ctx, currentUser.Id, ledger.Spending, rng)
	if err != nil {
		return CategoryBreakdown{}, err
	}

	breakdown := CategoryBreakdown{Month: month, Range: rng, TotalSpending: decimal.Zero, Categories: []CategoryShare{}}
	for _, total := range totals {
		breakdown.TotalSpending = breakdown.TotalSpending.Add(total.Total)
	}
	for _, total := range totals {
		breakdown.Categories = append(breakdown.Categories, CategoryShare{
			Category:   total.Category,
			Amount:     total.Total,
			Count:      total.Count,
			Percentage: utils.Percentage(total.Total, breakdown.TotalSpending),
		})
	}
	breakdown.TotalSpending = utils.Round2(breakdown.TotalSpending)
	return breakdown, nil
}
