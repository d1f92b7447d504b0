package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/goal"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

type BalanceReader interface {
	CurrentBalance(ctx context.Context, userId int) (decimal.Decimal, error)
}

type GoalTotals interface {
	Totals(ctx context.Context, userId int) (goal.Totals, error)
}

type Service interface {
	// WeeklyReport covers the weekly block of the current monthly cycle.
	WeeklyReport(ctx context.Context) (Report, error)
	// MonthlyReport covers the given cycle, or the current one when month is nil.
	MonthlyReport(ctx context.Context, month *period.YearMonth) (Report, error)
}

type ServiceImpl struct {
	ledger   ledger.Aggregator
	balances BalanceReader
	goals    GoalTotals
	clock    utils.Clock
}

func NewService(aggregator ledger.Aggregator, balances BalanceReader, goals GoalTotals, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{ledger: aggregator, balances: balances, goals: goals, clock: clock}
}

func (s *ServiceImpl) WeeklyReport(ctx context.Context) (Report, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get current user: %w", err)
	}
	r := period.WeekRange(s.clock.Now(), currentUser.Settings.MonthStartDate)
	return s.build(ctx, currentUser.Id, r)
}

func (s *ServiceImpl) MonthlyReport(ctx context.Context, month *period.YearMonth) (Report, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get current user: %w", err)
	}
	r := period.MonthRange(s.clock.Now(), currentUser.Settings.MonthStartDate, month)
	return s.build(ctx, currentUser.Id, r)
}

func (s *ServiceImpl) build(ctx context.Context, userId int, r period.Range) (Report, error) {
	log.Debugf("building report for user %d in %s", userId, r.Format())
	report := Report{Range: r}

	var categories []ledger.CategoryTotal
	var totals goal.Totals
	var earning, spending []ledger.Entry

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.TotalEarning, err = s.ledger.SumTotal(ctx, userId, ledger.Income, r)
		return err
	})
	g.Go(func() (err error) {
		report.TotalSpending, err = s.ledger.SumTotal(ctx, userId, ledger.Spending, r)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.ledger.SumByCategory(ctx, userId, ledger.Spending, r)
		return err
	})
	g.Go(func() (err error) {
		report.CurrentBalance, err = s.balances.CurrentBalance(ctx, userId)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.goals.Totals(ctx, userId)
		return err
	})
	g.Go(func() (err error) {
		earning, err = s.ledger.Entries(ctx, userId, ledger.Income, r)
		return err
	})
	g.Go(func() (err error) {
		spending, err = s.ledger.Entries(ctx, userId, ledger.Spending, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if len(categories) > 0 {
		report.HighestSpendingCategory = &CategoryAmount{Category: categories[0].Category, Amount: categories[0].Total}
	}
	report.GoalProgress = goalProgress(totals)
	report.Entries = merge(earning, spending)
	return report, nil
}

func goalProgress(totals goal.Totals) GoalProgress {
	accumulated := utils.Round2(totals.Accumulated)
	target := utils.Round2(totals.Target)
	percentage := 0
	if target.IsPositive() {
		percentage = int(accumulated.Div(target).Mul(hundred).Round(0).IntPart())
	}
	return GoalProgress{
		Completed:  accumulated,
		Total:      target,
		Percentage: percentage,
		Summary:    fmt.Sprintf("%s of %s", accumulated.String(), target.String()),
	}
}

func merge(earning, spending []ledger.Entry) Entries {
	entries := Entries{
		All:      make([]Item, 0, len(earning)+len(spending)),
		Earning:  make([]Item, 0, len(earning)),
		Spending: make([]Item, 0, len(spending)),
	}
	for _, e := range earning {
		entries.Earning = append(entries.Earning, toItem(e))
	}
	for _, e := range spending {
		entries.Spending = append(entries.Spending, toItem(e))
	}
	entries.All = append(entries.All, entries.Earning...)
	entries.All = append(entries.All, entries.Spending...)
	sort.SliceStable(entries.All, func(i, j int) bool {
		return entries.All[i].Date.After(entries.All[j].Date)
	})
	return entries
}

func toItem(e ledger.Entry) Item {
	return Item{Date: e.Date, Kind: e.Kind, Category: e.Category, Name: e.Name, Amount: e.Amount}
}
