package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidBudgetValue = errs.New(errs.InvalidInput, "Budget value must be greater than 0")
var ErrCategoryRequired = errs.New(errs.InvalidInput, "Category is required")

const AlertNotificationType = "BUDGET_ALERT"

var minimumBudgetValue = decimal.RequireFromString("0.01")

// Notifier delivers a user notification. Implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, userId int, title, body string, data map[string]string) error
}

// SpendingReader is the part of the ledger aggregator the evaluator needs.
type SpendingReader interface {
	SumByCategory(ctx context.Context, userId int, kind ledger.Kind, r period.Range) ([]ledger.CategoryTotal, error)
}

type BudgetService interface {
	Create(ctx context.Context, budget Budget) (Budget, error)
	GetAll(ctx context.Context, kind period.Kind) ([]Budget, error)
	Update(ctx context.Context, id int, patch BudgetPatch) (Budget, error)
	Delete(ctx context.Context, id int) error
	// Evaluate compares the spending of the current period with every budget of that kind.
	Evaluate(ctx context.Context, kind period.Kind) (Evaluation, error)
	// CheckThresholds records and dispatches the alerts reached by the budgets of category.
	CheckThresholds(ctx context.Context, userId int, category string) ([]Alert, error)
}

type BudgetServiceImpl struct {
	repo     BudgetRepo
	spending SpendingReader
	users    user.SettingsProvider
	notifier Notifier
	clock    utils.Clock
}

func NewBudgetServiceImpl(repo BudgetRepo, spending SpendingReader, users user.SettingsProvider, notifier Notifier, clock utils.Clock) *BudgetServiceImpl {
	return &BudgetServiceImpl{repo: repo, spending: spending, users: users, notifier: notifier, clock: clock}
}

func (s *BudgetServiceImpl) Create(ctx context.Context, budget Budget) (Budget, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if budget.Currency == "" {
		budget.Currency = currentUser.Settings.Currency
	}
	budget, err = normalize(budget)
	if err != nil {
		return Budget{}, err
	}
	budget.NotifiedThresholds = []int{}
	budget.ThresholdPeriodStart = nil

	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	id, err := s.repo.Store(ctx, currentUser.Id, budget)
	if errors.Is(err, errDuplicate) {
		return Budget{}, conflict(budget)
	}
	if err != nil {
		return Budget{}, err
	}
	budget.Id = id
	budget.UserId = currentUser.Id
	return budget, nil
}

func (s *BudgetServiceImpl) GetAll(ctx context.Context, kind period.Kind) ([]Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.GetAll(ctx, userId, kind)
}

func (s *BudgetServiceImpl) Update(ctx context.Context, id int, patch BudgetPatch) (Budget, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	var updated Budget
	err = s.repo.WithTransaction(ctx, func(repo BudgetRepo) error {
		budget, err := repo.Get(ctx, userId, id)
		if err != nil {
			return err
		}
		category, kind := budget.Category, budget.Period
		if patch.Category != nil {
			budget.Category = *patch.Category
		}
		if patch.BudgetValue != nil {
			budget.BudgetValue = *patch.BudgetValue
		}
		if patch.Currency != nil {
			budget.Currency = *patch.Currency
		}
		if patch.Period != nil {
			budget.Period = *patch.Period
		}
		if budget, err = normalize(budget); err != nil {
			return err
		}
		// alerts recorded for another category or period no longer apply
		if !strings.EqualFold(category, budget.Category) || kind != budget.Period {
			budget.NotifiedThresholds = []int{}
			budget.ThresholdPeriodStart = nil
		}
		updated, err = repo.Update(ctx, userId, budget)
		if errors.Is(err, errDuplicate) {
			return conflict(budget)
		}
		return err
	})
	if err != nil {
		return Budget{}, err
	}
	return updated, nil
}

func (s *BudgetServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Delete(ctx, userId, id)
}

func normalize(budget Budget) (Budget, error) {
	budget.Category = strings.TrimSpace(budget.Category)
	if budget.Category == "" {
		return Budget{}, ErrCategoryRequired
	}
	if budget.BudgetValue.LessThan(minimumBudgetValue) {
		return Budget{}, ErrInvalidBudgetValue
	}
	kind, err := period.ParseKind(string(budget.Period))
	if err != nil {
		return Budget{}, err
	}
	budget.Period = kind
	budget.Currency = strings.ToUpper(strings.TrimSpace(budget.Currency))
	return budget, nil
}

func conflict(budget Budget) error {
	return errs.Newf(errs.Conflict, "Budget for %s (%s) already exists", budget.Category, budget.Period)
}

func (s *BudgetServiceImpl) Evaluate(ctx context.Context, kind period.Kind) (Evaluation, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to get current user: %w", err)
	}
	rng := period.Current(kind, s.clock.Now(), currentUser.Settings.MonthStartDate)
	evaluation := Evaluation{
		Period:          kind,
		Range:           rng,
		TotalBudget:     decimal.Zero,
		TotalSpent:      decimal.Zero,
		TotalPercentage: decimal.Zero,
		Budgets:         []BudgetSpending{},
	}

	budgets, err := s.GetAll(ctx, kind)
	if err != nil {
		return Evaluation{}, err
	}
	if len(budgets) == 0 {
		return evaluation, nil
	}
	spent, err := s.spentByCategory(ctx, currentUser.Id, rng)
	if err != nil {
		return Evaluation{}, err
	}

	for _, b := range budgets {
		amountSpent := spent[strings.ToLower(b.Category)]
		evaluation.Budgets = append(evaluation.Budgets, BudgetSpending{
			Id:                 b.Id,
			Category:           b.Category,
			BudgetValue:        b.BudgetValue,
			AmountSpent:        amountSpent,
			SpendingPercentage: utils.Percentage(amountSpent, b.BudgetValue),
			Currency:           b.Currency,
		})
		evaluation.TotalBudget = evaluation.TotalBudget.Add(b.BudgetValue)
		evaluation.TotalSpent = evaluation.TotalSpent.Add(amountSpent)
	}
	evaluation.TotalBudget = utils.Round2(evaluation.TotalBudget)
	evaluation.TotalSpent = utils.Round2(evaluation.TotalSpent)
	evaluation.TotalPercentage = utils.Percentage(evaluation.TotalSpent, evaluation.TotalBudget)
	evaluation.TotalCategories = len(budgets)
	return evaluation, nil
}

// spentByCategory keys the period spending by lower-cased category.
func (s *BudgetServiceImpl) spentByCategory(ctx context.Context, userId int, rng period.Range) (map[string]decimal.Decimal, error) {
	totals, err := s.spending.SumByCategory(ctx, userId, ledger.Spending, rng)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]decimal.Decimal, len(totals))
	for _, total := range totals {
		spent[strings.ToLower(total.Category)] = total.Total
	}
	return spent, nil
}

func (s *BudgetServiceImpl) CheckThresholds(ctx context.Context, userId int, category string) ([]Alert, error) {
	owner, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var alerts []Alert
	err = s.repo.WithTransaction(ctx, func(repo BudgetRepo) error {
		alerts = nil
		budgets, err := repo.LockByCategory(ctx, userId, category)
		if err != nil {
			return err
		}
		for _, b := range budgets {
			rng := period.Current(b.Period, now, owner.Settings.MonthStartDate)
			spent, err := s.spentByCategory(ctx, userId, rng)
			if err != nil {
				return err
			}
			amountSpent := spent[strings.ToLower(b.Category)]
			percentage := utils.Percentage(amountSpent, b.BudgetValue)

			fired, updated := advanceThresholds(b, rng.Start, percentage)
			if len(fired) == 0 && b.ThresholdPeriodStart != nil && b.ThresholdPeriodStart.Equal(rng.Start) {
				continue
			}
			if err := repo.UpdateThresholds(ctx, userId, b.Id, updated.NotifiedThresholds, rng.Start); err != nil {
				return err
			}
			for _, threshold := range fired {
				alerts = append(alerts, Alert{
					BudgetId:   b.Id,
					UserId:     userId,
					Category:   b.Category,
					Threshold:  threshold,
					Percentage: percentage,
					Spent:      amountSpent,
					Limit:      b.BudgetValue,
					Currency:   b.Currency,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// thresholds are recorded before dispatch, so a failed delivery is not retried
	for _, alert := range alerts {
		s.dispatch(ctx, alert)
	}
	return alerts, nil
}

func (s *BudgetServiceImpl) dispatch(ctx context.Context, alert Alert) {
	title, body := alertMessage(alert)
	data := map[string]string{
		"notifType": AlertNotificationType,
		"budgetId":  strconv.Itoa(alert.BudgetId),
		"category":  alert.Category,
		"threshold": strconv.Itoa(alert.Threshold),
		"route":     "/budget",
	}
	if err := s.notifier.Notify(ctx, alert.UserId, title, body, data); err != nil {
		log.Errorf("failed to dispatch %d%% alert for budget %d: %v", alert.Threshold, alert.BudgetId, err)
	}
}

func alertMessage(alert Alert) (string, string) {
	spent := alert.Spent.StringFixed(2) + " " + alert.Currency
	limit := alert.Limit.StringFixed(2) + " " + alert.Currency
	if alert.Threshold >= 100 {
		return "Budget exceeded", fmt.Sprintf("You have exceeded your %s budget: %s spent of %s.", alert.Category, spent, limit)
	}
	return "Budget alert", fmt.Sprintf("You have used %d%% of your %s budget: %s spent of %s.", alert.Threshold, alert.Category, spent, limit)
}

// Register runs the threshold check after every committed spending posting.
func (s *BudgetServiceImpl) Register(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.EntryPostedType, func(e event_bus.EventT[event_bus.EntryPosted]) error {
		if e.Data.Kind != string(ledger.Spending) {
			return nil
		}
		alerts, err := s.CheckThresholds(e.Context(), e.Data.UserId, e.Data.Category)
		if err != nil {
			log.Errorf("budget threshold check failed for user %d: %v", e.Data.UserId, err)
			return err
		}
		log.Debugf("budget threshold check for user %d fired %d alert(s)", e.Data.UserId, len(alerts))
		return nil
	})
}
