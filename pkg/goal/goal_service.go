package goal

import (
	"context"
	"fmt"
	"strings"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrNameRequired = errs.New(errs.InvalidInput, "Goal name is required")
var ErrCategoryRequired = errs.New(errs.InvalidInput, "Category is required")
var ErrInvalidTarget = errs.New(errs.InvalidInput, "Target amount must be greater than 0")
var ErrNegativeAccumulated = errs.New(errs.InvalidInput, "Accumulated amount cannot be negative")
var ErrInvalidAmount = errs.New(errs.InvalidInput, "Amount must be greater than 0")
var ErrGoalCompleted = errs.New(errs.InvalidInput, "Cannot add progress to a completed goal")
var ErrAlreadyCompleted = errs.New(errs.InvalidInput, "Goal is already completed")

var minimumTarget = decimal.RequireFromString("0.01")

type GoalService interface {
	Create(ctx context.Context, goal Goal) (Goal, error)
	Get(ctx context.Context, id int) (Goal, error)
	List(ctx context.Context) (Overview, error)
	// Update changes the descriptive fields and the target. Status and progress only move
	// through AddProgress and MarkComplete.
	Update(ctx context.Context, id int, patch GoalPatch) (Goal, error)
	Delete(ctx context.Context, id int) error
	AddProgress(ctx context.Context, id int, amount decimal.Decimal) (Goal, error)
	MarkComplete(ctx context.Context, id int) (Goal, error)
	Totals(ctx context.Context, userId int) (Totals, error)
}

type GoalServiceImpl struct {
	repo  GoalRepo
	clock utils.Clock
}

func NewGoalServiceImpl(repo GoalRepo, clock utils.Clock) *GoalServiceImpl {
	return &GoalServiceImpl{repo: repo, clock: clock}
}

func (s *GoalServiceImpl) Create(ctx context.Context, goal Goal) (Goal, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Goal{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if goal.Currency == "" {
		goal.Currency = currentUser.Settings.Currency
	}
	if goal, err = normalize(goal); err != nil {
		return Goal{}, err
	}
	if goal.AccumulatedAmount.IsNegative() {
		return Goal{}, ErrNegativeAccumulated
	}
	goal.Status = InProgress
	goal.CreatedAt = s.clock.Now()

	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Store(ctx, currentUser.Id, goal)
}

func normalize(goal Goal) (Goal, error) {
	goal.Name = strings.TrimSpace(goal.Name)
	goal.Category = strings.TrimSpace(goal.Category)
	goal.Currency = strings.ToUpper(strings.TrimSpace(goal.Currency))
	if goal.Name == "" {
		return Goal{}, ErrNameRequired
	}
	if goal.Category == "" {
		return Goal{}, ErrCategoryRequired
	}
	if goal.TargetAmount.LessThan(minimumTarget) {
		return Goal{}, ErrInvalidTarget
	}
	return goal, nil
}

func (s *GoalServiceImpl) Get(ctx context.Context, id int) (Goal, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Goal{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Get(ctx, userId, id)
}

func (s *GoalServiceImpl) List(ctx context.Context) (Overview, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	goals, err := s.repo.GetAll(ctx, userId)
	if err != nil {
		return Overview{}, err
	}

	overview := Overview{Goals: goals, TotalLeft: decimal.Zero, Total: len(goals)}
	for _, goal := range goals {
		overview.TotalLeft = overview.TotalLeft.Add(goal.AmountLeft())
		if goal.Status == Completed {
			overview.Completed++
		}
	}
	return overview, nil
}

func (s *GoalServiceImpl) Update(ctx context.Context, id int, patch GoalPatch) (Goal, error) {
	return s.modify(ctx, id, func(goal Goal) (Goal, error) {
		if patch.Name != nil {
			goal.Name = *patch.Name
		}
		if patch.TargetAmount != nil {
			goal.TargetAmount = *patch.TargetAmount
		}
		if patch.Currency != nil {
			goal.Currency = *patch.Currency
		}
		if patch.Category != nil {
			goal.Category = *patch.Category
		}
		if patch.Icon != nil {
			goal.Icon = *patch.Icon
		}
		if patch.Color != nil {
			goal.Color = *patch.Color
		}
		if patch.TargetDate != nil {
			goal.TargetDate = patch.TargetDate
		}
		if patch.Notes != nil {
			goal.Notes = *patch.Notes
		}
		return normalize(goal)
	})
}

func (s *GoalServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Delete(ctx, userId, id)
}

func (s *GoalServiceImpl) AddProgress(ctx context.Context, id int, amount decimal.Decimal) (Goal, error) {
	if !amount.IsPositive() {
		return Goal{}, ErrInvalidAmount
	}
	return s.modify(ctx, id, func(goal Goal) (Goal, error) {
		if goal.Status == Completed {
			return Goal{}, ErrGoalCompleted
		}
		accumulated := goal.AccumulatedAmount.Add(amount)
		if accumulated.GreaterThan(goal.TargetAmount) {
			return Goal{}, errs.Newf(errs.InvalidInput,
				"Adding %s would exceed the target amount. Maximum you can add: %s", amount, goal.AmountLeft())
		}
		goal.AccumulatedAmount = accumulated
		if accumulated.Equal(goal.TargetAmount) {
			log.Debugf("goal %d reached its target", goal.Id)
			goal.Status = Completed
		}
		return goal, nil
	})
}

func (s *GoalServiceImpl) MarkComplete(ctx context.Context, id int) (Goal, error) {
	return s.modify(ctx, id, func(goal Goal) (Goal, error) {
		if goal.Status == Completed {
			return Goal{}, ErrAlreadyCompleted
		}
		goal.Status = Completed
		goal.AccumulatedAmount = goal.TargetAmount
		return goal, nil
	})
}

// modify applies change to the locked goal of the current user and stores the result.
func (s *GoalServiceImpl) modify(ctx context.Context, id int, change func(goal Goal) (Goal, error)) (Goal, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Goal{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	var updated Goal
	err = s.repo.WithTransaction(ctx, func(repo GoalRepo) error {
		goal, err := repo.Lock(ctx, userId, id)
		if err != nil {
			return err
		}
		goal, err = change(goal)
		if err != nil {
			return err
		}
		updated, err = repo.Update(ctx, userId, goal)
		return err
	})
	if err != nil {
		return Goal{}, err
	}
	return updated, nil
}

func (s *GoalServiceImpl) Totals(ctx context.Context, userId int) (Totals, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Totals(ctx, userId)
}
