package debt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	maxNameLength  = 100
	maxNotesLength = 500
)

var ErrNameRequired = errs.New(errs.InvalidInput, "Name is required")
var ErrNameTooLong = errs.New(errs.InvalidInput, "Name cannot exceed 100 characters")
var ErrCounterpartyTooLong = errs.New(errs.InvalidInput, "Counterparty name cannot exceed 100 characters")
var ErrNotesTooLong = errs.New(errs.InvalidInput, "Notes cannot exceed 500 characters")
var ErrInvalidAmount = errs.New(errs.InvalidInput, "Amount must be greater than 0")
var ErrNegativePaid = errs.New(errs.InvalidInput, "Paid amount cannot be negative")
var ErrPaidExceedsAmount = errs.New(errs.InvalidInput, "Paid amount cannot exceed the debt amount")
var ErrDatesOutOfOrder = errs.New(errs.InvalidInput, "Debt date cannot be after payoff date")

var minimumAmount = decimal.RequireFromString("0.01")

type DebtService interface {
	Create(ctx context.Context, debt Debt) (Debt, error)
	Get(ctx context.Context, id int) (Debt, error)
	List(ctx context.Context, direction Direction) (Overview, error)
	// Update changes the descriptive fields and the amount. Payments only move through
	// AddPayment and MarkPaid.
	Update(ctx context.Context, id int, patch DebtPatch) (Debt, error)
	Delete(ctx context.Context, id int) error
	AddPayment(ctx context.Context, id int, amount decimal.Decimal) (Debt, error)
	MarkPaid(ctx context.Context, id int) (Debt, error)
}

type DebtServiceImpl struct {
	repo  DebtRepo
	clock utils.Clock
}

func NewDebtServiceImpl(repo DebtRepo, clock utils.Clock) *DebtServiceImpl {
	return &DebtServiceImpl{repo: repo, clock: clock}
}

func (s *DebtServiceImpl) Create(ctx context.Context, debt Debt) (Debt, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Debt{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if debt.Direction, err = ParseDirection(string(debt.Direction)); err != nil {
		return Debt{}, err
	}
	if debt.Currency == "" {
		debt.Currency = currentUser.Settings.Currency
	}
	if debt, err = normalize(debt); err != nil {
		return Debt{}, err
	}
	debt.CreatedAt = s.clock.Now()

	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Store(ctx, currentUser.Id, debt)
}

// normalize validates the debt and derives its status from the paid amount.
func normalize(debt Debt) (Debt, error) {
	debt.Name = strings.TrimSpace(debt.Name)
	debt.Counterparty = strings.TrimSpace(debt.Counterparty)
	debt.Notes = strings.TrimSpace(debt.Notes)
	debt.Currency = strings.ToUpper(strings.TrimSpace(debt.Currency))
	switch {
	case debt.Name == "":
		return Debt{}, ErrNameRequired
	case utf8.RuneCountInString(debt.Name) > maxNameLength:
		return Debt{}, ErrNameTooLong
	case utf8.RuneCountInString(debt.Counterparty) > maxNameLength:
		return Debt{}, ErrCounterpartyTooLong
	case utf8.RuneCountInString(debt.Notes) > maxNotesLength:
		return Debt{}, ErrNotesTooLong
	case debt.Amount.LessThan(minimumAmount):
		return Debt{}, ErrInvalidAmount
	case debt.PaidAmount.IsNegative():
		return Debt{}, ErrNegativePaid
	case debt.PaidAmount.GreaterThan(debt.Amount):
		return Debt{}, ErrPaidExceedsAmount
	case debt.DebtDate != nil && debt.PayoffDate != nil && debt.DebtDate.After(*debt.PayoffDate):
		return Debt{}, ErrDatesOutOfOrder
	}

	debt.Status = Unpaid
	if debt.PaidAmount.Equal(debt.Amount) {
		debt.Status = Paid
	}
	return debt, nil
}

func (s *DebtServiceImpl) Get(ctx context.Context, id int) (Debt, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Debt{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Get(ctx, userId, id)
}

func (s *DebtServiceImpl) List(ctx context.Context, direction Direction) (Overview, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if direction, err = ParseDirection(string(direction)); err != nil {
		return Overview{}, err
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	debts, err := s.repo.GetAll(ctx, userId, direction)
	if err != nil {
		return Overview{}, err
	}

	overview := Overview{Direction: direction, Debts: debts, TotalLeft: decimal.Zero, Total: len(debts)}
	for _, debt := range debts {
		overview.TotalLeft = overview.TotalLeft.Add(debt.AmountLeft())
		if debt.Status == Paid {
			overview.Settled++
		}
	}
	return overview, nil
}

func (s *DebtServiceImpl) Update(ctx context.Context, id int, patch DebtPatch) (Debt, error) {
	return s.modify(ctx, id, func(debt Debt) (Debt, error) {
		if patch.Name != nil {
			debt.Name = *patch.Name
		}
		if patch.Counterparty != nil {
			debt.Counterparty = *patch.Counterparty
		}
		if patch.Amount != nil {
			debt.Amount = *patch.Amount
		}
		if patch.Currency != nil {
			debt.Currency = *patch.Currency
		}
		if patch.Icon != nil {
			debt.Icon = *patch.Icon
		}
		if patch.Color != nil {
			debt.Color = *patch.Color
		}
		if patch.DebtDate != nil {
			debt.DebtDate = patch.DebtDate
		}
		if patch.PayoffDate != nil {
			debt.PayoffDate = patch.PayoffDate
		}
		if patch.Notes != nil {
			debt.Notes = *patch.Notes
		}
		return normalize(debt)
	})
}

func (s *DebtServiceImpl) Delete(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Delete(ctx, userId, id)
}

func (s *DebtServiceImpl) AddPayment(ctx context.Context, id int, amount decimal.Decimal) (Debt, error) {
	if !amount.IsPositive() {
		return Debt{}, ErrInvalidAmount
	}
	return s.modify(ctx, id, func(debt Debt) (Debt, error) {
		if debt.Status == Paid {
			return Debt{}, settledError(debt.Direction)
		}
		paid := debt.PaidAmount.Add(amount)
		if paid.GreaterThan(debt.Amount) {
			return Debt{}, exceededError(debt, amount)
		}
		debt.PaidAmount = paid
		if paid.Equal(debt.Amount) {
			log.Debugf("debt %d is settled", debt.Id)
			debt.Status = Paid
		}
		return debt, nil
	})
}

func (s *DebtServiceImpl) MarkPaid(ctx context.Context, id int) (Debt, error) {
	return s.modify(ctx, id, func(debt Debt) (Debt, error) {
		if debt.Status == Paid {
			return Debt{}, settledError(debt.Direction)
		}
		debt.Status = Paid
		debt.PaidAmount = debt.Amount
		return debt, nil
	})
}

func settledError(direction Direction) error {
	if direction == Lent {
		return errs.New(errs.InvalidInput, "This lent amount is already fully collected")
	}
	return errs.New(errs.InvalidInput, "This debt is already fully paid")
}

func exceededError(debt Debt, amount decimal.Decimal) error {
	if debt.Direction == Lent {
		return errs.Newf(errs.InvalidInput,
			"Adding %s would exceed the lent amount. Maximum you can collect: %s", amount, debt.AmountLeft())
	}
	return errs.Newf(errs.InvalidInput,
		"Adding %s would exceed the debt amount. Maximum you can pay: %s", amount, debt.AmountLeft())
}

// modify applies change to the locked debt of the current user and stores the result.
func (s *DebtServiceImpl) modify(ctx context.Context, id int, change func(debt Debt) (Debt, error)) (Debt, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Debt{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	var updated Debt
	err = s.repo.WithTransaction(ctx, func(repo DebtRepo) error {
		debt, err := repo.Lock(ctx, userId, id)
		if err != nil {
			return err
		}
		debt, err = change(debt)
		if err != nil {
			return err
		}
		updated, err = repo.Update(ctx, userId, debt)
		return err
	})
	if err != nil {
		return Debt{}, err
	}
	return updated, nil
}
