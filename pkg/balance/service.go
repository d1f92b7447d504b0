package balance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/event_bus"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrInsufficientFunds = errs.New(errs.InsufficientFunds, "Insufficient balance in account")
var ErrInvalidAmount = errs.New(errs.InvalidInput, "Amount must be greater than 0")
var ErrNegativeAmount = errs.New(errs.InvalidInput, "Amount cannot be negative")
var ErrInvalidTime = errs.New(errs.InvalidInput, "Time must be in HH:MM format")
var ErrCategoryRequired = errs.New(errs.InvalidInput, "Category is required")

const maxNameLength = 100
const maxNotesLength = 500

var minimumAmount = decimal.RequireFromString("0.01")
var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

type Service interface {
	CreateAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context, id int) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateAccount(ctx context.Context, id int, patch AccountPatch) (Account, error)
	DeleteAccount(ctx context.Context, id int) error
	Totals(ctx context.Context) (Totals, error)
	// CurrentBalance is the sum of the stored amounts of all accounts of the user.
	CurrentBalance(ctx context.Context, userId int) (decimal.Decimal, error)
	AddIncome(ctx context.Context, accountId int, input EntryInput) (Posting, error)
	AddSpending(ctx context.Context, accountId int, input EntryInput) (Posting, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus, clock: clock}
}

func (s *ServiceImpl) CreateAccount(ctx context.Context, account Account) (Account, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	account.Name = strings.TrimSpace(account.Name)
	if account.Currency == "" {
		account.Currency = currentUser.Settings.Currency
	}
	if err := validateAccount(account); err != nil {
		return Account{}, err
	}
	account.LastUpdated = s.clock.Now()

	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.CreateAccount(ctx, currentUser.Id, account)
}

func (s *ServiceImpl) GetAccount(ctx context.Context, id int) (Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.GetAccount(ctx, userId, id)
}

func (s *ServiceImpl) ListAccounts(ctx context.Context) ([]Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.ListAccounts(ctx, userId)
}

func (s *ServiceImpl) UpdateAccount(ctx context.Context, id int, patch AccountPatch) (Account, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	var updated Account
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		account, err := repo.LockAccount(ctx, userId, id)
		if err != nil {
			return err
		}
		applyPatch(&account, patch)
		if err := validateAccount(account); err != nil {
			return err
		}
		account.LastUpdated = s.clock.Now()
		updated, err = repo.UpdateAccount(ctx, userId, account)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

func applyPatch(account *Account, patch AccountPatch) {
	if patch.Name != nil {
		account.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Amount != nil {
		account.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		account.Currency = *patch.Currency
	}
	if patch.CreditLimit != nil {
		account.CreditLimit = patch.CreditLimit
	}
	if patch.AccountType != nil {
		account.AccountType = *patch.AccountType
	}
	if patch.Icon != nil {
		account.Icon = *patch.Icon
	}
	if patch.Color != nil {
		account.Color = *patch.Color
	}
	if patch.Notes != nil {
		account.Notes = *patch.Notes
	}
}

func validateAccount(account Account) error {
	if account.Name == "" || utf8.RuneCountInString(account.Name) > maxNameLength {
		return errs.Newf(errs.InvalidInput, "Name must be between 1 and %d characters", maxNameLength)
	}
	if account.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(account.Currency) == "" {
		return errs.New(errs.InvalidInput, "Currency is required")
	}
	if utf8.RuneCountInString(account.Notes) > maxNotesLength {
		return errs.Newf(errs.InvalidInput, "Notes must be at most %d characters", maxNotesLength)
	}
	return nil
}

func (s *ServiceImpl) DeleteAccount(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.DeleteAccount(ctx, userId, id)
}

func (s *ServiceImpl) Totals(ctx context.Context) (Totals, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return Totals{}, err
	}
	total := decimal.Zero
	for _, account := range accounts {
		total = total.Add(account.Amount)
	}
	return Totals{Accounts: accounts, TotalBalance: utils.Round2(total), TotalAccounts: len(accounts)}, nil
}

func (s *ServiceImpl) CurrentBalance(ctx context.Context, userId int) (decimal.Decimal, error) {
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	total, err := s.repo.TotalBalance(ctx, userId)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.Round2(total), nil
}

func (s *ServiceImpl) AddIncome(ctx context.Context, accountId int, input EntryInput) (Posting, error) {
	return s.post(ctx, accountId, ledger.Income, input)
}

func (s *ServiceImpl) AddSpending(ctx context.Context, accountId int, input EntryInput) (Posting, error) {
	input.FillForAllYear = false
	return s.post(ctx, accountId, ledger.Spending, input)
}

// post writes the entry and the balance change in one transaction. The posted event is
// published only after commit and is not awaited.
func (s *ServiceImpl) post(ctx context.Context, accountId int, kind ledger.Kind, input EntryInput) (Posting, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Posting{}, fmt.Errorf("failed to get current user: %w", err)
	}
	input, err = s.normalizeEntry(input)
	if err != nil {
		return Posting{}, err
	}

	txCtx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	var posting Posting
	err = s.repo.WithTransaction(txCtx, func(repo Repository) error {
		account, err := repo.LockAccount(txCtx, userId, accountId)
		if err != nil {
			return err
		}
		delta := input.Amount
		if kind == ledger.Spending {
			if input.Amount.GreaterThan(account.Amount) {
				log.Debugf("rejecting spending of %s on account %d with balance %s", input.Amount, accountId, account.Amount)
				return ErrInsufficientFunds
			}
			delta = input.Amount.Neg()
		}

		entry := ledger.Entry{
			UserId:         userId,
			AccountId:      accountId,
			Kind:           kind,
			Name:           input.Name,
			Category:       input.Category,
			Amount:         input.Amount,
			Currency:       input.Currency,
			Date:           input.Date,
			Time:           input.Time,
			FillForAllYear: input.FillForAllYear,
		}
		if entry.Currency == "" {
			entry.Currency = account.Currency
		}
		entry.Id, err = repo.InsertEntry(txCtx, entry)
		if err != nil {
			return err
		}
		updated, err := repo.AdjustBalance(txCtx, userId, accountId, delta, s.clock.Now())
		if err != nil {
			return err
		}
		posting = Posting{Entry: entry, Account: updated}
		return nil
	})
	if err != nil {
		return Posting{}, err
	}

	s.eventBus.PublishAsync(event_bus.NewEvent(ctx, event_bus.EntryPostedType, event_bus.EntryPosted{
		EntryId:      posting.Entry.Id,
		UserId:       userId,
		AccountId:    accountId,
		Kind:         string(kind),
		Name:         posting.Entry.Name,
		Category:     posting.Entry.Category,
		Amount:       posting.Entry.Amount,
		Currency:     posting.Entry.Currency,
		Date:         posting.Entry.Date,
		BalanceAfter: posting.Account.Amount,
	}))
	return posting, nil
}

func (s *ServiceImpl) normalizeEntry(input EntryInput) (EntryInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.Time = strings.TrimSpace(input.Time)
	if input.Name == "" || utf8.RuneCountInString(input.Name) > maxNameLength {
		return EntryInput{}, errs.Newf(errs.InvalidInput, "Name must be between 1 and %d characters", maxNameLength)
	}
	if input.Category == "" {
		return EntryInput{}, ErrCategoryRequired
	}
	if input.Amount.LessThan(minimumAmount) {
		return EntryInput{}, ErrInvalidAmount
	}
	if !input.Amount.Equal(input.Amount.Round(2)) {
		return EntryInput{}, errs.New(errs.InvalidInput, "Amount must have at most 2 decimal places")
	}
	if input.Time != "" && !timePattern.MatchString(input.Time) {
		return EntryInput{}, ErrInvalidTime
	}
	if input.Date.IsZero() {
		input.Date = s.clock.Now()
	}
	input.Date = input.Date.UTC()
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	return input, nil
}
