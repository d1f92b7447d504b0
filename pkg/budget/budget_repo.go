package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/database"
	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/pkg/period"
	log "github.com/sirupsen/logrus"
)

var ErrBudgetNotFound = errs.New(errs.NotFound, "Budget not found")

// errDuplicate is replaced by a Conflict naming the category in the service.
var errDuplicate = errors.New("duplicate budget")

type BudgetRepo interface {
	WithTransaction(ctx context.Context, fn func(repo BudgetRepo) error) error
	Store(ctx context.Context, userId int, budget Budget) (int, error)
	Get(ctx context.Context, userId int, id int) (Budget, error)
	// GetAll returns the budgets of one period kind, or of every kind when kind is empty.
	GetAll(ctx context.Context, userId int, kind period.Kind) ([]Budget, error)
	// LockByCategory returns the budgets whose category matches case-insensitively and
	// locks them until the transaction ends.
	LockByCategory(ctx context.Context, userId int, category string) ([]Budget, error)
	Update(ctx context.Context, userId int, budget Budget) (Budget, error)
	UpdateThresholds(ctx context.Context, userId int, id int, thresholds []int, periodStart time.Time) error
	Delete(ctx context.Context, userId int, id int) error
}

type BudgetRepoImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewBudgetRepo(db *pgxpool.Pool) *BudgetRepoImpl {
	return &BudgetRepoImpl{db: db}
}

func (r *BudgetRepoImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *BudgetRepoImpl) WithTransaction(ctx context.Context, fn func(repo BudgetRepo) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&BudgetRepoImpl{db: r.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const budgetColumns = `id, user_id, category, budget_value, currency, period, notified_thresholds, threshold_period_start`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	var periodStart *time.Time
	err := row.Scan(&b.Id, &b.UserId, &b.Category, &b.BudgetValue, &b.Currency, &b.Period, &b.NotifiedThresholds, &periodStart)
	if periodStart != nil {
		utc := periodStart.UTC()
		b.ThresholdPeriodStart = &utc
	}
	return b, err
}

func nonNil(thresholds []int) []int {
	if thresholds == nil {
		return []int{}
	}
	return thresholds
}

func (r *BudgetRepoImpl) Store(ctx context.Context, userId int, budget Budget) (int, error) {
	query := `INSERT INTO budget (user_id, category, budget_value, currency, period, notified_thresholds, threshold_period_start)
			  VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var id int
	err := r.getQueryer().QueryRow(ctx, query,
		userId,
		budget.Category,
		budget.BudgetValue,
		budget.Currency,
		budget.Period,
		nonNil(budget.NotifiedThresholds),
		budget.ThresholdPeriodStart,
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		return 0, errDuplicate
	}
	if err != nil {
		err := fmt.Errorf("could not store budget: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *BudgetRepoImpl) Get(ctx context.Context, userId int, id int) (Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budget WHERE id = $1 AND user_id = $2`
	budget, err := scanBudget(r.getQueryer().QueryRow(ctx, query, id, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	if err != nil {
		log.Errorf("failed to get budget: %v", err)
		return Budget{}, err
	}
	return budget, nil
}

func (r *BudgetRepoImpl) GetAll(ctx context.Context, userId int, kind period.Kind) ([]Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budget WHERE user_id = $1 AND ($2 = '' OR period = $2) ORDER BY id`
	return r.list(ctx, query, userId, string(kind))
}

func (r *BudgetRepoImpl) LockByCategory(ctx context.Context, userId int, category string) ([]Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budget WHERE user_id = $1 AND lower(category) = lower($2) ORDER BY id FOR UPDATE`
	return r.list(ctx, query, userId, category)
}

func (r *BudgetRepoImpl) list(ctx context.Context, query string, args ...any) ([]Budget, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	budgets := []Budget{}
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning budget: %w", err)
		}
		budgets = append(budgets, budget)
	}
	return budgets, rows.Err()
}

func (r *BudgetRepoImpl) Update(ctx context.Context, userId int, budget Budget) (Budget, error) {
	query := `UPDATE budget
			  SET category = $1, budget_value = $2, currency = $3, period = $4,
			      notified_thresholds = $5, threshold_period_start = $6
			  WHERE id = $7 AND user_id = $8
			  RETURNING ` + budgetColumns
	updated, err := scanBudget(r.getQueryer().QueryRow(ctx, query,
		budget.Category,
		budget.BudgetValue,
		budget.Currency,
		budget.Period,
		nonNil(budget.NotifiedThresholds),
		budget.ThresholdPeriodStart,
		budget.Id,
		userId,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	if database.IsUniqueViolation(err) {
		return Budget{}, errDuplicate
	}
	if err != nil {
		log.Errorf("failed to update budget: %v", err)
		return Budget{}, err
	}
	return updated, nil
}

func (r *BudgetRepoImpl) UpdateThresholds(ctx context.Context, userId int, id int, thresholds []int, periodStart time.Time) error {
	query := `UPDATE budget SET notified_thresholds = $1, threshold_period_start = $2 WHERE id = $3 AND user_id = $4`
	tag, err := r.getQueryer().Exec(ctx, query, nonNil(thresholds), periodStart, id, userId)
	if err != nil {
		log.Errorf("failed to update budget thresholds: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func (r *BudgetRepoImpl) Delete(ctx context.Context, userId int, id int) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM budget WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete budget: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}
