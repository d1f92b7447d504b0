package debt

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/errs"
	log "github.com/sirupsen/logrus"
)

var ErrDebtNotFound = errs.New(errs.NotFound, "debt not found")

type DebtRepo interface {
	WithTransaction(ctx context.Context, fn func(repo DebtRepo) error) error
	Store(ctx context.Context, userId int, debt Debt) (Debt, error)
	Get(ctx context.Context, userId int, id int) (Debt, error)
	// Lock reads the debt and holds a row lock until the transaction ends.
	Lock(ctx context.Context, userId int, id int) (Debt, error)
	GetAll(ctx context.Context, userId int, direction Direction) ([]Debt, error)
	Update(ctx context.Context, userId int, debt Debt) (Debt, error)
	Delete(ctx context.Context, userId int, id int) error
}

type DebtRepoImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewDebtRepo(db *pgxpool.Pool) *DebtRepoImpl {
	return &DebtRepoImpl{db: db}
}

func (r *DebtRepoImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *DebtRepoImpl) WithTransaction(ctx context.Context, fn func(repo DebtRepo) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&DebtRepoImpl{db: r.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const debtColumns = `id, user_id, direction, name, counterparty, amount, paid_amount, currency, status, icon, color,
	debt_date, payoff_date, notes, created_at`

func scanDebt(row pgx.Row) (Debt, error) {
	var d Debt
	err := row.Scan(&d.Id, &d.UserId, &d.Direction, &d.Name, &d.Counterparty, &d.Amount, &d.PaidAmount, &d.Currency,
		&d.Status, &d.Icon, &d.Color, &d.DebtDate, &d.PayoffDate, &d.Notes, &d.CreatedAt)
	return d, err
}

func (r *DebtRepoImpl) Store(ctx context.Context, userId int, debt Debt) (Debt, error) {
	query := `INSERT INTO debt (user_id, direction, name, counterparty, amount, paid_amount, currency, status, icon, color,
			  debt_date, payoff_date, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING ` + debtColumns
	stored, err := scanDebt(r.getQueryer().QueryRow(ctx, query,
		userId,
		debt.Direction,
		debt.Name,
		debt.Counterparty,
		debt.Amount,
		debt.PaidAmount,
		debt.Currency,
		debt.Status,
		debt.Icon,
		debt.Color,
		debt.DebtDate,
		debt.PayoffDate,
		debt.Notes,
	))
	if err != nil {
		log.Errorf("failed to store debt: %v", err)
		return Debt{}, err
	}
	return stored, nil
}

func (r *DebtRepoImpl) Get(ctx context.Context, userId int, id int) (Debt, error) {
	return r.getOne(ctx, `SELECT `+debtColumns+` FROM debt WHERE id = $1 AND user_id = $2`, id, userId)
}

func (r *DebtRepoImpl) Lock(ctx context.Context, userId int, id int) (Debt, error) {
	return r.getOne(ctx, `SELECT `+debtColumns+` FROM debt WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userId)
}

func (r *DebtRepoImpl) getOne(ctx context.Context, query string, args ...any) (Debt, error) {
	debt, err := scanDebt(r.getQueryer().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Debt{}, ErrDebtNotFound
	}
	if err != nil {
		log.Errorf("failed to get debt: %v", err)
		return Debt{}, err
	}
	return debt, nil
}

func (r *DebtRepoImpl) GetAll(ctx context.Context, userId int, direction Direction) ([]Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debt WHERE user_id = $1 AND direction = $2 ORDER BY created_at DESC, id DESC`
	rows, err := r.getQueryer().Query(ctx, query, userId, direction)
	if err != nil {
		return nil, fmt.Errorf("could not query debts: %w", err)
	}
	defer rows.Close()

	debts := []Debt{}
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning debt: %w", err)
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func (r *DebtRepoImpl) Update(ctx context.Context, userId int, debt Debt) (Debt, error) {
	query := `UPDATE debt SET name = $1, counterparty = $2, amount = $3, paid_amount = $4, currency = $5, status = $6,
			  icon = $7, color = $8, debt_date = $9, payoff_date = $10, notes = $11
			  WHERE id = $12 AND user_id = $13
			  RETURNING ` + debtColumns
	return r.getOne(ctx, query,
		debt.Name,
		debt.Counterparty,
		debt.Amount,
		debt.PaidAmount,
		debt.Currency,
		debt.Status,
		debt.Icon,
		debt.Color,
		debt.DebtDate,
		debt.PayoffDate,
		debt.Notes,
		debt.Id,
		userId,
	)
}

func (r *DebtRepoImpl) Delete(ctx context.Context, userId int, id int) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM debt WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete debt: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDebtNotFound
	}
	return nil
}
