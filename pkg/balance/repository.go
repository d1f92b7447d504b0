package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrAccountNotFound = errs.New(errs.NotFound, "Account not found")

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	CreateAccount(ctx context.Context, userId int, account Account) (Account, error)
	GetAccount(ctx context.Context, userId int, id int) (Account, error)
	ListAccounts(ctx context.Context, userId int) ([]Account, error)
	UpdateAccount(ctx context.Context, userId int, account Account) (Account, error)
	DeleteAccount(ctx context.Context, userId int, id int) error
	// TotalBalance sums the stored amount of every account of the user.
	TotalBalance(ctx context.Context, userId int) (decimal.Decimal, error)
	// LockAccount reads the account and holds a row lock until the transaction ends.
	LockAccount(ctx context.Context, userId int, id int) (Account, error)
	InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error)
	// AdjustBalance adds delta to the account amount and returns the updated account.
	AdjustBalance(ctx context.Context, userId int, id int, delta decimal.Decimal, at time.Time) (Account, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op when already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const accountColumns = `id, user_id, name, amount, currency, credit_limit, account_type, icon, color, notes, last_updated`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var creditLimit decimal.NullDecimal
	err := row.Scan(&a.Id, &a.UserId, &a.Name, &a.Amount, &a.Currency, &creditLimit,
		&a.AccountType, &a.Icon, &a.Color, &a.Notes, &a.LastUpdated)
	if creditLimit.Valid {
		a.CreditLimit = &creditLimit.Decimal
	}
	return a, err
}

func (r *RepositoryImpl) CreateAccount(ctx context.Context, userId int, account Account) (Account, error) {
	query := `INSERT INTO account (user_id, name, amount, currency, credit_limit, account_type, icon, color, notes, last_updated)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + accountColumns
	created, err := scanAccount(r.getQueryer().QueryRow(ctx, query,
		userId,
		account.Name,
		account.Amount,
		account.Currency,
		account.CreditLimit,
		account.AccountType,
		account.Icon,
		account.Color,
		account.Notes,
		account.LastUpdated,
	))
	if err != nil {
		err := fmt.Errorf("could not create account: %w", err)
		log.Error(err)
		return Account{}, err
	}
	return created, nil
}

func (r *RepositoryImpl) GetAccount(ctx context.Context, userId int, id int) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userId)
}

func (r *RepositoryImpl) LockAccount(ctx context.Context, userId int, id int) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, id, userId)
}

func (r *RepositoryImpl) getOne(ctx context.Context, query string, args ...any) (Account, error) {
	account, err := scanAccount(r.getQueryer().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		log.Errorf("failed to get account: %v", err)
		return Account{}, err
	}
	return account, nil
}

func (r *RepositoryImpl) ListAccounts(ctx context.Context, userId int) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE user_id = $1 ORDER BY id`
	rows, err := r.getQueryer().Query(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("could not query accounts: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *RepositoryImpl) UpdateAccount(ctx context.Context, userId int, account Account) (Account, error) {
	query := `UPDATE account
			  SET name = $1, amount = $2, currency = $3, credit_limit = $4, account_type = $5,
			      icon = $6, color = $7, notes = $8, last_updated = $9
			  WHERE id = $10 AND user_id = $11
			  RETURNING ` + accountColumns
	return r.getOne(ctx, query,
		account.Name,
		account.Amount,
		account.Currency,
		account.CreditLimit,
		account.AccountType,
		account.Icon,
		account.Color,
		account.Notes,
		account.LastUpdated,
		account.Id,
		userId,
	)
}

func (r *RepositoryImpl) DeleteAccount(ctx context.Context, userId int, id int) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM account WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete account: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *RepositoryImpl) TotalBalance(ctx context.Context, userId int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.getQueryer().QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM account WHERE user_id = $1`, userId).Scan(&total)
	if err != nil {
		err := fmt.Errorf("could not query total balance: %w", err)
		log.Error(err)
		return decimal.Zero, err
	}
	return total, nil
}

func (r *RepositoryImpl) InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error) {
	query := `INSERT INTO ledger_entry (user_id, account_id, kind, name, category, amount, currency, entry_date, entry_time, fill_for_all_year)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	var id int64
	err := r.getQueryer().QueryRow(ctx, query,
		entry.UserId,
		entry.AccountId,
		entry.Kind,
		entry.Name,
		entry.Category,
		entry.Amount,
		entry.Currency,
		entry.Date,
		entry.Time,
		entry.FillForAllYear,
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not insert ledger entry: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) AdjustBalance(ctx context.Context, userId int, id int, delta decimal.Decimal, at time.Time) (Account, error) {
	query := `UPDATE account SET amount = amount + $1, last_updated = $2
			  WHERE id = $3 AND user_id = $4
			  RETURNING ` + accountColumns
	return r.getOne(ctx, query, delta, at, id, userId)
}
