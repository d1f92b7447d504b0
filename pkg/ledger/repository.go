package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Repository is the read side of the ledger. Ranges are queried half-open:
// entry_date >= start AND entry_date < end + 1ms.
type Repository interface {
	// CategoryTotals groups by the exact stored category, ordered by first use.
	CategoryTotals(ctx context.Context, userId int, kind Kind, r period.Range) ([]CategoryTotal, error)
	Total(ctx context.Context, userId int, kind Kind, r period.Range) (decimal.Decimal, error)
	// DayTotals returns only the UTC days that have entries.
	DayTotals(ctx context.Context, userId int, kind Kind, r period.Range) ([]DayTotal, error)
	// MonthTotals returns only the calendar months of year that have entries.
	MonthTotals(ctx context.Context, userId int, kind Kind, year int) ([]MonthTotal, error)
	Entries(ctx context.Context, userId int, kind Kind, r period.Range) ([]Entry, error)
	// ActiveUsers returns the subset of userIds with at least one entry of any kind in r.
	ActiveUsers(ctx context.Context, userIds []int, r period.Range) ([]int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CategoryTotals(ctx context.Context, userId int, kind Kind, rng period.Range) ([]CategoryTotal, error) {
	query := `SELECT category, SUM(amount), COUNT(*)
			  FROM ledger_entry
			  WHERE user_id = $1 AND kind = $2 AND entry_date >= $3 AND entry_date < $4
			  GROUP BY category
			  ORDER BY MIN(entry_date), category`
	rows, err := r.db.Query(ctx, query, userId, kind, rng.Start, rng.EndExclusive())
	if err != nil {
		err := fmt.Errorf("could not query category totals: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var total CategoryTotal
		if err := rows.Scan(&total.Category, &total.Total, &total.Count); err != nil {
			return nil, fmt.Errorf("error scanning category total: %w", err)
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func (r *RepositoryImpl) Total(ctx context.Context, userId int, kind Kind, rng period.Range) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)
			  FROM ledger_entry
			  WHERE user_id = $1 AND kind = $2 AND entry_date >= $3 AND entry_date < $4`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, userId, kind, rng.Start, rng.EndExclusive()).Scan(&total); err != nil {
		err := fmt.Errorf("could not query total: %w", err)
		log.Error(err)
		return decimal.Zero, err
	}
	return total, nil
}

func (r *RepositoryImpl) DayTotals(ctx context.Context, userId int, kind Kind, rng period.Range) ([]DayTotal, error) {
	query := `SELECT (entry_date AT TIME ZONE 'UTC')::date AS day, SUM(amount)
			  FROM ledger_entry
			  WHERE user_id = $1 AND kind = $2 AND entry_date >= $3 AND entry_date < $4
			  GROUP BY day
			  ORDER BY day`
	rows, err := r.db.Query(ctx, query, userId, kind, rng.Start, rng.EndExclusive())
	if err != nil {
		err := fmt.Errorf("could not query day totals: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var totals []DayTotal
	for rows.Next() {
		var total DayTotal
		if err := rows.Scan(&total.Day, &total.Total); err != nil {
			return nil, fmt.Errorf("error scanning day total: %w", err)
		}
		total.Day = time.Date(total.Day.Year(), total.Day.Month(), total.Day.Day(), 0, 0, 0, 0, time.UTC)
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func (r *RepositoryImpl) MonthTotals(ctx context.Context, userId int, kind Kind, year int) ([]MonthTotal, error) {
	yearRange := period.Range{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond),
	}
	query := `SELECT EXTRACT(MONTH FROM entry_date AT TIME ZONE 'UTC')::int AS month, SUM(amount)
			  FROM ledger_entry
			  WHERE user_id = $1 AND kind = $2 AND entry_date >= $3 AND entry_date < $4
			  GROUP BY month
			  ORDER BY month`
	rows, err := r.db.Query(ctx, query, userId, kind, yearRange.Start, yearRange.EndExclusive())
	if err != nil {
		err := fmt.Errorf("could not query month totals: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var month int
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("error scanning month total: %w", err)
		}
		totals = append(totals, MonthTotal{Month: time.Month(month), Total: total})
	}
	return totals, rows.Err()
}

func (r *RepositoryImpl) Entries(ctx context.Context, userId int, kind Kind, rng period.Range) ([]Entry, error) {
	query := `SELECT id, user_id, account_id, kind, name, category, amount, currency, entry_date, entry_time, fill_for_all_year
			  FROM ledger_entry
			  WHERE user_id = $1 AND kind = $2 AND entry_date >= $3 AND entry_date < $4
			  ORDER BY entry_date DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userId, kind, rng.Start, rng.EndExclusive())
	if err != nil {
		err := fmt.Errorf("could not query entries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Id, &e.UserId, &e.AccountId, &e.Kind, &e.Name, &e.Category, &e.Amount,
			&e.Currency, &e.Date, &e.Time, &e.FillForAllYear); err != nil {
			return nil, fmt.Errorf("error scanning entry: %w", err)
		}
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *RepositoryImpl) ActiveUsers(ctx context.Context, userIds []int, rng period.Range) ([]int, error) {
	if len(userIds) == 0 {
		return nil, nil
	}
	query := `SELECT DISTINCT user_id
			  FROM ledger_entry
			  WHERE user_id = ANY($1) AND entry_date >= $2 AND entry_date < $3`
	rows, err := r.db.Query(ctx, query, userIds, rng.Start, rng.EndExclusive())
	if err != nil {
		err := fmt.Errorf("could not query active users: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var active []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active = append(active, id)
	}
	return active, rows.Err()
}
