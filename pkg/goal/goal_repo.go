package goal

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

var ErrGoalNotFound = errs.New(errs.NotFound, "goal not found")

type GoalRepo interface {
	WithTransaction(ctx context.Context, fn func(repo GoalRepo) error) error
	Store(ctx context.Context, userId int, goal Goal) (Goal, error)
	Get(ctx context.Context, userId int, id int) (Goal, error)
	// Lock reads the goal and holds a row lock until the transaction ends.
	Lock(ctx context.Context, userId int, id int) (Goal, error)
	GetAll(ctx context.Context, userId int) ([]Goal, error)
	Update(ctx context.Context, userId int, goal Goal) (Goal, error)
	Delete(ctx context.Context, userId int, id int) error
	Totals(ctx context.Context, userId int) (Totals, error)
}

type GoalRepoImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewGoalRepo(db *pgxpool.Pool) *GoalRepoImpl {
	return &GoalRepoImpl{db: db}
}

func (r *GoalRepoImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *GoalRepoImpl) WithTransaction(ctx context.Context, fn func(repo GoalRepo) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&GoalRepoImpl{db: r.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const goalColumns = `id, user_id, name, target_amount, accumulated_amount, currency, category, status, icon, color, target_date, notes, created_at`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.Id, &g.UserId, &g.Name, &g.TargetAmount, &g.AccumulatedAmount, &g.Currency, &g.Category,
		&g.Status, &g.Icon, &g.Color, &g.TargetDate, &g.Notes, &g.CreatedAt)
	return g, err
}

func (r *GoalRepoImpl) Store(ctx context.Context, userId int, goal Goal) (Goal, error) {
	query := `INSERT INTO goal (user_id, name, target_amount, accumulated_amount, currency, category, status, icon, color, target_date, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + goalColumns
	stored, err := scanGoal(r.getQueryer().QueryRow(ctx, query,
		userId,
		goal.Name,
		goal.TargetAmount,
		goal.AccumulatedAmount,
		goal.Currency,
		goal.Category,
		goal.Status,
		goal.Icon,
		goal.Color,
		goal.TargetDate,
		goal.Notes,
	))
	if err != nil {
		log.Errorf("failed to store goal: %v", err)
		return Goal{}, err
	}
	return stored, nil
}

func (r *GoalRepoImpl) Get(ctx context.Context, userId int, id int) (Goal, error) {
	return r.getOne(ctx, `SELECT `+goalColumns+` FROM goal WHERE id = $1 AND user_id = $2`, id, userId)
}

func (r *GoalRepoImpl) Lock(ctx context.Context, userId int, id int) (Goal, error) {
	return r.getOne(ctx, `SELECT `+goalColumns+` FROM goal WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userId)
}

func (r *GoalRepoImpl) getOne(ctx context.Context, query string, args ...any) (Goal, error) {
	goal, err := scanGoal(r.getQueryer().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrGoalNotFound
	}
	if err != nil {
		log.Errorf("failed to get goal: %v", err)
		return Goal{}, err
	}
	return goal, nil
}

func (r *GoalRepoImpl) GetAll(ctx context.Context, userId int) ([]Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goal WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.getQueryer().Query(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("could not query goals: %w", err)
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

func (r *GoalRepoImpl) Update(ctx context.Context, userId int, goal Goal) (Goal, error) {
	query := `UPDATE goal SET name = $1, target_amount = $2, accumulated_amount = $3, currency = $4, category = $5,
			  status = $6, icon = $7, color = $8, target_date = $9, notes = $10
			  WHERE id = $11 AND user_id = $12
			  RETURNING ` + goalColumns
	return r.getOne(ctx, query,
		goal.Name,
		goal.TargetAmount,
		goal.AccumulatedAmount,
		goal.Currency,
		goal.Category,
		goal.Status,
		goal.Icon,
		goal.Color,
		goal.TargetDate,
		goal.Notes,
		goal.Id,
		userId,
	)
}

func (r *GoalRepoImpl) Delete(ctx context.Context, userId int, id int) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM goal WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete goal: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (r *GoalRepoImpl) Totals(ctx context.Context, userId int) (Totals, error) {
	query := `SELECT COALESCE(SUM(accumulated_amount), 0),
					 COALESCE(SUM(target_amount), 0),
					 COUNT(*) FILTER (WHERE status = $2),
					 COUNT(*)
			  FROM goal WHERE user_id = $1`
	var totals Totals
	err := r.getQueryer().QueryRow(ctx, query, userId, Completed).
		Scan(&totals.Accumulated, &totals.Target, &totals.Completed, &totals.Total)
	if err != nil {
		return Totals{}, fmt.Errorf("could not sum goals: %w", err)
	}
	return totals, nil
}
