package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/database"
	"github.com/klokku/cycleledger/internal/errs"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errs.New(errs.NotFound, "user not found")
var ErrUsernameTaken = errs.New(errs.Conflict, "username is already taken")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, userId int, user User) (User, error)
	DeleteUser(ctx context.Context, id int) error
	// ListPushRecipients returns active users that registered a push token.
	ListPushRecipients(ctx context.Context) ([]User, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = `id, uid, username, display_name, status, timezone, month_start_date, currency, COALESCE(push_token, '')`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&user.Status,
		&user.Settings.Timezone,
		&user.Settings.MonthStartDate,
		&user.Settings.Currency,
		&user.Settings.PushToken,
	)
	return user, err
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, status, timezone, month_start_date, currency, push_token)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		user.Status,
		user.Settings.Timezone,
		user.Settings.MonthStartDate,
		user.Settings.Currency,
		nullIfEmpty(user.Settings.PushToken),
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		return 0, ErrUsernameTaken
	}
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(u.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with id %d not found", id)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	user, err := scanUser(u.db.QueryRow(ctx, query, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("user with uid %s not found", uid)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) UpdateUser(ctx context.Context, userId int, user User) (User, error) {
	query := `UPDATE users SET display_name = $1, timezone = $2, month_start_date = $3, currency = $4, push_token = $5
				WHERE id = $6 RETURNING ` + userColumns
	updated, err := scanUser(u.db.QueryRow(ctx, query,
		user.DisplayName,
		user.Settings.Timezone,
		user.Settings.MonthStartDate,
		user.Settings.Currency,
		nullIfEmpty(user.Settings.PushToken),
		userId,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to update user: %v", err)
		return User{}, err
	}
	return updated, nil
}

func (u *UserRepoImpl) DeleteUser(ctx context.Context, id int) error {
	tag, err := u.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete user: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) ListPushRecipients(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users
				WHERE status = $1 AND push_token IS NOT NULL AND push_token <> '' ORDER BY id`
	rows, err := u.db.Query(ctx, query, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("could not query push recipients: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
