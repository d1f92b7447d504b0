package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/stretchr/testify/require"
)

// TestUser is the default user for service tests. MonthStartDate 1 keeps cycles on calendar months.
func TestUser(id int) user.User {
	return user.User{
		Id:          id,
		Uid:         uuid.NewString(),
		Username:    "test_user",
		DisplayName: "Test User",
		Status:      user.StatusActive,
		Settings: user.Settings{
			Timezone:       "Europe/Warsaw",
			MonthStartDate: 1,
			Currency:       "USD",
		},
	}
}

func UserContext(u user.User) context.Context {
	return user.WithUser(context.Background(), u)
}

// InsertUser stores a user row so repository tests satisfy foreign keys.
func InsertUser(t *testing.T, db *pgxpool.Pool, username string, monthStartDate int) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (uid, username, month_start_date) VALUES ($1, $2, $3) RETURNING id`,
		uuid.NewString(), username, monthStartDate,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertAccount stores an account row with the given balance and returns its id.
func InsertAccount(t *testing.T, db *pgxpool.Pool, userId int, name string, amount string) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO account (user_id, name, amount) VALUES ($1, $2, $3::numeric) RETURNING id`,
		userId, name, amount,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
