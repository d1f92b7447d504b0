package notification

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_DB_TESTS") != "" {
		os.Exit(m.Run())
	}
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	_ = pgContainer.Terminate(context.Background())
	os.Exit(code)
}

func setupRepo(t *testing.T) (*RepositoryImpl, []int, func()) {
	if pgContainer == nil {
		t.Skip("database tests disabled")
	}
	db := openDb()
	first := test_utils.InsertUser(t, db, "first_user", 1)
	second := test_utils.InsertUser(t, db, "second_user", 1)
	return NewRepository(db), []int{first, second}, func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(context.Background()))
	}
}

func TestRepositoryImpl(t *testing.T) {
	t.Run("should store, page and mark notifications", func(t *testing.T) {
		// given
		repo, users, teardown := setupRepo(t)
		defer teardown()
		ctx := context.Background()

		// when
		first, err := repo.Store(ctx, Notification{UserId: users[0], Title: "first", Body: "b", Type: Normal})
		require.NoError(t, err)
		second, err := repo.Store(ctx, Notification{UserId: users[0], Title: "second", Body: "b", Type: Urgent,
			Data: map[string]string{"notifType": "BUDGET_ALERT"}})
		require.NoError(t, err)

		// then
		page, err := repo.List(ctx, users[0], 0, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, second.Id, page[0].Id)
		assert.Equal(t, "BUDGET_ALERT", page[0].Data["notifType"])

		count, err := repo.Count(ctx, users[0])
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		read, err := repo.MarkRead(ctx, users[0], first.Id)
		require.NoError(t, err)
		assert.True(t, read.IsRead)
		unread, err := repo.CountUnread(ctx, users[0])
		require.NoError(t, err)
		assert.Equal(t, 1, unread)

		_, err = repo.MarkRead(ctx, users[1], first.Id)
		assert.ErrorIs(t, err, ErrNotificationNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, users[1], first.Id), ErrNotificationNotFound)

		updated, err := repo.MarkAllRead(ctx, users[0])
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)
		require.NoError(t, repo.Delete(ctx, users[0], first.Id))
	})

	t.Run("should find users already notified for a period", func(t *testing.T) {
		repo, users, teardown := setupRepo(t)
		defer teardown()
		ctx := context.Background()

		stored, err := repo.StoreMany(ctx, users[:1], Notification{
			Title: "Daily Reminder", Body: "b", Type: Normal,
			Data: map[string]string{"notifType": "DAILY_REMINDER", "date": "2026-01-20"},
		})
		require.NoError(t, err)
		require.Len(t, stored, 1)

		notified, err := repo.UsersNotified(ctx, "DAILY_REMINDER", "date", "2026-01-20", users)
		require.NoError(t, err)
		assert.Equal(t, []int{users[0]}, notified)

		none, err := repo.UsersNotified(ctx, "DAILY_REMINDER", "date", "2026-01-21", users)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
