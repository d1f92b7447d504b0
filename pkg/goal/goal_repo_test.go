package goal

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

func setupRepo(t *testing.T) (*GoalRepoImpl, int, func()) {
	if pgContainer == nil {
		t.Skip("database tests disabled")
	}
	db := openDb()
	userId := test_utils.InsertUser(t, db, "goal_user", 1)
	return NewGoalRepo(db), userId, func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(context.Background()))
	}
}

func TestGoalRepoImpl(t *testing.T) {
	t.Run("should store, update and sum goals", func(t *testing.T) {
		// given
		repo, userId, teardown := setupRepo(t)
		defer teardown()
		ctx := context.Background()

		// when
		stored, err := repo.Store(ctx, userId, Goal{
			Name: "Bike", TargetAmount: dec("1000"), AccumulatedAmount: dec("100.5"),
			Currency: "USD", Category: "Savings", Status: InProgress,
		})
		require.NoError(t, err)
		_, err = repo.Store(ctx, userId, Goal{
			Name: "Trip", TargetAmount: dec("200"), Currency: "USD", Category: "Travel", Status: Completed,
		})
		require.NoError(t, err)

		// then
		assert.NotZero(t, stored.Id)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Nil(t, stored.TargetDate)

		stored.AccumulatedAmount = dec("150")
		updated, err := repo.Update(ctx, userId, stored)
		require.NoError(t, err)
		assert.Equal(t, "150", updated.AccumulatedAmount.String())

		totals, err := repo.Totals(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, "150", totals.Accumulated.String())
		assert.Equal(t, "1200", totals.Target.String())
		assert.Equal(t, 1, totals.Completed)
		assert.Equal(t, 2, totals.Total)

		goals, err := repo.GetAll(ctx, userId)
		require.NoError(t, err)
		assert.Len(t, goals, 2)
	})

	t.Run("should scope goals by owner", func(t *testing.T) {
		repo, userId, teardown := setupRepo(t)
		defer teardown()
		ctx := context.Background()
		stored, err := repo.Store(ctx, userId, Goal{Name: "Bike", TargetAmount: dec("10"), Currency: "USD", Category: "x", Status: InProgress})
		require.NoError(t, err)

		_, err = repo.Get(ctx, userId+1, stored.Id)
		assert.ErrorIs(t, err, ErrGoalNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, userId+1, stored.Id), ErrGoalNotFound)
		require.NoError(t, repo.Delete(ctx, userId, stored.Id))
	})

	t.Run("should return zero totals without goals", func(t *testing.T) {
		repo, userId, teardown := setupRepo(t)
		defer teardown()

		totals, err := repo.Totals(context.Background(), userId)

		require.NoError(t, err)
		assert.True(t, totals.Accumulated.IsZero())
		assert.Equal(t, 0, totals.Total)
	})
}
