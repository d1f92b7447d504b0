package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/test_utils"
	"github.com/klokku/cycleledger/pkg/period"
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

type fixture struct {
	db        *pgxpool.Pool
	repo      *RepositoryImpl
	userId    int
	accountId int
}

func setupRepository(t *testing.T) (fixture, func()) {
	if pgContainer == nil {
		t.Skip("database tests disabled")
	}
	db := openDb()
	userId := test_utils.InsertUser(t, db, "ledger_user", 1)
	accountId := test_utils.InsertAccount(t, db, userId, "Wallet", "0")
	return fixture{db: db, repo: NewRepository(db), userId: userId, accountId: accountId}, func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(context.Background()))
	}
}

func (f fixture) insert(t *testing.T, kind Kind, category, amount string, date time.Time) {
	t.Helper()
	_, err := f.db.Exec(context.Background(),
		`INSERT INTO ledger_entry (user_id, account_id, kind, name, category, amount, entry_date)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
		f.userId, f.accountId, kind, category, category, amount, date)
	require.NoError(t, err)
}

func TestRepositoryImpl_CategoryTotals(t *testing.T) {
	// given
	f, teardown := setupRepository(t)
	defer teardown()
	f.insert(t, Spending, "Food", "10.00", day(time.January, 2))
	f.insert(t, Spending, "food", "5.25", day(time.January, 3))
	f.insert(t, Spending, "Rent", "100", day(time.January, 1))
	f.insert(t, Spending, "Food", "1", day(time.February, 1))

	// when
	totals, err := f.repo.CategoryTotals(context.Background(), f.userId, Spending, january)

	// then
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, "Rent", totals[0].Category)
	assert.Equal(t, "Food", totals[1].Category)
	assert.Equal(t, "10", totals[1].Total.String())
	assert.Equal(t, "food", totals[2].Category)
}

func TestRepositoryImpl_TotalIsHalfOpen(t *testing.T) {
	// given
	f, teardown := setupRepository(t)
	defer teardown()
	f.insert(t, Income, "Salary", "100", january.Start)
	f.insert(t, Income, "Salary", "50", january.End)
	f.insert(t, Income, "Salary", "25", january.EndExclusive())

	// when
	total, err := f.repo.Total(context.Background(), f.userId, Income, january)

	// then
	require.NoError(t, err)
	assert.Equal(t, "150", total.String())
}

func TestRepositoryImpl_DayAndMonthTotals(t *testing.T) {
	// given
	f, teardown := setupRepository(t)
	defer teardown()
	f.insert(t, Spending, "Food", "3", time.Date(2026, time.January, 5, 23, 30, 0, 0, time.UTC))
	f.insert(t, Spending, "Food", "4", time.Date(2026, time.January, 5, 1, 0, 0, 0, time.UTC))
	f.insert(t, Spending, "Food", "8", day(time.March, 9))

	// when
	days, err := f.repo.DayTotals(context.Background(), f.userId, Spending, january)
	require.NoError(t, err)
	months, err := f.repo.MonthTotals(context.Background(), f.userId, Spending, 2026)
	require.NoError(t, err)

	// then
	require.Len(t, days, 1)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), days[0].Day)
	assert.Equal(t, "7", days[0].Total.String())
	require.Len(t, months, 2)
	assert.Equal(t, time.January, months[0].Month)
	assert.Equal(t, time.March, months[1].Month)
}

func TestRepositoryImpl_EntriesAndActiveUsers(t *testing.T) {
	// given
	f, teardown := setupRepository(t)
	defer teardown()
	f.insert(t, Spending, "Food", "3", day(time.January, 5))
	f.insert(t, Spending, "Rent", "4", day(time.January, 7))
	idle := test_utils.InsertUser(t, f.db, "idle_user", 1)

	// when
	entries, err := f.repo.Entries(context.Background(), f.userId, Spending, january)
	require.NoError(t, err)
	active, err := f.repo.ActiveUsers(context.Background(), []int{f.userId, idle}, period.DayRange(day(time.January, 7)))
	require.NoError(t, err)

	// then
	require.Len(t, entries, 2)
	assert.Equal(t, "Rent", entries[0].Category)
	assert.Equal(t, f.accountId, entries[0].AccountId)
	assert.Equal(t, []int{f.userId}, active)
}
