package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/klokku/cycleledger/pkg/notification"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var users = user.NewStubUserRepo()
var entries = ledger.NewRepositoryStub()
var notifications = notification.NewRepositoryStub()
var aggregator ledger.Aggregator
var sender *notification.ServiceImpl

func setup(t *testing.T) func() {
	aggregator = ledger.NewAggregator(entries, &utils.MockClock{})
	sender = notification.NewService(notifications, users, notification.NoopPusher{})
	return func() {
		t.Log("Teardown after test")
		users.Cleanup()
		entries.Cleanup()
		notifications.Cleanup()
	}
}

func createUser(t *testing.T, username, timezone string, monthStartDate int) int {
	id, err := users.CreateUser(context.Background(), user.User{
		Username: username,
		Status:   user.StatusActive,
		Settings: user.Settings{Timezone: timezone, MonthStartDate: monthStartDate, PushToken: "token-" + username},
	})
	require.NoError(t, err)
	return id
}

func addSpending(userId int, date time.Time) {
	entries.Add(ledger.Entry{
		UserId:   userId,
		Kind:     ledger.Spending,
		Name:     "Coffee",
		Category: "Food",
		Amount:   decimal.NewFromInt(3),
		Currency: "USD",
		Date:     date,
	})
}

func sentTo(userId int) []notification.Notification {
	var result []notification.Notification
	for _, n := range notifications.All() {
		if n.UserId == userId {
			result = append(result, n)
		}
	}
	return result
}

func TestDailyReminder_Run(t *testing.T) {
	t.Run("should remind inactive users once per local day", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		inactive := createUser(t, "inactive", "Etc/GMT-12", 1)
		active := createUser(t, "active", "Etc/GMT-12", 1)
		elsewhere := createUser(t, "elsewhere", "UTC", 1)
		addSpending(active, time.Date(2026, time.January, 20, 8, 0, 0, 0, time.UTC))
		job := NewDailyReminder(users, aggregator, sender, DefaultBatchSize, DailyReminderHour)
		now := time.Date(2026, time.January, 20, 9, 0, 0, 0, time.UTC)

		// when
		require.NoError(t, job.Run(context.Background(), now))
		require.NoError(t, job.Run(context.Background(), now))

		// then
		reminded := sentTo(inactive)
		require.Len(t, reminded, 1)
		assert.Equal(t, "Daily Reminder", reminded[0].Title)
		assert.Equal(t, map[string]string{"notifType": DailyReminderType, "date": "2026-01-20"}, reminded[0].Data)
		assert.Empty(t, sentTo(active))
		assert.Empty(t, sentTo(elsewhere))
	})
}

func TestWeeklyReport_Run(t *testing.T) {
	t.Run("should split users by activity in the past week", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		active := createUser(t, "active", "UTC", 1)
		inactive := createUser(t, "inactive", "UTC", 1)
		addSpending(active, time.Date(2026, time.January, 20, 8, 0, 0, 0, time.UTC))
		addSpending(inactive, time.Date(2026, time.January, 25, 8, 0, 0, 0, time.UTC))
		job := NewWeeklyReport(users, aggregator, sender, DefaultBatchSize)
		sunday := time.Date(2026, time.January, 25, 9, 0, 0, 0, time.UTC)

		// when
		require.NoError(t, job.Run(context.Background(), sunday))
		require.NoError(t, job.Run(context.Background(), sunday))

		// then
		ready := sentTo(active)
		require.Len(t, ready, 1)
		assert.Equal(t, "Your Weekly Report Is Ready", ready[0].Title)
		assert.Equal(t, map[string]string{"notifType": WeeklyReportType, "weekStart": "2026-01-18", "route": "/reports/weekly"}, ready[0].Data)
		reminded := sentTo(inactive)
		require.Len(t, reminded, 1)
		assert.Equal(t, "Weekly Reminder", reminded[0].Title)
		assert.NotContains(t, reminded[0].Data, "route")
	})

	t.Run("should ignore ticks outside sunday morning", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		createUser(t, "user", "UTC", 1)
		job := NewWeeklyReport(users, aggregator, sender, DefaultBatchSize)

		require.NoError(t, job.Run(context.Background(), time.Date(2026, time.January, 25, 10, 0, 0, 0, time.UTC)))
		require.NoError(t, job.Run(context.Background(), time.Date(2026, time.January, 26, 9, 0, 0, 0, time.UTC)))

		assert.Empty(t, notifications.All())
	})
}

func TestMonthlyReport_Run(t *testing.T) {
	t.Run("should notify users whose cycle starts today", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		active := createUser(t, "active", "UTC", 18)
		inactive := createUser(t, "inactive", "UTC", 18)
		other := createUser(t, "other", "UTC", 1)
		addSpending(active, time.Date(2026, time.February, 17, 22, 0, 0, 0, time.UTC))
		addSpending(inactive, time.Date(2026, time.January, 17, 22, 0, 0, 0, time.UTC))
		job := NewMonthlyReport(users, aggregator, sender, DefaultBatchSize)
		now := time.Date(2026, time.February, 18, 9, 0, 0, 0, time.UTC)

		// when
		require.NoError(t, job.Run(context.Background(), now))
		require.NoError(t, job.Run(context.Background(), now))

		// then
		ready := sentTo(active)
		require.Len(t, ready, 1)
		assert.Equal(t, "Your Monthly Report Is Ready", ready[0].Title)
		assert.Equal(t, map[string]string{"notifType": MonthlyReportType, "monthStart": "2026-01-18", "route": "/reports/monthly"}, ready[0].Data)
		reminded := sentTo(inactive)
		require.Len(t, reminded, 1)
		assert.Equal(t, "Monthly Reminder", reminded[0].Title)
		assert.Empty(t, sentTo(other))
	})
}
