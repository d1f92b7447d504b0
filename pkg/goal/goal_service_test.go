package goal

import (
	"context"
	"testing"
	"time"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/test_utils"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goalRepoStub = NewStubGoalRepo()
var clock = &utils.MockClock{FixedNow: time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)}
var service *GoalServiceImpl
var ctx = test_utils.UserContext(test_utils.TestUser(1))

func setup(t *testing.T) func() {
	service = NewGoalServiceImpl(goalRepoStub, clock)
	return func() {
		t.Log("Teardown after test")
		goalRepoStub.Cleanup()
	}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func createGoal(t *testing.T, name, target, accumulated string) Goal {
	t.Helper()
	goal, err := service.Create(ctx, Goal{
		Name:              name,
		Category:          "Savings",
		TargetAmount:      dec(target),
		AccumulatedAmount: dec(accumulated),
	})
	require.NoError(t, err)
	return goal
}

func TestGoalServiceImpl_Create(t *testing.T) {
	t.Run("should create goal in progress with user currency", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		goal := createGoal(t, "  Bike ", "1000", "0")

		// then
		assert.Equal(t, "Bike", goal.Name)
		assert.Equal(t, InProgress, goal.Status)
		assert.Equal(t, "USD", goal.Currency)
		assert.Equal(t, 1, goal.UserId)
	})

	t.Run("should validate input", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Create(ctx, Goal{Category: "Savings", TargetAmount: dec("1")})
		assert.ErrorIs(t, err, ErrNameRequired)

		_, err = service.Create(ctx, Goal{Name: "Bike", Category: "Savings", TargetAmount: dec("0")})
		assert.ErrorIs(t, err, ErrInvalidTarget)

		_, err = service.Create(ctx, Goal{Name: "Bike", Category: "Savings", TargetAmount: dec("10"), AccumulatedAmount: dec("-1")})
		assert.ErrorIs(t, err, ErrNegativeAccumulated)
	})
}

func TestGoalServiceImpl_AddProgress(t *testing.T) {
	t.Run("should add progress and complete at target", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		goal := createGoal(t, "Bike", "1000", "400")

		// when
		partial, err := service.AddProgress(ctx, goal.Id, dec("100"))
		require.NoError(t, err)
		full, err := service.AddProgress(ctx, goal.Id, dec("500"))
		require.NoError(t, err)

		// then
		assert.Equal(t, "500", partial.AccumulatedAmount.String())
		assert.Equal(t, InProgress, partial.Status)
		assert.Equal(t, 50, partial.ProgressPercentage())
		assert.Equal(t, Completed, full.Status)
		assert.True(t, full.AmountLeft().IsZero())
	})

	t.Run("should reject progress above target", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		goal := createGoal(t, "Bike", "1000", "900")

		_, err := service.AddProgress(ctx, goal.Id, dec("150"))

		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.InvalidInput))
		assert.Equal(t, "Adding 150 would exceed the target amount. Maximum you can add: 100", err.Error())
		stored, _ := service.Get(ctx, goal.Id)
		assert.Equal(t, "900", stored.AccumulatedAmount.String())
	})

	t.Run("should reject progress on completed goal", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		goal := createGoal(t, "Bike", "10", "0")
		_, err := service.MarkComplete(ctx, goal.Id)
		require.NoError(t, err)

		_, err = service.AddProgress(ctx, goal.Id, dec("1"))

		assert.ErrorIs(t, err, ErrGoalCompleted)
	})

	t.Run("should reject non positive amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		goal := createGoal(t, "Bike", "10", "0")

		_, err := service.AddProgress(ctx, goal.Id, dec("0"))

		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("should not touch goal of another user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		goal := createGoal(t, "Bike", "10", "0")
		other := test_utils.UserContext(test_utils.TestUser(2))

		_, err := service.AddProgress(other, goal.Id, dec("1"))

		assert.ErrorIs(t, err, ErrGoalNotFound)
	})
}

func TestGoalServiceImpl_MarkComplete(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	goal := createGoal(t, "Bike", "250", "10")

	// when
	completed, err := service.MarkComplete(ctx, goal.Id)
	require.NoError(t, err)
	_, again := service.MarkComplete(ctx, goal.Id)

	// then
	assert.Equal(t, Completed, completed.Status)
	assert.Equal(t, "250", completed.AccumulatedAmount.String())
	assert.ErrorIs(t, again, ErrAlreadyCompleted)
}

func TestGoalServiceImpl_Update(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	goal := createGoal(t, "Bike", "250", "10")
	name := "Road bike"
	target := dec("300")
	date := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	// when
	updated, err := service.Update(ctx, goal.Id, GoalPatch{Name: &name, TargetAmount: &target, TargetDate: &date})

	// then
	require.NoError(t, err)
	assert.Equal(t, "Road bike", updated.Name)
	assert.Equal(t, "300", updated.TargetAmount.String())
	assert.Equal(t, "10", updated.AccumulatedAmount.String())
	assert.Equal(t, date, *updated.TargetDate)

	zero := dec("0")
	_, err = service.Update(ctx, goal.Id, GoalPatch{TargetAmount: &zero})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestGoalServiceImpl_List(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	createGoal(t, "Bike", "1000", "333")
	trip := createGoal(t, "Trip", "200", "0")
	_, err := service.MarkComplete(ctx, trip.Id)
	require.NoError(t, err)
	createGoal(t, "Laptop", "300", "0.5")

	// when
	overview, err := service.List(ctx)

	// then
	require.NoError(t, err)
	require.Len(t, overview.Goals, 3)
	assert.Equal(t, "Laptop", overview.Goals[0].Name)
	assert.Equal(t, 0, overview.Goals[0].ProgressPercentage())
	assert.Equal(t, 33, overview.Goals[2].ProgressPercentage())
	assert.Equal(t, "966.5", overview.TotalLeft.String())
	assert.Equal(t, "1/3", overview.FulfilledGoals())
}

func TestGoalServiceImpl_Totals(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	createGoal(t, "Bike", "1000", "250")
	createGoal(t, "Trip", "200", "50")
	_, err := service.Create(test_utils.UserContext(test_utils.TestUser(2)), Goal{
		Name: "Other", Category: "Savings", TargetAmount: dec("5"),
	})
	require.NoError(t, err)

	// when
	totals, err := service.Totals(context.Background(), 1)

	// then
	require.NoError(t, err)
	assert.Equal(t, "300", totals.Accumulated.String())
	assert.Equal(t, "1200", totals.Target.String())
	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 0, totals.Completed)
}

func TestGoal_ProgressPercentage(t *testing.T) {
	assert.Equal(t, 100, Goal{TargetAmount: dec("10"), AccumulatedAmount: dec("12")}.ProgressPercentage())
	assert.Equal(t, 67, Goal{TargetAmount: dec("3"), AccumulatedAmount: dec("2")}.ProgressPercentage())
	assert.Equal(t, 0, Goal{}.ProgressPercentage())
	assert.True(t, Goal{TargetAmount: dec("10"), AccumulatedAmount: dec("12")}.AmountLeft().IsZero())
}
