package user

import (
	"context"
	"testing"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/pkg/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoStub = NewStubUserRepo()

func setup(t *testing.T) (Service, func()) {
	service := NewUserService(repoStub)
	return service, func() {
		t.Log("Teardown after test")
		repoStub.Cleanup()
	}
}

func TestUserServiceImpl_CreateUser(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		// when
		created, err := service.CreateUser(context.Background(), User{Username: "jane"})

		// then
		require.NoError(t, err)
		assert.NotEmpty(t, created.Uid)
		assert.Equal(t, StatusActive, created.Status)
		assert.Equal(t, period.DefaultStartDay, created.Settings.MonthStartDate)
		assert.Equal(t, "UTC", created.Settings.Timezone)
		assert.Equal(t, "USD", created.Settings.Currency)
	})

	t.Run("should reject start day outside 1..28", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.CreateUser(context.Background(), User{Username: "jane", Settings: Settings{MonthStartDate: 31}})

		assert.ErrorIs(t, err, period.ErrInvalidStartDay)
		assert.True(t, errs.IsKind(err, errs.InvalidInput))
	})

	t.Run("should reject unknown timezone", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.CreateUser(context.Background(), User{Username: "jane", Settings: Settings{Timezone: "Mars/Olympus"}})

		assert.ErrorIs(t, err, ErrInvalidTimezone)
	})
}

func TestUserServiceImpl_UpdateUser(t *testing.T) {
	t.Run("should update settings of current user", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		// given
		created, err := service.CreateUser(context.Background(), User{Username: "jane"})
		require.NoError(t, err)
		ctx := WithUser(context.Background(), created)

		// when
		updated, err := service.UpdateUser(ctx, User{
			DisplayName: "Jane",
			Settings:    Settings{MonthStartDate: 18, Timezone: "Europe/Warsaw", Currency: "pln"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, 18, updated.Settings.MonthStartDate)
		assert.Equal(t, "PLN", updated.Settings.Currency)
		assert.Equal(t, "Jane", updated.DisplayName)
	})

	t.Run("should return error when context has no user", func(t *testing.T) {
		service, teardown := setup(t)
		defer teardown()

		_, err := service.UpdateUser(context.Background(), User{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get current user")
		assert.ErrorIs(t, err, ErrNoUser)
	})
}
