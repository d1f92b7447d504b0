package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/pkg/period"
)

var ErrInvalidTimezone = errs.New(errs.InvalidInput, "timezone must be a valid IANA name")
var ErrInvalidUsername = errs.New(errs.InvalidInput, "username is required")

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id int) error
	ListPushRecipients(ctx context.Context) ([]User, error)
}

// SettingsProvider gives other packages read access to a user's cycle settings.
type SettingsProvider interface {
	GetUser(ctx context.Context, id int) (User, error)
}

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.GetUser(ctx, userId)
}

func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return User{}, ErrInvalidUsername
	}
	if user.Uid == "" {
		user.Uid = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = StatusActive
	}
	settings, err := applySettingsDefaults(user.Settings)
	if err != nil {
		return User{}, err
	}
	user.Settings = settings

	userId, err := u.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, err
	}
	user.Id = userId
	return user, nil
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) UpdateUser(ctx context.Context, user User) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	settings, err := applySettingsDefaults(user.Settings)
	if err != nil {
		return User{}, err
	}
	user.Settings = settings
	return u.repo.UpdateUser(ctx, userId, user)
}

func (u *UserServiceImpl) DeleteUser(ctx context.Context, id int) error {
	return u.repo.DeleteUser(ctx, id)
}

func (u *UserServiceImpl) ListPushRecipients(ctx context.Context) ([]User, error) {
	return u.repo.ListPushRecipients(ctx)
}

func applySettingsDefaults(settings Settings) (Settings, error) {
	if settings.MonthStartDate == 0 {
		settings.MonthStartDate = period.DefaultStartDay
	}
	if err := period.ValidateStartDay(settings.MonthStartDate); err != nil {
		return Settings{}, err
	}
	if settings.Timezone == "" {
		settings.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return Settings{}, ErrInvalidTimezone
	}
	if settings.Currency == "" {
		settings.Currency = "USD"
	}
	settings.Currency = strings.ToUpper(settings.Currency)
	return settings, nil
}
