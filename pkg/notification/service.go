package notification

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/utils"
	"github.com/klokku/cycleledger/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidPage = errs.New(errs.InvalidInput, "page and limit must be positive")

type Service interface {
	Notifier
	// Send stores the notification and pushes it when the user registered a device.
	// Push failures are logged, the stored notification is kept.
	Send(ctx context.Context, userId int, title, body string, kind Type, data map[string]string) (Notification, error)
	SendBulk(ctx context.Context, userIds []int, title, body string, kind Type, data map[string]string) (BulkResult, error)
	List(ctx context.Context, page, limit int) (Page, error)
	// Get returns the notification and marks it as read.
	Get(ctx context.Context, id int64) (Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
	UnreadCount(ctx context.Context) (int, error)
	UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error)
}

type ServiceImpl struct {
	repo   Repository
	users  user.SettingsProvider
	pusher Pusher
}

func NewService(repo Repository, users user.SettingsProvider, pusher Pusher) *ServiceImpl {
	return &ServiceImpl{repo: repo, users: users, pusher: pusher}
}

func (s *ServiceImpl) Notify(ctx context.Context, userId int, title, body string, data map[string]string) error {
	_, err := s.Send(ctx, userId, title, body, Normal, data)
	return err
}

func (s *ServiceImpl) Send(ctx context.Context, userId int, title, body string, kind Type, data map[string]string) (Notification, error) {
	if kind == "" {
		kind = Normal
	}
	storeCtx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	stored, err := s.repo.Store(storeCtx, Notification{UserId: userId, Title: title, Body: body, Type: kind, Data: data})
	if err != nil {
		return Notification{}, err
	}
	s.push(ctx, stored)
	return stored, nil
}

func (s *ServiceImpl) SendBulk(ctx context.Context, userIds []int, title, body string, kind Type, data map[string]string) (BulkResult, error) {
	if len(userIds) == 0 {
		return BulkResult{}, nil
	}
	if kind == "" {
		kind = Normal
	}
	storeCtx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	stored, err := s.repo.StoreMany(storeCtx, userIds, Notification{Title: title, Body: body, Type: kind, Data: data})
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{Stored: len(stored)}
	for _, n := range stored {
		pushed, err := s.pushTo(ctx, n)
		if err != nil {
			result.PushFailed++
		} else if pushed {
			result.PushSent++
		}
	}
	log.Debugf("bulk notification %q stored for %d users, pushed %d, failed %d", title, result.Stored, result.PushSent, result.PushFailed)
	return result, nil
}

func (s *ServiceImpl) push(ctx context.Context, n Notification) {
	_, _ = s.pushTo(ctx, n)
}

// pushTo reports whether a push was attempted and succeeded.
func (s *ServiceImpl) pushTo(ctx context.Context, n Notification) (bool, error) {
	recipient, err := s.users.GetUser(ctx, n.UserId)
	if err != nil {
		log.Errorf("failed to load push recipient %d: %v", n.UserId, err)
		return false, err
	}
	if recipient.Settings.PushToken == "" {
		return false, nil
	}

	data := maps.Clone(n.Data)
	if data == nil {
		data = map[string]string{}
	}
	data["notificationId"] = strconv.FormatInt(n.Id, 10)
	data["type"] = string(n.Type)
	err = s.pusher.Push(ctx, Message{Token: recipient.Settings.PushToken, Title: n.Title, Body: n.Body, Data: data})
	if err != nil {
		log.Errorf("push notification %d failed: %v", n.Id, err)
		return false, err
	}
	return true, nil
}

func (s *ServiceImpl) List(ctx context.Context, page, limit int) (Page, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if page < 1 || limit < 1 {
		return Page{}, ErrInvalidPage
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()

	notifications, err := s.repo.List(ctx, userId, (page-1)*limit, limit)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.Count(ctx, userId)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.repo.CountUnread(ctx, userId)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Notifications: notifications,
		Page:          page,
		Limit:         limit,
		Total:         total,
		TotalPages:    (total + limit - 1) / limit,
		UnreadCount:   unread,
	}, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int64) (Notification, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.MarkRead(ctx, userId, id)
}

func (s *ServiceImpl) MarkAllRead(ctx context.Context) (int64, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.MarkAllRead(ctx, userId)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int64) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.Delete(ctx, userId, id)
}

func (s *ServiceImpl) UnreadCount(ctx context.Context) (int, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current user: %w", err)
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.CountUnread(ctx, userId)
}

func (s *ServiceImpl) UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error) {
	if len(userIds) == 0 {
		return nil, nil
	}
	ctx, cancel := utils.WithQueryTimeout(ctx)
	defer cancel()
	return s.repo.UsersNotified(ctx, notifType, key, value, userIds)
}
