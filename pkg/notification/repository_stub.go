package notification

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

type RepositoryStub struct {
	mu            sync.Mutex
	notifications map[int64]Notification
	nextId        int64
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{notifications: map[int64]Notification{}}
}

func (s *RepositoryStub) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = map[int64]Notification{}
	s.nextId = 0
}

// All returns every stored notification ordered by id.
func (s *RepositoryStub) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := slices.Collect(maps.Values(s.notifications))
	sort.Slice(all, func(i, j int) bool { return all[i].Id < all[j].Id })
	return all
}

func (s *RepositoryStub) store(n Notification) Notification {
	s.nextId++
	n.Id = s.nextId
	n.Data = maps.Clone(dataOrEmpty(n.Data))
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.Id] = n
	return n
}

func (s *RepositoryStub) Store(ctx context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(n), nil
}

func (s *RepositoryStub) StoreMany(ctx context.Context, userIds []int, template Notification) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored []Notification
	for _, userId := range userIds {
		n := template
		n.UserId = userId
		stored = append(stored, s.store(n))
	}
	return stored, nil
}

func (s *RepositoryStub) byUser(userId int) []Notification {
	var result []Notification
	for _, n := range s.notifications {
		if n.UserId == userId {
			result = append(result, n)
		}
	}
	// newest first
	sort.Slice(result, func(i, j int) bool { return result[i].Id > result[j].Id })
	return result
}

func (s *RepositoryStub) List(ctx context.Context, userId int, offset, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.byUser(userId)
	if offset >= len(all) {
		return []Notification{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s *RepositoryStub) Count(ctx context.Context, userId int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser(userId)), nil
}

func (s *RepositoryStub) CountUnread(ctx context.Context, userId int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.byUser(userId) {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *RepositoryStub) MarkRead(ctx context.Context, userId int, id int64) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserId != userId {
		return Notification{}, ErrNotificationNotFound
	}
	n.IsRead = true
	s.notifications[id] = n
	return n, nil
}

func (s *RepositoryStub) MarkAllRead(ctx context.Context, userId int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for id, n := range s.notifications {
		if n.UserId == userId && !n.IsRead {
			n.IsRead = true
			s.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, userId int, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserId != userId {
		return ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *RepositoryStub) UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var notified []int
	for _, userId := range userIds {
		for _, n := range s.byUser(userId) {
			if n.Data["notifType"] == notifType && n.Data[key] == value {
				notified = append(notified, userId)
				break
			}
		}
	}
	sort.Ints(notified)
	return notified, nil
}
