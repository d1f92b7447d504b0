package notification

import (
	"context"
	"time"
)

type Type string

const (
	Normal      Type = "NORMAL"
	Urgent      Type = "URGENT"
	Promotional Type = "PROMOTIONAL"
	System      Type = "SYSTEM"
)

const DefaultPageSize = 20

// Notifier delivers a notification to a user. Callers treat it as fire and forget.
type Notifier interface {
	Notify(ctx context.Context, userId int, title, body string, data map[string]string) error
}

type Notification struct {
	Id        int64
	UserId    int
	Title     string
	Body      string
	Type      Type
	IsRead    bool
	Data      map[string]string
	CreatedAt time.Time
}

type Page struct {
	Notifications []Notification
	Page          int
	Limit         int
	Total         int
	TotalPages    int
	UnreadCount   int
}

type BulkResult struct {
	Stored     int
	PushSent   int
	PushFailed int
}
