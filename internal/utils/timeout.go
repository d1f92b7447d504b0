package utils

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds a single service level storage round trip.
var DefaultQueryTimeout = 5 * time.Second

func WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}
