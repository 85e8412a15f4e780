package domain

import (
	"context"
	"time"
)

// CacheRepository defines caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// EmailService defines email operations
type EmailService interface {
	SendSubscriptionCreatedEmail(toEmail, toName, subscriptionID, licenseKey string) error
}
