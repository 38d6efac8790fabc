package domain

import (
	"context"
	"time"
)

// SourceFetcher загружает страницу с графиком отключений.
type SourceFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// ScheduleParser превращает страницу в снимок расписаний.
type ScheduleParser interface {
	Parse(doc []byte) Snapshot
}

// Notifier доставляет сообщения подписчикам.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, n Notification) error
}

// SubscriberRepo хранит настройки подписчиков.
type SubscriberRepo interface {
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
	UpsertSubscriber(ctx context.Context, sub Subscriber) error
	DeleteSubscriber(ctx context.Context, chatID int64) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
