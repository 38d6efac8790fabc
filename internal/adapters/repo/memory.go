package repo

import (
	"context"
	"sort"
	"sync"

	"roe-outage-bot/internal/domain"
)

// Memory хранит подписчиков в памяти процесса.
type Memory struct {
	mu   sync.Mutex
	subs map[int64]domain.Subscriber
}

var _ domain.SubscriberRepo = (*Memory)(nil)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int64]domain.Subscriber)}
}

// ListSubscribers возвращает подписчиков по возрастанию chat id.
func (m *Memory) ListSubscribers(context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ChatID < res[j].ChatID })
	return res, nil
}

// UpsertSubscriber сохраняет подписчика; CreatedAt первой записи не меняется.
func (m *Memory) UpsertSubscriber(_ context.Context, sub domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.subs[sub.ChatID]; ok && !prev.CreatedAt.IsZero() {
		sub.CreatedAt = prev.CreatedAt
	}
	m.subs[sub.ChatID] = sub
	return nil
}

// DeleteSubscriber удаляет подписчика.
func (m *Memory) DeleteSubscriber(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, chatID)
	return nil
}
