package subscription

import (
	"sort"
	"sync"
	"time"

	"roe-outage-bot/internal/domain"
)

// Entry — состояние подписчика во время работы процесса.
type Entry struct {
	ChatID      int64
	Entity      string
	LeadMinutes int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Observed становится true после первой записи отпечатка.
	Observed    bool
	Fingerprint domain.Fingerprint
	// Schedule == nil означает, что своего расписания ещё нет.
	Schedule domain.DaySchedule
	// Delivered хранит ключи отправленных напоминаний и момент перехода.
	Delivered map[string]time.Time
}

// Subscriber возвращает сохраняемую часть состояния.
func (e *Entry) Subscriber() domain.Subscriber {
	return domain.Subscriber{
		ChatID:      e.ChatID,
		Entity:      e.Entity,
		LeadMinutes: e.LeadMinutes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Observe записывает отпечаток и расписание и очищает отправленные ключи.
func (e *Entry) Observe(fp domain.Fingerprint, days domain.DaySchedule) {
	e.Observed = true
	e.Fingerprint = fp
	e.Schedule = days
	e.Delivered = make(map[string]time.Time)
}

// resetTracking сбрасывает всё, что относится к прежней подочереди.
func (e *Entry) resetTracking() {
	e.Observed = false
	e.Fingerprint = ""
	e.Schedule = nil
	e.Delivered = make(map[string]time.Time)
}

func (e *Entry) clone() Entry {
	c := *e
	c.Delivered = make(map[string]time.Time, len(e.Delivered))
	for k, v := range e.Delivered {
		c.Delivered[k] = v
	}
	return c
}

// Subscription защищает Entry собственным мьютексом.
type Subscription struct {
	mu      sync.Mutex
	entry   Entry
	removed bool
}

// Do выполняет fn под блокировкой подписчика. Внутри fn нельзя делать сетевые вызовы.
// Для удалённой подписки fn не вызывается и возвращается false.
func (s *Subscription) Do(fn func(e *Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return false
	}
	fn(&s.entry)
	return true
}

// Removed сообщает, что подписка удалена из реестра.
func (s *Subscription) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// Snapshot возвращает копию состояния.
func (s *Subscription) Snapshot() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry.clone()
}

// Registry хранит подписчиков по chat id.
type Registry struct {
	mu   sync.RWMutex
	subs map[int64]*Subscription
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[int64]*Subscription)}
}

// Get возвращает подписку.
func (r *Registry) Get(chatID int64) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[chatID]
	return s, ok
}

// GetOrCreate возвращает подписку, создавая её через init при отсутствии.
func (r *Registry) GetOrCreate(chatID int64, init func() Entry) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[chatID]; ok {
		return s, false
	}
	s := &Subscription{entry: init()}
	if s.entry.Delivered == nil {
		s.entry.Delivered = make(map[string]time.Time)
	}
	r.subs[chatID] = s
	return s, true
}

// Remove удаляет подписку и сообщает, существовала ли она.
func (r *Registry) Remove(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[chatID]
	if !ok {
		return false
	}
	delete(r.subs, chatID)
	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()
	return true
}

// All возвращает подписки, отсортированные по chat id.
func (r *Registry) All() []*Subscription {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.subs[id])
	}
	r.mu.RUnlock()
	return out
}

// Len возвращает количество подписчиков.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
