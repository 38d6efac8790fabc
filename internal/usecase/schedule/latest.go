package schedule

import (
	"sync/atomic"

	"roe-outage-bot/internal/domain"
)

// Latest хранит последний опубликованный снимок. Снимок после Store не изменяется.
type Latest struct {
	p atomic.Pointer[domain.Snapshot]
}

// Store атомарно публикует снимок.
func (l *Latest) Store(s domain.Snapshot) {
	l.p.Store(&s)
}

// Load возвращает последний снимок; ok=false, если ничего не публиковалось.
func (l *Latest) Load() (domain.Snapshot, bool) {
	s := l.p.Load()
	if s == nil {
		return domain.Snapshot{}, false
	}
	return *s, true
}

// For возвращает расписание подочереди из последнего снимка.
func (l *Latest) For(entity string) (domain.DaySchedule, bool) {
	s, ok := l.Load()
	if !ok {
		return nil, false
	}
	days := s.For(entity)
	return days, days != nil
}
