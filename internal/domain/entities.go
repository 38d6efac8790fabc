package domain

import (
	"sort"
	"time"
)

// DaySchedule хранит интервалы отключений одной подочереди по датам.
// Порядок интервалов внутри даты совпадает с порядком извлечения.
type DaySchedule map[Date][]TimeRange

// Dates возвращает даты расписания в хронологическом порядке.
func (s DaySchedule) Dates() []Date {
	dates := make([]Date, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Empty сообщает, что в расписании нет ни одного интервала.
func (s DaySchedule) Empty() bool {
	for _, ranges := range s {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

// EntitySchedule — расписания всех подочередей из одной выгрузки.
type EntitySchedule map[string]DaySchedule

// Snapshot — результат разбора одной загрузки страницы.
// После публикации не изменяется.
type Snapshot struct {
	UpdateMarker string         `json:"update_marker,omitempty"`
	Schedules    EntitySchedule `json:"schedules"`
	TableFound   bool           `json:"table_found"`
	FetchedAt    time.Time      `json:"fetched_at"`
}

// For возвращает расписание подочереди или nil.
func (s Snapshot) For(entity string) DaySchedule {
	if s.Schedules == nil {
		return nil
	}
	return s.Schedules[entity]
}

// Fingerprint — стабильный дайджест расписания подочереди.
type Fingerprint string

// TransitionKind описывает направление смены состояния.
type TransitionKind string

const (
	// TransitionOff — начало отключения.
	TransitionOff TransitionKind = "OFF"
	// TransitionOn — возвращение света.
	TransitionOn TransitionKind = "ON"
)

// Transition — ближайшая смена состояния.
type Transition struct {
	At    time.Time
	Kind  TransitionKind
	Date  Date
	Range TimeRange
}

// Subscriber описывает сохраняемые настройки подписчика.
type Subscriber struct {
	ChatID      int64
	Entity      string
	LeadMinutes int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reminder — решение отправить напоминание.
type Reminder struct {
	ChatID      int64
	Entity      string
	LeadMinutes int
	Transition  Transition
	Key         string
}

// Action — кнопка под сообщением.
type Action struct {
	Label string
	Data  string
}

// Notification — исходящее сообщение подписчику.
type Notification struct {
	Text    string
	Actions [][]Action
}
