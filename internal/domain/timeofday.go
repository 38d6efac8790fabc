package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidClock возвращается для времени не в формате ЧЧ:ММ.
	ErrInvalidClock = errors.New("invalid clock")
	// ErrInvalidDate возвращается для даты не в формате ДД.ММ.ГГГГ.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange возвращается, если начало интервала не раньше конца.
	ErrInvalidRange = errors.New("invalid time range")
)

// Clock — время суток с точностью до минуты.
type Clock struct {
	Hour   int
	Minute int
}

// EndOfDay — граница «до конца суток», включительно до 23:59:59.
var EndOfDay = Clock{Hour: 23, Minute: 59}

// ParseClock разбирает строку ЧЧ:ММ.
func ParseClock(raw string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// String возвращает ЧЧ:ММ.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes возвращает количество минут от полуночи.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// IsEndOfDay сообщает, является ли время границей конца суток.
func (c Clock) IsEndOfDay() bool {
	return c == EndOfDay
}

// TimeRange — интервал отключения в пределах одних суток.
type TimeRange struct {
	Start Clock
	End   Clock
}

// NewTimeRange проверяет, что start < end.
func NewTimeRange(start, end Clock) (TimeRange, error) {
	if start.Minutes() >= end.Minutes() {
		return TimeRange{}, fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseTimeRange разбирает строку ЧЧ:ММ-ЧЧ:ММ.
func ParseTimeRange(raw string) (TimeRange, error) {
	a, b, ok := strings.Cut(raw, "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
	}
	start, err := ParseClock(a)
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ParseClock(b)
	if err != nil {
		return TimeRange{}, err
	}
	return NewTimeRange(start, end)
}

// String возвращает ЧЧ:ММ-ЧЧ:ММ.
func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// MarshalText реализует encoding.TextMarshaler.
func (r TimeRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (r *TimeRange) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Date — календарная дата без часового пояса.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "02.01.2006"

// ParseDate разбирает дату ДД.ММ.ГГГГ.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return DateOf(t), nil
}

// DateOf возвращает календарную дату момента в его часовом поясе.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String возвращает ДД.ММ.ГГГГ.
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

// ISO возвращает ГГГГ-ММ-ДД.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before сравнивает даты хронологически.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// AddDays сдвигает дату на n суток.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// At возвращает момент времени c в указанную дату.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// MarshalText реализует encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
