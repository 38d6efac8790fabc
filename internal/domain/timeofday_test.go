package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "06:00", want: Clock{Hour: 6}},
		{in: " 23:59 ", want: EndOfDay},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "6:00", wantErr: true},
		{in: "06-00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Fatalf("ожидали ErrInvalidClock, получили %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("не ожидали ошибку: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewTimeRangeRejectsInverted(t *testing.T) {
	if _, err := NewTimeRange(Clock{Hour: 10}, Clock{Hour: 6}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("ожидали ErrInvalidRange, получили %v", err)
	}
	if _, err := NewTimeRange(Clock{Hour: 10}, Clock{Hour: 10}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("пустой интервал должен быть отклонён")
	}
}

func TestDateBeforeIsChronological(t *testing.T) {
	a, _ := ParseDate("31.12.2023")
	b, _ := ParseDate("01.01.2024")
	c, _ := ParseDate("02.01.2024")
	if !a.Before(b) || !b.Before(c) {
		t.Fatalf("ожидали хронологический порядок %s < %s < %s", a, b, c)
	}
	if c.Before(a) {
		t.Fatalf("%s не может быть раньше %s", c, a)
	}
}

func TestDaySchedulesDatesSorted(t *testing.T) {
	s := DaySchedule{
		{Year: 2024, Month: time.January, Day: 2}:   nil,
		{Year: 2023, Month: time.December, Day: 31}: nil,
		{Year: 2024, Month: time.January, Day: 1}:   nil,
	}
	dates := s.Dates()
	got := []string{dates[0].String(), dates[1].String(), dates[2].String()}
	want := []string{"31.12.2023", "01.01.2024", "02.01.2024"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ожидали %v, получили %v", want, got)
		}
	}
}

func TestSnapshotJSONRoundTripKeepsRanges(t *testing.T) {
	day, _ := ParseDate("10.05.2024")
	r, _ := ParseTimeRange("06:00-10:00")
	snap := Snapshot{Schedules: EntitySchedule{"1.1": {day: {r}}}, TableFound: true}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Snapshot
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := back.For("1.1")[day]
	if len(got) != 1 || got[0] != r {
		t.Fatalf("ожидали %v, получили %v (json %s)", r, got, raw)
	}
}
