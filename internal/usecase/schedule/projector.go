package schedule

import (
	"sort"
	"time"

	"roe-outage-bot/internal/domain"
)

// interval — интервал расписания в абсолютном времени.
type interval struct {
	date  domain.Date
	rng   domain.TimeRange
	start time.Time
	end   time.Time
}

// Project находит ближайшую смену состояния относительно now.
// Если now внутри сегодняшнего интервала, возвращается его конец (ON),
// иначе ближайшее начало после now (OFF). ok=false, если событий нет.
func Project(days domain.DaySchedule, now time.Time) (domain.Transition, bool) {
	loc := now.Location()
	today := domain.DateOf(now)

	for _, r := range days[today] {
		cur := toInterval(today, r, loc)
		if now.Before(cur.start) || now.After(cur.end) {
			continue
		}
		last := extend(cur, flatten(days, loc))
		return domain.Transition{At: last.end, Kind: domain.TransitionOn, Date: last.date, Range: last.rng}, true
	}

	var (
		next  interval
		found bool
	)
	for _, d := range days.Dates() {
		for _, r := range days[d] {
			iv := toInterval(d, r, loc)
			if !iv.start.After(now) {
				continue
			}
			if !found || iv.start.Before(next.start) {
				next, found = iv, true
			}
		}
	}
	if !found {
		return domain.Transition{}, false
	}
	return domain.Transition{At: next.start, Kind: domain.TransitionOff, Date: next.date, Range: next.rng}, true
}

// extend продлевает конец через все интервалы, начинающиеся не позже текущего конца.
// Конец 23:59:59 смыкается с интервалом следующего дня, начинающимся в 00:00.
func extend(anchor interval, all []interval) interval {
	last := anchor
	for changed := true; changed; {
		changed = false
		limit := last.end.Add(time.Second)
		for _, iv := range all {
			if iv.start.After(limit) || !iv.end.After(last.end) {
				continue
			}
			last = iv
			changed = true
			limit = last.end.Add(time.Second)
		}
	}
	return last
}

func flatten(days domain.DaySchedule, loc *time.Location) []interval {
	var out []interval
	for _, d := range days.Dates() {
		for _, r := range days[d] {
			out = append(out, toInterval(d, r, loc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

func toInterval(d domain.Date, r domain.TimeRange, loc *time.Location) interval {
	return interval{date: d, rng: r, start: d.At(r.Start, loc), end: EndInstant(d, r, loc)}
}

// EndInstant возвращает момент окончания интервала; 23:59 означает 23:59:59.
func EndInstant(d domain.Date, r domain.TimeRange, loc *time.Location) time.Time {
	end := d.At(r.End, loc)
	if r.End.IsEndOfDay() {
		end = end.Add(59 * time.Second)
	}
	return end
}
