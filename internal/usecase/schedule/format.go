package schedule

import (
	"fmt"
	"strings"
	"time"

	"roe-outage-bot/internal/domain"
)

const emptyScheduleHint = "⚠️ Інтервали не знайдено (можливо на сайті ще “Очікується” або змінилась таблиця)."

// FormatSchedule формирует текст графика подочереди начиная с сегодняшней даты.
func FormatSchedule(entity string, days domain.DaySchedule, updateMarker string, now time.Time) string {
	today := domain.DateOf(now)

	var sections []string
	for _, d := range days.Dates() {
		if d.Before(today) || len(days[d]) == 0 {
			continue
		}
		lines := []string{"📅 " + d.String()}
		for _, r := range days[d] {
			lines = append(lines, fmt.Sprintf("• %s–%s", r.Start, r.End))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	var msg string
	if len(sections) == 0 {
		msg = fmt.Sprintf("Графік для %s на %s:\n%s", entity, today, emptyScheduleHint)
	} else {
		msg = fmt.Sprintf("Графік для %s:\n\n%s", entity, strings.Join(sections, "\n\n"))
	}
	if marker := strings.TrimSpace(updateMarker); marker != "" {
		msg += "\n\n" + marker
	}
	return msg
}

// FormatChange формирует уведомление об изменении графика.
func FormatChange(entity, scheduleText string) string {
	return fmt.Sprintf("🔄 Оновився графік по підчерзі %s\n\n%s", entity, scheduleText)
}

// FormatSelected формирует ответ на выбор подочереди.
func FormatSelected(entity, scheduleText string) string {
	return fmt.Sprintf("✅ Ви обрали підчергу %s\n\n%s", entity, scheduleText)
}

// FormatReminder формирует напоминание о предстоящем переходе.
func FormatReminder(kind domain.TransitionKind, leadMinutes int, at time.Time) string {
	if kind == domain.TransitionOn {
		return fmt.Sprintf("⏰ За %d хв очікується відновлення світла (%s)", leadMinutes, at.Format("15:04"))
	}
	return fmt.Sprintf("⏰ За %d хв можливе відключення світла (%s)", leadMinutes, at.Format("15:04"))
}

// FormatNext описывает ближайший переход для /status.
func FormatNext(tr domain.Transition, ok bool, now time.Time) string {
	if !ok {
		return "Найближчих відключень за графіком немає."
	}
	when := "о " + tr.At.Format("15:04")
	if domain.DateOf(tr.At) != domain.DateOf(now) {
		when = tr.At.Format("02.01") + " " + when
	}
	if tr.Kind == domain.TransitionOn {
		return "🔌 Зараз світла немає, увімкнення " + when
	}
	return "💡 Наступне відключення " + when
}
