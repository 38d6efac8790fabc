package scraper

import (
	"regexp"
	"strings"

	"roe-outage-bot/internal/domain"
)

var (
	timeRangeRe = regexp.MustCompile(`(\d{2}:\d{2})\s*[-–—]\s*(\d{2}:\d{2})`)
	dateRe      = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
)

// placeholders — тексты ячеек, означающие «график ещё не опубликован».
var placeholders = []string{"очікується"}

// Result — результат извлечения расписаний из сетки.
type Result struct {
	Schedules     domain.EntitySchedule
	HeaderFound   bool
	SkippedRanges int
}

// Extract находит строку-заголовок с подочередями и собирает интервалы
// по каждой подочереди и дате. Отсутствие заголовка не ошибка: расписания пустые.
func Extract(grid Grid, labels []string) Result {
	res := Result{Schedules: make(domain.EntitySchedule)}
	headerIdx, columns := findHeader(grid, labels)
	if headerIdx < 0 {
		return res
	}
	res.HeaderFound = true

	entityCols := make(map[int]struct{}, len(columns))
	for _, col := range columns {
		entityCols[col] = struct{}{}
	}

	var (
		current domain.Date
		hasDate bool
	)
	for _, row := range grid[headerIdx+1:] {
		if d, ok := rowDate(row, entityCols); ok {
			current, hasDate = d, true
		}
		if !hasDate {
			continue
		}
		for _, label := range labels {
			col, ok := columns[label]
			if !ok || col >= len(row) {
				continue
			}
			text := strings.TrimSpace(row[col])
			if text == "" || isPlaceholder(text) {
				continue
			}
			ranges, skipped := parseRanges(text)
			res.SkippedRanges += skipped
			if len(ranges) == 0 {
				continue
			}
			days := res.Schedules[label]
			if days == nil {
				days = make(domain.DaySchedule)
				res.Schedules[label] = days
			}
			days[current] = appendUnique(days[current], ranges...)
		}
	}
	return res
}

// findHeader возвращает индекс первой строки, где найдено больше половины меток,
// и колонку первого вхождения каждой метки.
func findHeader(grid Grid, labels []string) (int, map[string]int) {
	if len(labels) == 0 {
		return -1, nil
	}
	wanted := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		wanted[l] = struct{}{}
	}
	for i, row := range grid {
		columns := make(map[string]int)
		for col, cell := range row {
			text := strings.TrimSpace(cell)
			if _, ok := wanted[text]; !ok {
				continue
			}
			if _, seen := columns[text]; !seen {
				columns[text] = col
			}
		}
		if len(columns)*2 > len(labels) {
			return i, columns
		}
	}
	return -1, nil
}

// rowDate ищет дату сначала вне колонок подочередей, затем в них
// (строка-разделитель дня может быть растянута colspan на всю ширину).
func rowDate(row []string, entityCols map[int]struct{}) (domain.Date, bool) {
	for _, wantEntity := range []bool{false, true} {
		for col, cell := range row {
			if _, isEntity := entityCols[col]; isEntity != wantEntity {
				continue
			}
			match := dateRe.FindString(cell)
			if match == "" {
				continue
			}
			if d, err := domain.ParseDate(match); err == nil {
				return d, true
			}
		}
	}
	return domain.Date{}, false
}

func isPlaceholder(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func parseRanges(text string) ([]domain.TimeRange, int) {
	var (
		out     []domain.TimeRange
		skipped int
	)
	for _, m := range timeRangeRe.FindAllStringSubmatch(text, -1) {
		start, err := domain.ParseClock(m[1])
		if err != nil {
			skipped++
			continue
		}
		end, err := domain.ParseClock(m[2])
		if err != nil {
			skipped++
			continue
		}
		r, err := domain.NewTimeRange(start, end)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func appendUnique(dst []domain.TimeRange, ranges ...domain.TimeRange) []domain.TimeRange {
	for _, r := range ranges {
		dup := false
		for _, existing := range dst {
			if existing == r {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, r)
		}
	}
	return dst
}
