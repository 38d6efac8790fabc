package scraper

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

var updateMarkerRe = regexp.MustCompile(`Оновлено:\s*\d{2}\.\d{2}\.\d{4}\s*\d{2}:\d{2}`)

// Parser разбирает страницу ROE в снимок расписаний.
type Parser struct {
	labels []string
	log    zerolog.Logger
	now    func() time.Time
}

var _ domain.ScheduleParser = (*Parser)(nil)

// NewParser создаёт парсер для известных подочередей.
func NewParser(labels []string, log zerolog.Logger) *Parser {
	return &Parser{labels: append([]string(nil), labels...), log: log, now: time.Now}
}

// Parse никогда не возвращает ошибку: при сбое разбора расписания пустые, TableFound=false.
func (p *Parser) Parse(doc []byte) domain.Snapshot {
	snap := domain.Snapshot{Schedules: make(domain.EntitySchedule), FetchedAt: p.now()}
	parsed, err := ParseHTML(doc)
	if err != nil {
		metrics.ParseFailures.Inc()
		p.log.Warn().Err(err).Msg("scraper: не удалось разобрать HTML")
		return snap
	}
	snap.UpdateMarker = FindUpdateMarker(parsed.Text())

	for _, table := range parsed.Tables() {
		res := Extract(Materialize(table), p.labels)
		if !res.HeaderFound {
			continue
		}
		snap.Schedules = res.Schedules
		snap.TableFound = true
		if res.SkippedRanges > 0 {
			metrics.SkippedRanges.Add(float64(res.SkippedRanges))
			p.log.Debug().Int("skipped", res.SkippedRanges).Msg("scraper: пропущены некорректные интервалы")
		}
		return snap
	}

	metrics.ParseFailures.Inc()
	p.log.Warn().Msg("scraper: таблица с подочередями не найдена")
	return snap
}

// FindUpdateMarker возвращает строку «Оновлено: ДД.ММ.ГГГГ ЧЧ:ММ» или пустую строку.
func FindUpdateMarker(text string) string {
	return updateMarkerRe.FindString(text)
}
