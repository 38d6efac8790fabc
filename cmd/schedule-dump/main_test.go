package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"roe-outage-bot/internal/domain"
)

func TestDump(t *testing.T) {
	d, _ := domain.ParseDate("10.05.2024")
	r, _ := domain.ParseTimeRange("18:00-20:00")
	snap := domain.Snapshot{
		UpdateMarker: "Оновлено: 10.05.2024 08:15",
		Schedules:    domain.EntitySchedule{"3.2": {d: {r}}},
		TableFound:   true,
	}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.FixedZone("EET", 3*60*60))

	var buf bytes.Buffer
	dump(&buf, snap, []string{"3.2", "1.1"}, true, now)
	out := buf.String()
	for _, want := range []string{"Оновлено: 10.05.2024 08:15", "• 18:00–20:00", "💡 Наступне відключення о 18:00", "fingerprint: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("в выводе нет %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "Графік для 1.1 на 10.05.2024") {
		t.Fatalf("пустая подочередь должна печатать подсказку:\n%s", out)
	}
}
