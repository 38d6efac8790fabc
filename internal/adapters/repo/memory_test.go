package repo

import (
	"context"
	"testing"
	"time"

	"roe-outage-bot/internal/domain"
)

func TestMemoryUpsertKeepsCreatedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	if err := m.UpsertSubscriber(ctx, domain.Subscriber{ChatID: 2, Entity: "1.1", LeadMinutes: 10, CreatedAt: created}); err != nil {
		t.Fatalf("UpsertSubscriber: %v", err)
	}
	if err := m.UpsertSubscriber(ctx, domain.Subscriber{ChatID: 1, Entity: "2.2", LeadMinutes: 5}); err != nil {
		t.Fatalf("UpsertSubscriber: %v", err)
	}
	if err := m.UpsertSubscriber(ctx, domain.Subscriber{ChatID: 2, Entity: "3.1", LeadMinutes: 30, CreatedAt: created.Add(time.Hour)}); err != nil {
		t.Fatalf("UpsertSubscriber: %v", err)
	}

	subs, err := m.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(subs) != 2 || subs[0].ChatID != 1 || subs[1].ChatID != 2 {
		t.Fatalf("неожиданный список: %+v", subs)
	}
	if subs[1].Entity != "3.1" || subs[1].LeadMinutes != 30 {
		t.Fatalf("обновление не применилось: %+v", subs[1])
	}
	if !subs[1].CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt изменился: %s", subs[1].CreatedAt)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.UpsertSubscriber(ctx, domain.Subscriber{ChatID: 7, Entity: "1.1", LeadMinutes: 10})
	if err := m.DeleteSubscriber(ctx, 7); err != nil {
		t.Fatalf("DeleteSubscriber: %v", err)
	}
	if err := m.DeleteSubscriber(ctx, 7); err != nil {
		t.Fatalf("повторное удаление не должно падать: %v", err)
	}
	subs, _ := m.ListSubscribers(ctx)
	if len(subs) != 0 {
		t.Fatalf("ожидали пустой список, получили %+v", subs)
	}
}
