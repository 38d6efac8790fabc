package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

// Postgres хранит настройки подписчиков в pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.SubscriberRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id      BIGINT PRIMARY KEY,
	entity       TEXT NOT NULL,
	lead_minutes INT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу подписчиков, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, schemaSQL)
	metrics.ObserveNetworkRequest("postgres", "schema_ensure", "subscribers", start, err)
	return err
}

// ListSubscribers реализует domain.SubscriberRepo.
func (p *Postgres) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT chat_id, entity, lead_minutes, created_at, updated_at
FROM subscribers ORDER BY chat_id
`)
	metrics.ObserveNetworkRequest("postgres", "subscribers_list", "subscribers", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ChatID, &s.Entity, &s.LeadMinutes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpsertSubscriber реализует domain.SubscriberRepo.
func (p *Postgres) UpsertSubscriber(ctx context.Context, sub domain.Subscriber) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := sub.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO subscribers (chat_id, entity, lead_minutes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (chat_id) DO UPDATE
SET entity=EXCLUDED.entity, lead_minutes=EXCLUDED.lead_minutes, updated_at=EXCLUDED.updated_at
`, sub.ChatID, sub.Entity, sub.LeadMinutes, createdAt, updatedAt)
	metrics.ObserveNetworkRequest("postgres", "subscribers_upsert", "subscribers", start, err)
	return err
}

// DeleteSubscriber реализует domain.SubscriberRepo.
func (p *Postgres) DeleteSubscriber(ctx context.Context, chatID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM subscribers WHERE chat_id=$1`, chatID)
	metrics.ObserveNetworkRequest("postgres", "subscribers_delete", "subscribers", start, err)
	return err
}
