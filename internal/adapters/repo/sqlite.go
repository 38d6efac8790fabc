package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

// SQLite хранит настройки подписчиков в локальном файле.
type SQLite struct {
	db *sql.DB
}

var _ domain.SubscriberRepo = (*SQLite)(nil)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id      INTEGER PRIMARY KEY,
	entity       TEXT NOT NULL,
	lead_minutes INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
)`

// OpenSQLite открывает файл базы и создаёт схему.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ListSubscribers реализует domain.SubscriberRepo.
func (s *SQLite) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
SELECT chat_id, entity, lead_minutes, created_at, updated_at
FROM subscribers ORDER BY chat_id`)
	metrics.ObserveNetworkRequest("sqlite", "subscribers_list", "subscribers", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Subscriber
	for rows.Next() {
		var (
			sub              domain.Subscriber
			created, updated string
		)
		if err := rows.Scan(&sub.ChatID, &sub.Entity, &sub.LeadMinutes, &created, &updated); err != nil {
			return nil, err
		}
		if sub.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("created_at chat %d: %w", sub.ChatID, err)
		}
		if sub.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("updated_at chat %d: %w", sub.ChatID, err)
		}
		res = append(res, sub)
	}
	return res, rows.Err()
}

// UpsertSubscriber реализует domain.SubscriberRepo. created_at существующей записи не меняется.
func (s *SQLite) UpsertSubscriber(ctx context.Context, sub domain.Subscriber) error {
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := sub.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO subscribers (chat_id, entity, lead_minutes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE
SET entity=excluded.entity, lead_minutes=excluded.lead_minutes, updated_at=excluded.updated_at`,
		sub.ChatID, sub.Entity, sub.LeadMinutes,
		createdAt.UTC().Format(time.RFC3339Nano), updatedAt.UTC().Format(time.RFC3339Nano))
	metrics.ObserveNetworkRequest("sqlite", "subscribers_upsert", "subscribers", start, err)
	return err
}

// DeleteSubscriber реализует domain.SubscriberRepo.
func (s *SQLite) DeleteSubscriber(ctx context.Context, chatID int64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	metrics.ObserveNetworkRequest("sqlite", "subscribers_delete", "subscribers", start, err)
	return err
}
