package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"newswire/internal/notify/models"
)

// PostgresStore reads user notification settings from PostgreSQL.
// Schema (managed by the API layer's migrations, outside this service):
//
//	CREATE TABLE user_notification_settings (
//	    user_id                 TEXT PRIMARY KEY,
//	    chat_id                 BIGINT NOT NULL,
//	    urgent_notifications    BOOLEAN NOT NULL DEFAULT TRUE,
//	    daily_digest            BOOLEAN NOT NULL DEFAULT FALSE,
//	    digest_time             TEXT NOT NULL DEFAULT '08:00',
//	    min_importance_score    INT NOT NULL DEFAULT 3,
//	    max_daily_notifications INT NOT NULL DEFAULT 10,
//	    timezone                TEXT NOT NULL DEFAULT 'UTC',
//	    category_subscriptions  JSONB NOT NULL DEFAULT '{}'
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed settings store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const settingsColumns = `user_id, chat_id, urgent_notifications, daily_digest,
	digest_time, min_importance_score, max_daily_notifications, timezone,
	category_subscriptions`

func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_notification_settings WHERE user_id = $1`,
		userID)

	settings, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStore) ListUrgentEnabled(ctx context.Context) ([]models.UserSettings, error) {
	return s.list(ctx,
		`SELECT `+settingsColumns+` FROM user_notification_settings WHERE urgent_notifications`)
}

func (s *PostgresStore) ListDigestEnabled(ctx context.Context) ([]models.UserSettings, error) {
	return s.list(ctx,
		`SELECT `+settingsColumns+` FROM user_notification_settings WHERE daily_digest`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]models.UserSettings, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []models.UserSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out = append(out, *settings)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row rowScanner) (*models.UserSettings, error) {
	var settings models.UserSettings
	var subs []byte

	err := row.Scan(
		&settings.UserID,
		&settings.ChatID,
		&settings.UrgentNotifications,
		&settings.DailyDigest,
		&settings.DigestTime,
		&settings.MinImportanceScore,
		&settings.MaxDailyNotifications,
		&settings.Timezone,
		&subs,
	)
	if err != nil {
		return nil, err
	}

	if len(subs) > 0 {
		if err := json.Unmarshal(subs, &settings.CategorySubscriptions); err != nil {
			return nil, fmt.Errorf("decode category subscriptions: %w", err)
		}
	}
	return &settings, nil
}
