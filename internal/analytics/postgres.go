package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Postgres writes events into analytics_events.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// Log inserts one event. Events without a user are skipped, and a repeated
// source event key is ignored by the unique index. Props must already be
// free of raw user text.
func (p *Postgres) Log(ctx context.Context, env Envelope, eventName string, props any, sourceEventKey string) error {
	if eventName == "" {
		return nil
	}

	userID := env.UserID
	if userID == 0 {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return nil
		}
		userID = uid
	}

	b, err := json.Marshal(props)
	if err != nil {
		return nil
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, event_time, user_id, session_id,
			platform, app_version, device_locale,
			source_event_key, properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (source_event_key) DO NOTHING
	`, eventName, p.now().UTC(), userID, nullable(env.SessionID),
		env.Platform, env.AppVersion, nullable(env.DeviceLocale),
		nullable(sourceEventKey), string(b),
	)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
