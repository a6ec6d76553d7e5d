package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/itiky/offline-bridge/model"
)

const (
	SQLiteDriver   = "sqlite3"
	PostgresDriver = "postgres"
)

type (
	// SQLStore implements the Storage interface over SQLite (local single-user
	// store, the default) or Postgres.
	SQLStore struct {
		db *sqlx.DB
	}

	cacheEntryRow struct {
		Bucket      string    `db:"bucket"`
		Key         string    `db:"key"`
		Payload     string    `db:"payload"`
		ContentType string    `db:"content_type"`
		StoredAt    time.Time `db:"stored_at"`
	}

	pendingActionRow struct {
		Id         string         `db:"id"`
		Kind       string         `db:"kind"`
		Endpoint   string         `db:"endpoint"`
		Method     string         `db:"method"`
		Body       sql.NullString `db:"body"`
		Headers    string         `db:"headers"`
		EnqueuedAt time.Time      `db:"enqueued_at"`
	}
)

// PutCache implements the Storage interface.
func (s *SQLStore) PutCache(ctx context.Context, entry model.CachedResponse) error {
	query := `
		INSERT INTO cache_entries (bucket, key, payload, content_type, stored_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bucket, key) DO UPDATE SET
			payload = excluded.payload,
			content_type = excluded.content_type,
			stored_at = excluded.stored_at
	`

	if _, err := s.db.ExecContext(ctx, query, string(entry.Bucket), entry.Key, string(entry.Payload), entry.ContentType, entry.StoredAt.UTC()); err != nil {
		return fmt.Errorf("cache_entries upsert: %w", err)
	}

	return nil
}

// GetCache implements the Storage interface.
func (s *SQLStore) GetCache(ctx context.Context, bucket model.CacheBucket, key string, maxAge time.Duration) (model.CachedResponse, error) {
	query := `
		SELECT bucket, key, payload, content_type, stored_at
		FROM cache_entries
		WHERE bucket = $1 AND key = $2
	`

	row := cacheEntryRow{}
	if err := s.db.GetContext(ctx, &row, query, string(bucket), key); err != nil {
		if err == sql.ErrNoRows {
			return model.CachedResponse{}, ErrNotFound
		}
		return model.CachedResponse{}, fmt.Errorf("cache_entries select: %w", err)
	}

	entry := model.CachedResponse{
		Key:         row.Key,
		Bucket:      model.CacheBucket(row.Bucket),
		Payload:     []byte(row.Payload),
		ContentType: row.ContentType,
		StoredAt:    row.StoredAt,
	}
	if entry.IsStale(time.Now().UTC(), maxAge) {
		return model.CachedResponse{}, ErrNotFound
	}

	return entry, nil
}

// SavePendingAction implements the Storage interface.
func (s *SQLStore) SavePendingAction(ctx context.Context, action model.PendingAction) error {
	headersRaw, err := json.Marshal(action.Headers)
	if err != nil {
		return fmt.Errorf("headers marshal: %w", err)
	}

	body := sql.NullString{}
	if action.Body != nil {
		body = sql.NullString{String: string(action.Body), Valid: true}
	}

	query := `
		INSERT INTO pending_actions (id, kind, endpoint, method, body, headers, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.ExecContext(ctx, query, action.Id, string(action.Kind), action.Endpoint, action.Method, body, string(headersRaw), action.EnqueuedAt.UTC()); err != nil {
		return fmt.Errorf("pending_actions insert: %w", err)
	}

	return nil
}

// ListPendingActions implements the Storage interface.
func (s *SQLStore) ListPendingActions(ctx context.Context) ([]model.PendingAction, error) {
	query := `
		SELECT id, kind, endpoint, method, body, headers, enqueued_at
		FROM pending_actions
		ORDER BY id ASC
	`

	rows := []pendingActionRow{}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("pending_actions select: %w", err)
	}

	actions := make([]model.PendingAction, 0, len(rows))
	for _, row := range rows {
		headers := map[string]string{}
		if row.Headers != "" {
			if err := json.Unmarshal([]byte(row.Headers), &headers); err != nil {
				return nil, fmt.Errorf("pending_actions (%s): headers unmarshal: %w", row.Id, err)
			}
		}

		var rawBody []byte
		if row.Body.Valid {
			rawBody = []byte(row.Body.String)
		}

		actions = append(actions, model.PendingAction{
			Id:         row.Id,
			Kind:       model.OperationKind(row.Kind),
			Endpoint:   row.Endpoint,
			Method:     row.Method,
			Body:       rawBody,
			Headers:    headers,
			EnqueuedAt: row.EnqueuedAt,
		})
	}

	return actions, nil
}

// DeletePendingAction implements the Storage interface.
func (s *SQLStore) DeletePendingAction(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pending_actions delete: %w", err)
	}

	return nil
}

// PendingCount implements the Storage interface.
func (s *SQLStore) PendingCount(ctx context.Context) (int, error) {
	count := 0
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pending_actions`); err != nil {
		return 0, fmt.Errorf("pending_actions count: %w", err)
	}

	return count, nil
}

// ClearPendingActions implements the Storage interface.
func (s *SQLStore) ClearPendingActions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions`); err != nil {
		return fmt.Errorf("pending_actions clear: %w", err)
	}

	return nil
}

// Close implements the Storage interface.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// initSchema creates the two collections if they do not exist.
func (s *SQLStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			payload TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			stored_at TIMESTAMP NOT NULL,
			PRIMARY KEY (bucket, key)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_actions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			body TEXT,
			headers TEXT NOT NULL DEFAULT '{}',
			enqueued_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_actions_enqueued_at ON pending_actions (enqueued_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("schema init: %w", err)
		}
	}

	return nil
}

// NewSQLStore creates a new SQLStore object and initializes its schema.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver != SQLiteDriver && driver != PostgresDriver {
		return nil, fmt.Errorf("%s: unsupported: %s", "driver", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty", "dsn")
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Connect (%s): %w", driver, err)
	}

	if driver == SQLiteDriver {
		// SQLite does not support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
