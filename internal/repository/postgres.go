package repository

import (
	"context"
	"fmt"
	"time"

	"compass/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const turnLogSchema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id               BIGSERIAL PRIMARY KEY,
	session_id       TEXT        NOT NULL,
	prompt           TEXT        NOT NULL,
	message          TEXT,
	fast_path        BOOLEAN     NOT NULL DEFAULT FALSE,
	filters_before   JSONB       NOT NULL,
	filters_after    JSONB       NOT NULL,
	keywords         JSONB       NOT NULL DEFAULT '[]',
	response_time_ms INTEGER     NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns (session_id, created_at);
`

// PostgresTurnLog records resolved conversation turns for later analysis
type PostgresTurnLog struct {
	db *sqlx.DB
}

// NewPostgresTurnLog connects to PostgreSQL
func NewPostgresTurnLog(dsn string, maxConn, maxIdleConn int) (*PostgresTurnLog, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTurnLog{db: db}, nil
}

// NewPostgresTurnLogWithDB wraps an existing handle
func NewPostgresTurnLogWithDB(db *sqlx.DB) *PostgresTurnLog {
	return &PostgresTurnLog{db: db}
}

// Close closes the database connection
func (r *PostgresTurnLog) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the turn log table when missing
func (r *PostgresTurnLog) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, turnLogSchema); err != nil {
		return fmt.Errorf("failed to create turn log schema: %w", err)
	}
	return nil
}

// LogTurn inserts one turn and fills its id and creation time
func (r *PostgresTurnLog) LogTurn(ctx context.Context, rec *model.TurnRecord) error {
	query := `
		INSERT INTO conversation_turns
			(session_id, prompt, message, fast_path, filters_before, filters_after, keywords, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		rec.SessionID,
		rec.Prompt,
		rec.Message,
		rec.FastPath,
		rec.FiltersBefore,
		rec.FiltersAfter,
		rec.Keywords,
		rec.ResponseTimeMs,
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}

// SessionTurns returns the logged turns of a session, oldest first
func (r *PostgresTurnLog) SessionTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error) {
	query := `
		SELECT
			id, session_id, prompt, message, fast_path,
			filters_before, filters_after, keywords, response_time_ms, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	turns := []model.TurnRecord{}
	if err := r.db.SelectContext(ctx, &turns, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch turns: %w", err)
	}
	return turns, nil
}
