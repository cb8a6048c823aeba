// Package store owns the sqlite database shared with the text-analysis
// pipeline: quota tables and the per-owner analysis record. The voice
// pipeline only ever touches its own columns of analysis_records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"voicecoach-go/internal/types"
)

const schema = `
	CREATE TABLE IF NOT EXISTS quota_limits (
		scope TEXT NOT NULL CHECK(scope IN ('user','team','global')),
		scope_id TEXT NOT NULL DEFAULT '',
		monthly_limit INTEGER NOT NULL,
		UNIQUE(scope, scope_id)
	);

	CREATE TABLE IF NOT EXISTS quota_usage (
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		analyses_used INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, month)
	);

	CREATE TABLE IF NOT EXISTS analysis_records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		voice_analysis TEXT,
		voice_analyzed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`

// Open opens (creating if needed) the sqlite database and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer connection; sqlite serializes writes anyway and this keeps
	// concurrent reservations from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveVoiceAnalysis writes the report against its owning record. Update
// first; when the text pipeline has not created the canonical row yet, fall
// back to an upsert carrying placeholder values for the columns it owns.
// Whichever writer lands first inserts, the other updates, and neither
// clobbers the other's columns.
func (s *Store) SaveVoiceAnalysis(ctx context.Context, ownerID, userID string, result types.VoiceAnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal voice analysis: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	analyzedAt := result.AnalyzedAt.UTC().Format(time.RFC3339)

	var id string
	err = s.db.QueryRowContext(ctx, `
		UPDATE analysis_records
		SET voice_analysis = ?, voice_analyzed_at = ?, updated_at = ?
		WHERE owner_id = ?
		RETURNING id
	`, string(payload), analyzedAt, now, ownerID).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("update voice analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_records
			(id, owner_id, user_id, status, voice_analysis, voice_analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			voice_analysis = excluded.voice_analysis,
			voice_analyzed_at = excluded.voice_analyzed_at,
			updated_at = excluded.updated_at
	`, uuid.New().String(), ownerID, userID, string(payload), analyzedAt, now, now)
	if err != nil {
		return fmt.Errorf("upsert voice analysis: %w", err)
	}
	return nil
}

// VoiceAnalysis loads the stored report for an owner, or nil when absent.
func (s *Store) VoiceAnalysis(ctx context.Context, ownerID string) (*types.VoiceAnalysisResult, error) {
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT voice_analysis FROM analysis_records WHERE owner_id = ?
	`, ownerID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query voice analysis: %w", err)
	}
	if !payload.Valid || payload.String == "" {
		return nil, nil
	}

	var result types.VoiceAnalysisResult
	if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
		return nil, fmt.Errorf("decode voice analysis: %w", err)
	}
	return &result, nil
}
