// Package history keeps a SQLite log of processed exchanges: every user
// and assistant turn with its intent, confidence and the knowledge items
// it touched. The log backs the diagnostics surface and the bounded
// conversation window.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/synaptiq/synaptiq/internal/models"
)

// Exchange is one logged turn.
type Exchange struct {
	MessageID     string
	Role          models.Role
	Content       string
	Intent        string
	Confidence    float64
	DurationMs    int64
	KnowledgeUsed []string
	Timestamp     time.Time
}

// Summary aggregates the log for stats reporting.
type Summary struct {
	Exchanges     int
	UserTurns     int
	AvgConfidence float64
}

// Log is a SQLite-backed exchange log.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the exchange log at dbPath and initializes the
// schema.
func Open(dbPath string) (*Log, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	log := &Log{db: db}
	if err := log.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return log, nil
}

func (l *Log) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		intent TEXT,
		confidence REAL,
		duration_ms INTEGER,
		knowledge_used TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exchanges_timestamp ON exchanges(timestamp);
	CREATE INDEX IF NOT EXISTS idx_exchanges_message_id ON exchanges(message_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one exchange to the log.
func (l *Log) Record(ctx context.Context, ex Exchange) error {
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}

	knowledgeJSON := "[]"
	if len(ex.KnowledgeUsed) > 0 {
		data, err := json.Marshal(ex.KnowledgeUsed)
		if err == nil {
			knowledgeJSON = string(data)
		}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO exchanges (message_id, role, content, intent, confidence, duration_ms, knowledge_used, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.MessageID, string(ex.Role), ex.Content, ex.Intent,
		ex.Confidence, ex.DurationMs, knowledgeJSON, ex.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// Recent returns the most recent n exchanges, oldest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Exchange, error) {
	if n <= 0 {
		n = 20
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT message_id, role, content, intent, confidence, duration_ms, knowledge_used, timestamp
		FROM exchanges ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var role, knowledgeJSON string
		if err := rows.Scan(&ex.MessageID, &role, &ex.Content, &ex.Intent,
			&ex.Confidence, &ex.DurationMs, &knowledgeJSON, &ex.Timestamp); err != nil {
			return nil, err
		}
		ex.Role = models.Role(role)
		if knowledgeJSON != "" && knowledgeJSON != "[]" {
			// Malformed rows keep an empty list rather than failing the read.
			_ = json.Unmarshal([]byte(knowledgeJSON), &ex.KnowledgeUsed)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Trim deletes everything but the most recent keep exchanges.
func (l *Log) Trim(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := l.db.ExecContext(ctx, `
		DELETE FROM exchanges WHERE id NOT IN (
			SELECT id FROM exchanges ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("trim exchanges: %w", err)
	}
	return nil
}

// Count returns the number of logged exchanges.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n)
	return n, err
}

// Summarize aggregates the log for stats reporting. Assistant turns carry
// the response confidence, so the average is computed over those.
func (l *Log) Summarize(ctx context.Context) (*Summary, error) {
	s := &Summary{}
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN role = 'assistant' THEN confidence END), 0)
		FROM exchanges`).Scan(&s.Exchanges, &s.UserTurns, &s.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("summarize exchanges: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
