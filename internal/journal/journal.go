// Package journal persists one row per dispatch to sqlite for
// operational visibility. Writes are best-effort and decoupled from the
// request path; a journal failure never fails a dispatch.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wappahq/wappa/internal/dispatch"
	"github.com/wappahq/wappa/internal/domain"
)

// Entry is one recorded dispatch.
type Entry struct {
	ID        string
	TenantID  string
	UserID    string
	Kind      domain.EventKind
	EventID   string
	Outcome   dispatch.Outcome
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Journal is the sqlite-backed dispatch log. A nil *Journal is a valid
// no-op, so callers don't branch on whether journaling is enabled.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable WAL mode: %w", err)
	}

	j := &Journal{db: db, logger: logger}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dispatches (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			user_id TEXT,
			kind TEXT NOT NULL,
			event_id TEXT,
			outcome TEXT NOT NULL,
			error TEXT,
			duration_ns INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_tenant ON dispatches(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_outcome ON dispatches(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_created ON dispatches(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record persists one dispatch. Persistence is detached from the request
// lifecycle so a client disconnect doesn't drop the row, with its own
// short timeout.
func (j *Journal) Record(ctx context.Context, e Entry) {
	if j == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(persistCtx,
		`INSERT INTO dispatches (id, tenant_id, user_id, kind, event_id, outcome, error, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.UserID, string(e.Kind), e.EventID, string(e.Outcome), e.Error, e.Duration.Nanoseconds(), e.CreatedAt,
	)
	if err != nil && j.logger != nil {
		j.logger.Error("journal write failed",
			slog.String("tenant_id", e.TenantID),
			slog.String("event_id", e.EventID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent returns the latest dispatches for a tenant, newest first.
func (j *Journal) Recent(ctx context.Context, tenantID string, limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, tenant_id, user_id, kind, event_id, outcome, error, duration_ns, created_at
		 FROM dispatches WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, outcome string
		var durationNS int64
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &kind, &e.EventID, &outcome, &e.Error, &durationNS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		e.Outcome = dispatch.Outcome(outcome)
		e.Duration = time.Duration(durationNS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
