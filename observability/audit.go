// Package observability records what the automation session actually did:
// one audit row per tool invocation, plus a periodic heartbeat. A failing
// audit store logs and moves on; it never blocks or fails a browser action.
package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/tabctl/tabctl/idgen"
)

// Invocation is one executed tool call.
type Invocation struct {
	Tool       string
	TabID      string
	Ref        string
	Generation uint64
	Success    bool
	Error      string
	Duration   time.Duration
}

// CommandLog writes tool invocations to the audit database.
type CommandLog struct {
	db    *sql.DB
	newID idgen.Generator
	log   *slog.Logger
}

// Option configures a CommandLog.
type Option func(*CommandLog)

// WithIDGenerator sets a custom generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *CommandLog) { l.newID = gen }
}

// WithLogger sets the slog logger used for write failures.
func WithLogger(log *slog.Logger) Option {
	return func(l *CommandLog) { l.log = log }
}

// NewCommandLog creates a CommandLog backed by the given database. The
// database must already carry Schema (see dbopen.WithSchema).
func NewCommandLog(db *sql.DB, opts ...Option) *CommandLog {
	l := &CommandLog{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record writes one invocation row. Errors are logged, not propagated.
func (l *CommandLog) Record(ctx context.Context, inv Invocation) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO tool_invocations (
			event_id, tool, tab_id, ref, generation, success, error, duration_ms
		) VALUES (?,?,?,?,?,?,?,?)`,
		l.newID(), inv.Tool, inv.TabID, inv.Ref, inv.Generation,
		inv.Success, inv.Error, inv.Duration.Milliseconds(),
	)
	if err != nil {
		l.log.Warn("observability: audit write failed", "tool", inv.Tool, "error", err)
	}
}

// Recent returns the most recent invocations, newest first.
func (l *CommandLog) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT tool, tab_id, ref, generation, success, error, duration_ms
		FROM tool_invocations ORDER BY created_at DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var ms int64
		if err := rows.Scan(&inv.Tool, &inv.TabID, &inv.Ref, &inv.Generation,
			&inv.Success, &inv.Error, &ms); err != nil {
			return nil, err
		}
		inv.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, inv)
	}
	return out, rows.Err()
}
