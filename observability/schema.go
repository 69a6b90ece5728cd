package observability

// Schema for the command audit database. Applied via dbopen.WithSchema;
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	event_id    TEXT PRIMARY KEY,
	tool        TEXT NOT NULL,
	tab_id      TEXT NOT NULL DEFAULT '',
	ref         TEXT NOT NULL DEFAULT '',
	generation  INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tool_invocations_tool
	ON tool_invocations (tool, created_at);
`
