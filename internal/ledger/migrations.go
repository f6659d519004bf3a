package ledger

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	started_at       DATETIME NOT NULL,
	finished_at      DATETIME NOT NULL,
	outcome          TEXT NOT NULL DEFAULT 'completed'
		CHECK(outcome IN ('completed', 'failed', 'interrupted')),
	detail           TEXT NOT NULL DEFAULT '',
	emails_processed INTEGER NOT NULL DEFAULT 0,
	replies_found    INTEGER NOT NULL DEFAULT 0,
	rows_matched     INTEGER NOT NULL DEFAULT 0,
	row_updates      INTEGER NOT NULL DEFAULT 0,
	extraction_calls INTEGER NOT NULL DEFAULT 0,
	errors           INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	at      DATETIME NOT NULL,
	kind    TEXT NOT NULL,
	detail  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);

CREATE INDEX IF NOT EXISTS idx_run_events_kind ON run_events(kind);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
