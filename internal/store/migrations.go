package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users, interactions and escalations",
		SQL: `
			CREATE TABLE users (
				user_id      TEXT PRIMARY KEY,
				preferences  TEXT NOT NULL DEFAULT '{}',
				metadata     TEXT,
				created_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE interactions (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id     TEXT NOT NULL,
				session_id  TEXT NOT NULL DEFAULT '',
				message     TEXT NOT NULL,
				intent      TEXT NOT NULL DEFAULT '',
				timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_interactions_user ON interactions (user_id, id);

			CREATE TABLE escalations (
				id                TEXT PRIMARY KEY,
				user_id           TEXT NOT NULL,
				session_id        TEXT NOT NULL DEFAULT '',
				status            TEXT NOT NULL DEFAULT 'pending',
				reason            TEXT NOT NULL,
				priority          TEXT NOT NULL,
				suggested_agent   TEXT NOT NULL DEFAULT '',
				assigned_agent    TEXT NOT NULL DEFAULT '',
				resolution_notes  TEXT NOT NULL DEFAULT '',
				snapshot          TEXT,
				created_at        TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at        TEXT NOT NULL DEFAULT (datetime('now')),
				resolved_at       TEXT
			);

			CREATE INDEX idx_escalations_status ON escalations (status, created_at);
			CREATE INDEX idx_escalations_user ON escalations (user_id);
		`,
	},
	{
		Version: 2,
		Name:    "create engagement tasks",
		SQL: `
			CREATE TABLE engagement_tasks (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				type        TEXT NOT NULL,
				message     TEXT NOT NULL,
				trigger_at  TEXT NOT NULL,
				metadata    TEXT,
				status      TEXT NOT NULL DEFAULT 'pending',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_engagement_due ON engagement_tasks (status, trigger_at);
		`,
	},
}
