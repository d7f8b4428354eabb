package sqlite

// Schema is the full SQLite schema for the Keepsake store.
// Executed on every open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id             TEXT PRIMARY KEY,
	content        TEXT NOT NULL,
	content_type   TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	latitude       REAL,
	longitude      REAL,
	location_name  TEXT,
	audio_uri      TEXT,
	image_uri      TEXT,
	link_url       TEXT,
	link_title     TEXT,
	link_preview   TEXT,
	focus_tags     TEXT,
	view_count     INTEGER NOT NULL DEFAULT 0,
	last_viewed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_memories_content_type ON memories(content_type);
CREATE INDEX IF NOT EXISTS idx_memories_view_count ON memories(view_count DESC);

CREATE TABLE IF NOT EXISTS focus_goals (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_focus_goals_active ON focus_goals(is_active);

CREATE TABLE IF NOT EXISTS user_preferences (
	id               INTEGER PRIMARY KEY CHECK (id = 1),
	display_name     TEXT NOT NULL,
	avatar_index     INTEGER NOT NULL DEFAULT 0,
	theme_mode       TEXT NOT NULL DEFAULT 'auto',
	location_enabled INTEGER NOT NULL DEFAULT 0
);
`
