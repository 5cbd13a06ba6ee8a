package repo

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id           UUID PRIMARY KEY,
		user_id      TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT,
		query        JSONB NOT NULL,
		status       TEXT NOT NULL DEFAULT 'draft'
		             CHECK (status IN ('draft', 'processing', 'completed', 'error')),
		progress     JSONB NOT NULL,
		itinerary    JSONB NOT NULL DEFAULT '{}'::jsonb,
		error        TEXT,
		requested_at TIMESTAMPTZ,
		lease_owner  TEXT,
		lease_until  TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE plans ADD COLUMN IF NOT EXISTS lease_owner TEXT`,
	`ALTER TABLE plans ADD COLUMN IF NOT EXISTS lease_until TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS plans_user_created_idx ON plans (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS plans_requested_idx ON plans (requested_at) WHERE requested_at IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS plans_processing_idx ON plans (updated_at) WHERE status = 'processing'`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT,
		query        TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'draft',
		progress     TEXT NOT NULL,
		itinerary    TEXT NOT NULL DEFAULT '{}',
		error        TEXT,
		requested_at TEXT,
		lease_owner  TEXT,
		lease_until  TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS plans_user_created_idx ON plans (user_id, created_at)`,
}
