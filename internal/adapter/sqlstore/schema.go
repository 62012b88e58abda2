package sqlstore

var schema = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS reports (
	seq            BIGINT AUTO_INCREMENT PRIMARY KEY,
	id             VARCHAR(36) NOT NULL UNIQUE,
	reported_at    DATETIME(6) NOT NULL,
	issue_type     VARCHAR(255) NOT NULL,
	custom_issue   TEXT NOT NULL,
	description    TEXT NOT NULL,
	location       TEXT NOT NULL,
	latitude       DOUBLE NULL,
	longitude      DOUBLE NULL,
	image_filename VARCHAR(255) NULL,
	status         VARCHAR(32) NOT NULL,
	updated_at     DATETIME(6) NULL,
	INDEX idx_reports_status (status)
)`,
	},
	Postgres: {
		`CREATE TABLE IF NOT EXISTS reports (
	seq            BIGSERIAL PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	reported_at    TIMESTAMPTZ NOT NULL,
	issue_type     TEXT NOT NULL,
	custom_issue   TEXT NOT NULL,
	description    TEXT NOT NULL,
	location       TEXT NOT NULL,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	image_filename TEXT,
	status         TEXT NOT NULL,
	updated_at     TIMESTAMPTZ
)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status)`,
	},
}
