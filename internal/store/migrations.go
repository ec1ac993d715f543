package store

// migration holds a single schema migration with its target version and
// the SQL for each supported dialect.
type migration struct {
	version  int
	sqlite   string
	postgres string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1 and must
// record itself in schema_version.
var migrations = []migration{
	{
		version: 1,
		sqlite: `
CREATE TABLE IF NOT EXISTS activities (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	type       TEXT NOT NULL,
	action     TEXT NOT NULL DEFAULT '',
	actor      TEXT NOT NULL DEFAULT '',
	details    TEXT NOT NULL DEFAULT '{}',
	status     TEXT NOT NULL DEFAULT 'success',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_activities_tenant_created ON activities(tenant_id, created_at);

CREATE TABLE IF NOT EXISTS customers (
	id                  TEXT NOT NULL,
	tenant_id           TEXT NOT NULL,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL,
	company             TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL DEFAULT 'trial',
	plan                TEXT NOT NULL DEFAULT 'free',
	monthly_value       REAL NOT NULL DEFAULT 0,
	documents_processed INTEGER NOT NULL DEFAULT 0,
	last_active_at      DATETIME,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_customers_tenant_status ON customers(tenant_id, status);

CREATE TABLE IF NOT EXISTS leads (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'storybrand',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
		postgres: `
CREATE TABLE IF NOT EXISTS activities (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	type       TEXT NOT NULL,
	action     TEXT NOT NULL DEFAULT '',
	actor      TEXT NOT NULL DEFAULT '',
	details    TEXT NOT NULL DEFAULT '{}',
	status     TEXT NOT NULL DEFAULT 'success',
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_activities_tenant_created ON activities(tenant_id, created_at);

CREATE TABLE IF NOT EXISTS customers (
	id                  TEXT NOT NULL,
	tenant_id           TEXT NOT NULL,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL,
	company             TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL DEFAULT 'trial',
	plan                TEXT NOT NULL DEFAULT 'free',
	monthly_value       DOUBLE PRECISION NOT NULL DEFAULT 0,
	documents_processed INTEGER NOT NULL DEFAULT 0,
	last_active_at      TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_customers_tenant_status ON customers(tenant_id, status);

CREATE TABLE IF NOT EXISTS leads (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'storybrand',
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sqlite: `
INSERT INTO schema_version (version) VALUES (2);
`,
		postgres: `
ALTER TABLE activities ENABLE ROW LEVEL SECURITY;
ALTER TABLE activities FORCE ROW LEVEL SECURITY;
CREATE POLICY tenant_isolation ON activities
	USING (tenant_id = current_setting('app.current_tenant_id', true))
	WITH CHECK (tenant_id = current_setting('app.current_tenant_id', true));

ALTER TABLE customers ENABLE ROW LEVEL SECURITY;
ALTER TABLE customers FORCE ROW LEVEL SECURITY;
CREATE POLICY tenant_isolation ON customers
	USING (tenant_id = current_setting('app.current_tenant_id', true))
	WITH CHECK (tenant_id = current_setting('app.current_tenant_id', true));

ALTER TABLE leads ENABLE ROW LEVEL SECURITY;
ALTER TABLE leads FORCE ROW LEVEL SECURITY;
CREATE POLICY tenant_isolation ON leads
	USING (tenant_id = current_setting('app.current_tenant_id', true))
	WITH CHECK (tenant_id = current_setting('app.current_tenant_id', true));

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
