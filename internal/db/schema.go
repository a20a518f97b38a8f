// internal/db/schema.go
package db

import (
	"database/sql"
	"fmt"
)

// schemaDDL creates every table if missing. Mirrors the entity model: the
// hierarchy cascades downward (company -> campaigns -> ad groups) and into
// the association tables, but keywords themselves are never cascade-deleted.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		user_id VARCHAR(255) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_user_id ON companies (user_id)`,

	`CREATE TABLE IF NOT EXISTS ad_campaigns (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		user_id VARCHAR(255) NOT NULL,
		company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ad_campaigns_user_id ON ad_campaigns (user_id)`,

	`CREATE TABLE IF NOT EXISTS ad_groups (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		user_id VARCHAR(255) NOT NULL,
		ad_campaign_id INTEGER NOT NULL REFERENCES ad_campaigns(id) ON DELETE CASCADE,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ad_groups_user_id ON ad_groups (user_id)`,

	`CREATE TABLE IF NOT EXISTS keywords (
		id SERIAL PRIMARY KEY,
		keyword VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		trash BOOLEAN,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_keyword_per_user UNIQUE (keyword, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_keywords_user_id ON keywords (user_id)`,

	`CREATE TABLE IF NOT EXISTS company_keyword (
		id SERIAL PRIMARY KEY,
		company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		broad BOOLEAN,
		phrase BOOLEAN,
		exact BOOLEAN,
		pause BOOLEAN,
		CONSTRAINT unique_company_keyword UNIQUE (company_id, keyword_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_company_keyword_user_id ON company_keyword (user_id)`,

	`CREATE TABLE IF NOT EXISTS ad_campaign_keyword (
		id SERIAL PRIMARY KEY,
		ad_campaign_id INTEGER NOT NULL REFERENCES ad_campaigns(id) ON DELETE CASCADE,
		keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		broad BOOLEAN,
		phrase BOOLEAN,
		exact BOOLEAN,
		pause BOOLEAN,
		CONSTRAINT unique_ad_campaign_keyword UNIQUE (ad_campaign_id, keyword_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ad_campaign_keyword_user_id ON ad_campaign_keyword (user_id)`,

	`CREATE TABLE IF NOT EXISTS ad_group_keyword (
		id SERIAL PRIMARY KEY,
		ad_group_id INTEGER NOT NULL REFERENCES ad_groups(id) ON DELETE CASCADE,
		keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		broad BOOLEAN,
		phrase BOOLEAN,
		exact BOOLEAN,
		pause BOOLEAN,
		CONSTRAINT unique_ad_group_keyword UNIQUE (ad_group_id, keyword_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ad_group_keyword_user_id ON ad_group_keyword (user_id)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects (user_id)`,

	`CREATE TABLE IF NOT EXISTS project_company (
		id SERIAL PRIMARY KEY,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_project_company UNIQUE (project_id, company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS project_ad_campaign (
		id SERIAL PRIMARY KEY,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		ad_campaign_id INTEGER NOT NULL REFERENCES ad_campaigns(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_project_ad_campaign UNIQUE (project_id, ad_campaign_id)
	)`,
	`CREATE TABLE IF NOT EXISTS project_ad_group (
		id SERIAL PRIMARY KEY,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		ad_group_id INTEGER NOT NULL REFERENCES ad_groups(id) ON DELETE CASCADE,
		user_id VARCHAR(255) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_project_ad_group UNIQUE (project_id, ad_group_id)
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		key VARCHAR(255) NOT NULL,
		value VARCHAR(1000),
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT unique_user_setting UNIQUE (user_id, key)
	)`,

	`CREATE TABLE IF NOT EXISTS column_mappings (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		source_company_id INTEGER REFERENCES companies(id) ON DELETE CASCADE,
		source_ad_campaign_id INTEGER REFERENCES ad_campaigns(id) ON DELETE CASCADE,
		source_ad_group_id INTEGER REFERENCES ad_groups(id) ON DELETE CASCADE,
		source_match_type VARCHAR(50) NOT NULL,
		target_company_id INTEGER REFERENCES companies(id) ON DELETE CASCADE,
		target_ad_campaign_id INTEGER REFERENCES ad_campaigns(id) ON DELETE CASCADE,
		target_ad_group_id INTEGER REFERENCES ad_groups(id) ON DELETE CASCADE,
		target_match_type VARCHAR(50) NOT NULL,
		created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_column_mappings_user_id ON column_mappings (user_id)`,
}

// relationCleanupTrigger deletes an association row the moment an update
// leaves all four match fields NULL. Rows in that state must never persist;
// the reconciliation engine and the worker sweep enforce the same rule.
const relationCleanupTrigger = `
	CREATE OR REPLACE FUNCTION delete_empty_%[1]s_func()
	RETURNS TRIGGER AS $$
	BEGIN
		IF NEW.broad IS NULL AND NEW.phrase IS NULL AND NEW.exact IS NULL AND NEW.pause IS NULL THEN
			DELETE FROM %[1]s WHERE id = NEW.id;
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS delete_empty_%[1]s ON %[1]s;
	CREATE TRIGGER delete_empty_%[1]s
		AFTER UPDATE ON %[1]s
		FOR EACH ROW
		EXECUTE FUNCTION delete_empty_%[1]s_func();
`

var relationTables = []string{"company_keyword", "ad_campaign_keyword", "ad_group_keyword"}

// Bootstrap creates the schema and relation-cleanup triggers. Safe to run on
// every server start.
func Bootstrap(conn *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	for _, table := range relationTables {
		if _, err := conn.Exec(fmt.Sprintf(relationCleanupTrigger, table)); err != nil {
			return fmt.Errorf("trigger bootstrap for %s: %w", table, err)
		}
	}
	return nil
}
