package database

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tone_preferences (
		user_id VARCHAR(128) NOT NULL,
		preference_type VARCHAR(32) NOT NULL,
		target_identifier VARCHAR(128) NOT NULL,
		profile JSONB NOT NULL,
		emails_analyzed INT NOT NULL DEFAULT 0,
		batch_count INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, preference_type, target_identifier)
	)`,
	`CREATE TABLE IF NOT EXISTS user_relationships (
		user_id VARCHAR(128) NOT NULL,
		recipient_email VARCHAR(320) NOT NULL,
		relationship_type VARCHAR(32) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, recipient_email)
	)`,
	`CREATE TABLE IF NOT EXISTS user_accounts (
		user_id VARCHAR(128) PRIMARY KEY,
		email_address VARCHAR(320) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS mail_credentials (
		user_id VARCHAR(128) NOT NULL,
		account_email VARCHAR(320) NOT NULL,
		host VARCHAR(255) NOT NULL DEFAULT '',
		port INT NOT NULL DEFAULT 0,
		username VARCHAR(320) NOT NULL DEFAULT '',
		encrypted_secret TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, account_email)
	)`,
	`CREATE TABLE IF NOT EXISTS engine_events (
		id SERIAL PRIMARY KEY,
		event_type VARCHAR(50) NOT NULL,
		user_id VARCHAR(128) NOT NULL DEFAULT '',
		count INT NOT NULL DEFAULT 1,
		errors INT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		provider VARCHAR(64) NOT NULL DEFAULT '',
		metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_engine_events_type_created ON engine_events(event_type, created_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS tone_preferences (
		user_id VARCHAR(128) NOT NULL,
		preference_type VARCHAR(32) NOT NULL,
		target_identifier VARCHAR(128) NOT NULL,
		profile JSON NOT NULL,
		emails_analyzed INT NOT NULL DEFAULT 0,
		batch_count INT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, preference_type, target_identifier)
	)`,
	`CREATE TABLE IF NOT EXISTS user_relationships (
		user_id VARCHAR(128) NOT NULL,
		recipient_email VARCHAR(320) NOT NULL,
		relationship_type VARCHAR(32) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, recipient_email)
	)`,
	`CREATE TABLE IF NOT EXISTS user_accounts (
		user_id VARCHAR(128) PRIMARY KEY,
		email_address VARCHAR(320) NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS mail_credentials (
		user_id VARCHAR(128) NOT NULL,
		account_email VARCHAR(320) NOT NULL,
		host VARCHAR(255) NOT NULL DEFAULT '',
		port INT NOT NULL DEFAULT 0,
		username VARCHAR(320) NOT NULL DEFAULT '',
		encrypted_secret TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, account_email)
	)`,
	`CREATE TABLE IF NOT EXISTS engine_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		event_type VARCHAR(50) NOT NULL,
		user_id VARCHAR(128) NOT NULL DEFAULT '',
		count INT NOT NULL DEFAULT 1,
		errors INT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		provider VARCHAR(64) NOT NULL DEFAULT '',
		metadata JSON,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_engine_events_type_created (event_type, created_at)
	)`,
}
