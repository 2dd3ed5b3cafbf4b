// Package db provides PostgreSQL database access and management for the
// recording/session control plane.
//
// This file implements the core database connection and lifecycle
// management: connection pooling, schema migration, and the shared
// *Database handle every store in this package is built around.
//
// Dependencies:
// - PostgreSQL 12+ (required)
// - lib/pq driver for database/sql
package db

import (
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// validateConfig validates database configuration to prevent SQL injection
func validateConfig(config Config) error {
	// Validate host (must be valid hostname or IP)
	if config.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if net.ParseIP(config.Host) == nil {
		hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]{0,253}[a-zA-Z0-9])?$`)
		if !hostnameRegex.MatchString(config.Host) {
			return fmt.Errorf("invalid database host: %s", config.Host)
		}
	}

	if config.Port == "" {
		return fmt.Errorf("database port cannot be empty")
	}
	port, err := strconv.Atoi(config.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid database port: %s (must be 1-65535)", config.Port)
	}

	if config.User == "" {
		return fmt.Errorf("database user cannot be empty")
	}
	userRegex := regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	if !userRegex.MatchString(config.User) {
		return fmt.Errorf("invalid database user: %s (only alphanumeric, underscore, and hyphen allowed)", config.User)
	}

	if config.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	dbNameRegex := regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	if !dbNameRegex.MatchString(config.DBName) {
		return fmt.Errorf("invalid database name: %s (only alphanumeric, underscore, and hyphen allowed)", config.DBName)
	}

	validSSLModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if config.SSLMode != "" {
		valid := false
		for _, mode := range validSSLModes {
			if config.SSLMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid SSL mode: %s (must be one of: %s)", config.SSLMode, strings.Join(validSSLModes, ", "))
		}
	}

	if config.SSLMode == "" || config.SSLMode == "disable" {
		fmt.Println("WARNING: Database SSL/TLS is DISABLED - This is INSECURE for production!")
		fmt.Println("         Set DB_SSL_MODE to 'require', 'verify-ca', or 'verify-full'")
	}

	return nil
}

// NewDatabase creates a new database connection with connection pooling
func NewDatabase(config Config) (*Database, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewDatabaseForTesting creates a Database from an existing sql.DB connection.
// This constructor is intended ONLY FOR TESTING to enable dependency injection
// with mock databases (e.g., sqlmock).
func NewDatabaseForTesting(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB
func (d *Database) DB() *sql.DB {
	return d.db
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS global_state (
			id VARCHAR(36) PRIMARY KEY,
			default_permissions TEXT[] DEFAULT '{}',
			captcha_provider_url VARCHAR(255),
			captcha_secret VARCHAR(255),
			session_validity_seconds BIGINT NOT NULL DEFAULT 604800
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			username VARCHAR(32) NOT NULL,
			email VARCHAR(255) NOT NULL,
			display_name VARCHAR(64) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			display_color VARCHAR(16) NOT NULL DEFAULT '#7C3AED',
			last_login_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now(),
			UNIQUE (organization_id, username),
			UNIQUE (organization_id, email)
		)`,

		`CREATE TABLE IF NOT EXISTS user_sessions (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS access_tokens (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			secret_hash VARCHAR(255) NOT NULL,
			scopes JSONB NOT NULL DEFAULT '[]',
			tags JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now(),
			last_used_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_tokens_org_id ON access_tokens(organization_id)`,

		`CREATE TABLE IF NOT EXISTS s3_buckets (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			region VARCHAR(64) NOT NULL,
			endpoint VARCHAR(255),
			tags JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_s3_buckets_org_id ON s3_buckets(organization_id)`,

		`CREATE TABLE IF NOT EXISTS recording_configs (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			s3_bucket_id VARCHAR(36) NOT NULL REFERENCES s3_buckets(id),
			renditions TEXT[] NOT NULL DEFAULT '{}',
			tags JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_configs_org_id ON recording_configs(organization_id)`,

		`CREATE TABLE IF NOT EXISTS playback_key_pairs (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			public_key TEXT NOT NULL,
			private_key TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_key_pairs_org_id ON playback_key_pairs(organization_id)`,

		`CREATE TABLE IF NOT EXISTS recordings (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			room_id VARCHAR(36),
			recording_config_id VARCHAR(36) REFERENCES recording_configs(id),
			s3_bucket_id VARCHAR(36) NOT NULL REFERENCES s3_buckets(id),
			tags JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_org_id ON recordings(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_deleted_at ON recordings(deleted_at)`,

		`CREATE TABLE IF NOT EXISTS recording_thumbnails (
			id VARCHAR(36) PRIMARY KEY,
			recording_id VARCHAR(36) NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			idx INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_thumbnails_recording_id ON recording_thumbnails(recording_id)`,

		`CREATE TABLE IF NOT EXISTS recording_renditions (
			id VARCHAR(36) PRIMARY KEY,
			recording_id VARCHAR(36) NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			rendition VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_renditions_recording_id ON recording_renditions(recording_id)`,

		`CREATE TABLE IF NOT EXISTS recording_rendition_segments (
			id VARCHAR(36) PRIMARY KEY,
			recording_id VARCHAR(36) NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			rendition VARCHAR(32) NOT NULL,
			idx INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_rendition_segments_recording_id ON recording_rendition_segments(recording_id)`,

		`CREATE TABLE IF NOT EXISTS playback_sessions (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			recording_id VARCHAR(36) NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_sessions_recording_id ON playback_sessions(recording_id)`,

		// recording_delete_pending marks a soft-deleted recording whose Phase B
		// cleanup-batch publish has not yet been confirmed sent; internal/reconcile
		// clears a row once its batches have been republished successfully.
		`CREATE TABLE IF NOT EXISTS recording_delete_pending (
			recording_id VARCHAR(36) PRIMARY KEY REFERENCES recordings(id) ON DELETE CASCADE,
			organization_id VARCHAR(36) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			s3_bucket_id VARCHAR(36) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}
