// Package dbtest opens throwaway SQLite databases carrying the storefront
// schema so repository code can be tested without Postgres.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema mirrors the goose migrations with SQLite types. Dates are stored
// as DATETIME text and money as NUMERIC.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		login TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'buyer',
		first_name TEXT,
		last_name TEXT,
		address TEXT,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT users_login_key UNIQUE (login),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		icon TEXT,
		archived BOOLEAN NOT NULL DEFAULT 0,
		parent_id TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE sellers (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT NOT NULL,
		description TEXT,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category_id TEXT NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE prices (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		price NUMERIC NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT prices_product_seller_key UNIQUE (product_id, seller_id)
	)`,
	`CREATE TABLE specifications (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE discounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		kind TEXT NOT NULL,
		method TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		value NUMERIC NOT NULL DEFAULT 0,
		quantity_gt INTEGER,
		quantity_lt INTEGER,
		total_gt NUMERIC,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE discount_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE discounts_products (
		discount_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		PRIMARY KEY (discount_id, product_id)
	)`,
	`CREATE TABLE discounts_categories (
		discount_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		PRIMARY KEY (discount_id, category_id)
	)`,
	`CREATE TABLE discounts_groups (
		discount_id TEXT NOT NULL,
		product_group_id TEXT NOT NULL,
		PRIMARY KEY (discount_id, product_group_id)
	)`,
	`CREATE TABLE discount_groups_products (
		product_group_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		PRIMARY KEY (product_group_id, product_id)
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		delivery_city TEXT NOT NULL,
		delivery_address TEXT NOT NULL,
		delivery_type TEXT NOT NULL DEFAULT 'store',
		payment_type TEXT NOT NULL DEFAULT 'store',
		status TEXT NOT NULL DEFAULT 'OP',
		paid_status TEXT NOT NULL DEFAULT 'NP',
		total_price NUMERIC NOT NULL,
		delivery_price NUMERIC NOT NULL DEFAULT 0,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		original_price NUMERIC NOT NULL,
		discount_id TEXT,
		payment_status BOOLEAN NOT NULL DEFAULT 0,
		receipt_url TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME
	)`,
	`CREATE TABLE comparisons (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		created_at DATETIME,
		CONSTRAINT comparisons_user_product_key UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE reviews (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a connection to a fresh in-memory database with the schema
// applied. Every call gets its own database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
