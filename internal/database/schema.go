/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

// initSchema creates every table the points ledger needs. Statements are
// idempotent so the service can run it on each start.
func (s *Service) initSchema() error {
	schema := `
	-- Account holders and administrators
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'customer',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Points ledger (append-mostly; only status and expires_at change)
	CREATE TABLE IF NOT EXISTS points_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		order_id TEXT,
		product_id TEXT,
		action_type TEXT NOT NULL,
		points_amount INTEGER NOT NULL CHECK (points_amount != 0),
		status TEXT NOT NULL,
		description TEXT,
		notes TEXT,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_points_ledger_user_status ON points_ledger(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_points_ledger_user_created ON points_ledger(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_points_ledger_order ON points_ledger(order_id);
	CREATE INDEX IF NOT EXISTS idx_points_ledger_action ON points_ledger(action_type);
	-- At most one placement credit per order, whatever the caller does
	CREATE UNIQUE INDEX IF NOT EXISTS idx_points_ledger_order_placement
		ON points_ledger(order_id) WHERE action_type = 'order_placement';

	-- Per-order idempotency guard
	CREATE TABLE IF NOT EXISTS order_points_state (
		order_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		placement_ledger_id INTEGER NOT NULL DEFAULT 0,
		points_awarded INTEGER NOT NULL DEFAULT 0,
		placed_processed BOOLEAN NOT NULL DEFAULT 0,
		completed_processed BOOLEAN NOT NULL DEFAULT 0,
		fully_refunded BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Per-refund idempotency guard
	CREATE TABLE IF NOT EXISTS refund_points_state (
		refund_id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		ledger_id INTEGER NOT NULL DEFAULT 0,
		points_deducted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refund_points_state_order ON refund_points_state(order_id);

	-- Orders as delivered by the platform webhook
	CREATE TABLE IF NOT EXISTS order_snapshots (
		order_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Redemptions, each paired with one ledger debit
	CREATE TABLE IF NOT EXISTS redemptions (
		id TEXT PRIMARY KEY,
		ledger_id INTEGER NOT NULL UNIQUE REFERENCES points_ledger(id),
		reversal_ledger_id INTEGER NOT NULL DEFAULT 0,
		user_id TEXT NOT NULL,
		order_id TEXT,
		points INTEGER NOT NULL CHECK (points > 0),
		discount_value TEXT NOT NULL,
		conversion_rate TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_redemptions_user ON redemptions(user_id);
	CREATE INDEX IF NOT EXISTS idx_redemptions_order ON redemptions(order_id);

	-- Expiry configuration and markers
	CREATE TABLE IF NOT EXISTS expiry_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		expiry_days INTEGER NOT NULL CHECK (expiry_days > 0),
		grace_days INTEGER NOT NULL DEFAULT 0,
		action_types TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS point_expirations (
		id TEXT PRIMARY KEY,
		ledger_id INTEGER NOT NULL UNIQUE REFERENCES points_ledger(id),
		user_id TEXT NOT NULL,
		rule_id INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL,
		expired_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_point_expirations_user ON point_expirations(user_id);

	CREATE TABLE IF NOT EXISTS expiry_warnings (
		ledger_id INTEGER PRIMARY KEY REFERENCES points_ledger(id),
		user_id TEXT NOT NULL,
		warned_at TIMESTAMP NOT NULL
	);

	-- Administrative audit trail
	CREATE TABLE IF NOT EXISTS admin_audit_log (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		points_involved INTEGER NOT NULL,
		ledger_id INTEGER NOT NULL DEFAULT 0,
		ip_address TEXT,
		reason TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admin_audit_log_user ON admin_audit_log(user_id);

	-- Settings and product earning rules
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS product_points (
		product_id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
