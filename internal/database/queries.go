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

const (
	ledgerColumns = `id, user_id, order_id, product_id, action_type, points_amount, status,
		       description, notes, expires_at, created_at, updated_at`

	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, role, active, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, role, active, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, role, active, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Ledger queries
	queryInsertLedgerEntry = `
		INSERT INTO points_ledger (
			user_id, order_id, product_id, action_type, points_amount, status,
			description, notes, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + ledgerColumns

	queryGetLedgerEntry = `
		SELECT ` + ledgerColumns + `
		FROM points_ledger
		WHERE id = ?`

	queryUpdateLedgerStatus = `
		UPDATE points_ledger
		SET status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryUpdateLedgerExpiresAt = `
		UPDATE points_ledger
		SET expires_at = ?, updated_at = ?
		WHERE id = ?`

	queryGetOrderEntries = `
		SELECT ` + ledgerColumns + `
		FROM points_ledger
		WHERE order_id = ?
		ORDER BY created_at, id`

	queryUsersWithEarnedCredits = `
		SELECT DISTINCT user_id
		FROM points_ledger
		WHERE status = 'earned' AND points_amount > 0
		ORDER BY user_id`

	// Balance queries
	querySumAvailable = `
		SELECT COALESCE(SUM(points_amount), 0)
		FROM points_ledger
		WHERE user_id = ? AND status = 'earned'`

	querySumPending = `
		SELECT COALESCE(SUM(points_amount), 0)
		FROM points_ledger
		WHERE user_id = ? AND status = 'pending'`

	querySumEarnedToDate = `
		SELECT COALESCE(SUM(points_amount), 0)
		FROM points_ledger
		WHERE user_id = ? AND points_amount > 0 AND status != 'cancelled'
		  AND action_type != 'expiry_adjustment'`

	querySumExpired = `
		SELECT COALESCE(SUM(CASE
			WHEN status = 'expired' THEN points_amount
			WHEN action_type = 'expiry_adjustment' AND status = 'earned' THEN -points_amount
			ELSE 0 END), 0)
		FROM points_ledger
		WHERE user_id = ?`

	querySumRedeemed = `
		SELECT COALESCE(-SUM(points_amount), 0)
		FROM points_ledger
		WHERE user_id = ? AND action_type IN ('redemption', 'redemption_reversal') AND status != 'cancelled'`

	// Order guard queries
	queryGetOrderState = `
		SELECT order_id, user_id, placement_ledger_id, points_awarded, placed_processed,
		       completed_processed, fully_refunded, created_at, updated_at
		FROM order_points_state
		WHERE order_id = ?`

	queryUpsertOrderState = `
		INSERT INTO order_points_state (
			order_id, user_id, placement_ledger_id, points_awarded, placed_processed,
			completed_processed, fully_refunded, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			placement_ledger_id = excluded.placement_ledger_id,
			points_awarded = excluded.points_awarded,
			placed_processed = excluded.placed_processed,
			completed_processed = excluded.completed_processed,
			fully_refunded = excluded.fully_refunded,
			updated_at = excluded.updated_at`

	queryGetRefundState = `
		SELECT refund_id, order_id, ledger_id, points_deducted, created_at
		FROM refund_points_state
		WHERE refund_id = ?`

	queryInsertRefundState = `
		INSERT INTO refund_points_state (refund_id, order_id, ledger_id, points_deducted, created_at)
		VALUES (?, ?, ?, ?, ?)`

	querySumRefundedPoints = `
		SELECT COALESCE(SUM(points_deducted), 0)
		FROM refund_points_state
		WHERE order_id = ?`

	queryUpsertOrderSnapshot = `
		INSERT INTO order_snapshots (order_id, user_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	queryGetOrderSnapshot = `
		SELECT payload FROM order_snapshots WHERE order_id = ?`

	// Redemption queries
	redemptionColumns = `id, ledger_id, reversal_ledger_id, user_id, order_id, points, discount_value,
		       conversion_rate, currency, status, created_at, updated_at`

	queryInsertRedemption = `
		INSERT INTO redemptions (
			id, ledger_id, reversal_ledger_id, user_id, order_id, points, discount_value,
			conversion_rate, currency, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetRedemption = `
		SELECT ` + redemptionColumns + `
		FROM redemptions
		WHERE id = ?`

	queryUpdateRedemptionStatus = `
		UPDATE redemptions
		SET status = ?, reversal_ledger_id = ?, updated_at = ?
		WHERE id = ?`

	queryGetOrderDiscounts = `
		SELECT discount_value
		FROM redemptions
		WHERE order_id = ? AND status IN ('pending', 'completed')`

	queryGetUserRedemptions = `
		SELECT ` + redemptionColumns + `
		FROM redemptions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	// Expiry queries
	queryGetExpiryRules = `
		SELECT id, name, expiry_days, grace_days, action_types, priority, status, created_at
		FROM expiry_rules
		ORDER BY priority, id`

	queryGetActiveExpiryRules = `
		SELECT id, name, expiry_days, grace_days, action_types, priority, status, created_at
		FROM expiry_rules
		WHERE status = 'active'
		ORDER BY priority, id`

	queryInsertExpiryRule = `
		INSERT INTO expiry_rules (name, expiry_days, grace_days, action_types, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	queryUpdateExpiryRule = `
		UPDATE expiry_rules
		SET name = ?, expiry_days = ?, grace_days = ?, action_types = ?, priority = ?, status = ?
		WHERE id = ?`

	queryInsertExpiration = `
		INSERT INTO point_expirations (id, ledger_id, user_id, rule_id, points, expired_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryInsertExpiryWarning = `
		INSERT INTO expiry_warnings (ledger_id, user_id, warned_at)
		VALUES (?, ?, ?)`

	// Audit queries
	queryInsertAuditLog = `
		INSERT INTO admin_audit_log (
			id, admin_id, user_id, action_type, points_involved, ledger_id, ip_address, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAuditLog = `
		SELECT id, admin_id, user_id, action_type, points_involved, ledger_id, ip_address, reason, created_at
		FROM admin_audit_log
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	// Settings queries
	queryGetSettings = `
		SELECT key, value FROM settings`

	queryUpsertSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	queryGetProductPoints = `
		SELECT product_id, type, value, updated_at
		FROM product_points
		WHERE product_id = ?`

	queryUpsertProductPoints = `
		INSERT INTO product_points (product_id, type, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			type = excluded.type,
			value = excluded.value,
			updated_at = excluded.updated_at`
)
