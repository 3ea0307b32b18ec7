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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var orderId, productId, description, notes sql.NullString
	var expiresAt sql.NullTime
	var actionType, status string

	err := row.Scan(&entry.Id, &entry.UserId, &orderId, &productId, &actionType,
		&entry.PointsAmount, &status, &description, &notes, &expiresAt,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	entry.OrderId = orderId.String
	entry.ProductId = productId.String
	entry.ActionType = models.ActionType(actionType)
	entry.Status = models.Status(status)
	entry.Description = description.String
	entry.Notes = notes.String
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.ExpiresAt = &t
	}
	return &entry, nil
}

func scanLedgerEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

// AppendEntry inserts one immutable ledger entry
func (q *queries) AppendEntry(ctx context.Context, params store.AppendParams) (*models.LedgerEntry, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := q.now()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	entry, err := scanLedgerEntry(q.db.QueryRowContext(ctx, queryInsertLedgerEntry,
		params.UserId, nullString(params.OrderId), nullString(params.ProductId),
		string(params.ActionType), params.PointsAmount, string(params.Status),
		nullString(params.Description), nullString(params.Notes), nullTime(params.ExpiresAt),
		createdAt.UTC(), now))
	if err != nil {
		zap.L().Error("Failed to insert ledger entry",
			zap.String("user_id", params.UserId),
			zap.String("action_type", string(params.ActionType)),
			zap.Int64("points", params.PointsAmount),
			zap.Error(err))
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: ledger entry for order %s already exists", store.ErrDuplicate, params.OrderId)
		}
		return nil, fmt.Errorf("%w: unable to insert ledger entry: %v", store.ErrSystem, err)
	}

	zap.L().Info("Ledger entry appended",
		zap.Int64("ledger_id", entry.Id),
		zap.String("user_id", entry.UserId),
		zap.String("action_type", string(entry.ActionType)),
		zap.Int64("points", entry.PointsAmount),
		zap.String("status", string(entry.Status)))
	return entry, nil
}

func (q *queries) GetEntry(ctx context.Context, id int64) (*models.LedgerEntry, error) {
	entry, err := scanLedgerEntry(q.db.QueryRowContext(ctx, queryGetLedgerEntry, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: ledger entry %d", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query ledger entry: %v", store.ErrSystem, err)
	}
	return entry, nil
}

// TransitionStatus moves an entry to a new status if the state machine
// allows it. Moving to the current status is a no-op that reports false.
func (q *queries) TransitionStatus(ctx context.Context, id int64, to models.Status, note string) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", store.ErrValidation, to)
	}

	entry, err := q.GetEntry(ctx, id)
	if err != nil {
		return false, err
	}
	if entry.Status == to {
		return false, nil
	}
	if !entry.Status.CanTransition(to) {
		return false, fmt.Errorf("%w: ledger entry %d cannot move from %s to %s",
			store.ErrInvalidTransition, id, entry.Status, to)
	}

	notes := entry.Notes
	if note != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += note
	}

	// The status guard in the WHERE clause keeps a concurrent writer from
	// being overwritten when this runs outside a transaction.
	result, err := q.db.ExecContext(ctx, queryUpdateLedgerStatus,
		string(to), nullString(notes), q.now(), id, string(entry.Status))
	if err != nil {
		return false, fmt.Errorf("%w: unable to update ledger status: %v", store.ErrSystem, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: unable to check rows affected: %v", store.ErrSystem, err)
	}
	if rowsAffected == 0 {
		return false, fmt.Errorf("%w: ledger entry %d changed status concurrently", store.ErrInvalidTransition, id)
	}

	zap.L().Info("Ledger entry status changed",
		zap.Int64("ledger_id", id),
		zap.String("user_id", entry.UserId),
		zap.String("from", string(entry.Status)),
		zap.String("to", string(to)))
	return true, nil
}

func (q *queries) SetExpiresAt(ctx context.Context, id int64, at time.Time) error {
	result, err := q.db.ExecContext(ctx, queryUpdateLedgerExpiresAt, at.UTC(), q.now(), id)
	if err != nil {
		return fmt.Errorf("%w: unable to set expires_at: %v", store.ErrSystem, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: ledger entry %d", store.ErrNotFound, id)
	}
	return nil
}

// buildHistoryWhere renders the filter as a WHERE clause and its arguments
func buildHistoryWhere(userId string, filter store.HistoryFilter) (string, []any) {
	var sb strings.Builder
	args := []any{userId}
	sb.WriteString(" WHERE user_id = ?")

	if len(filter.Statuses) > 0 {
		sb.WriteString(" AND status IN (" + placeholders(len(filter.Statuses)) + ")")
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if len(filter.ActionTypes) > 0 {
		sb.WriteString(" AND action_type IN (" + placeholders(len(filter.ActionTypes)) + ")")
		for _, a := range filter.ActionTypes {
			args = append(args, string(a))
		}
	}
	if filter.OrderId != "" {
		sb.WriteString(" AND order_id = ?")
		args = append(args, filter.OrderId)
	}
	if !filter.From.IsZero() {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		sb.WriteString(" AND created_at < ?")
		args = append(args, filter.To.UTC())
	}
	return sb.String(), args
}

// QueryByUser returns a user's entries, newest first
func (q *queries) QueryByUser(ctx context.Context, userId string, filter store.HistoryFilter) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting ledger history",
		zap.String("user_id", userId),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	where, args := buildHistoryWhere(userId, filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := "SELECT " + ledgerColumns + " FROM points_ledger" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get ledger history: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	return scanLedgerEntries(rows)
}

func (q *queries) CountByUser(ctx context.Context, userId string, filter store.HistoryFilter) (int, error) {
	where, args := buildHistoryWhere(userId, filter)
	var count int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points_ledger"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count ledger history: %v", store.ErrSystem, err)
	}
	return count, nil
}

func (q *queries) ListOrderEntries(ctx context.Context, orderId string) ([]models.LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, queryGetOrderEntries, orderId)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get order entries: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	return scanLedgerEntries(rows)
}

func (q *queries) ListUsersWithEarnedCredits(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, queryUsersWithEarnedCredits)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users with credits: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	var userIds []string
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIds = append(userIds, userId)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return userIds, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
