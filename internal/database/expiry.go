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
	"fmt"
	"strings"
	"time"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"go.uber.org/zap"
)

func joinActionTypes(actions []models.ActionType) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ",")
}

func splitActionTypes(s string) []models.ActionType {
	if s == "" {
		return nil
	}
	var actions []models.ActionType
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			actions = append(actions, models.ActionType(part))
		}
	}
	return actions
}

func (q *queries) ListExpiryRules(ctx context.Context, activeOnly bool) ([]models.ExpiryRule, error) {
	query := queryGetExpiryRules
	if activeOnly {
		query = queryGetActiveExpiryRules
	}

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query expiry rules: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	var rules []models.ExpiryRule
	for rows.Next() {
		var rule models.ExpiryRule
		var actions string
		if err := rows.Scan(&rule.Id, &rule.Name, &rule.ExpiryDays, &rule.GraceDays, &actions,
			&rule.Priority, &rule.Status, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: unable to scan expiry rule: %v", store.ErrSystem, err)
		}
		rule.ActionTypes = splitActionTypes(actions)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating expiry rules: %v", store.ErrSystem, err)
	}
	return rules, nil
}

// SaveExpiryRule inserts a rule when its id is zero and updates it otherwise
func (q *queries) SaveExpiryRule(ctx context.Context, rule *models.ExpiryRule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: expiry rule name is required", store.ErrValidation)
	}
	if rule.ExpiryDays <= 0 {
		return fmt.Errorf("%w: expiry_days must be positive, got %d", store.ErrValidation, rule.ExpiryDays)
	}
	if rule.GraceDays < 0 || rule.GraceDays >= rule.ExpiryDays {
		return fmt.Errorf("%w: grace_days must be in [0, expiry_days), got %d", store.ErrValidation, rule.GraceDays)
	}
	for _, a := range rule.ActionTypes {
		if !a.Valid() {
			return fmt.Errorf("%w: unknown action_type %q", store.ErrValidation, a)
		}
	}
	if rule.Status == "" {
		rule.Status = models.RuleActive
	}

	actions := joinActionTypes(rule.ActionTypes)
	if rule.Id == 0 {
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = q.now()
		}
		err := q.db.QueryRowContext(ctx, queryInsertExpiryRule, rule.Name, rule.ExpiryDays, rule.GraceDays,
			actions, rule.Priority, rule.Status, rule.CreatedAt).Scan(&rule.Id)
		if err != nil {
			return fmt.Errorf("%w: unable to insert expiry rule: %v", store.ErrSystem, err)
		}
		zap.L().Info("Expiry rule created", zap.Int64("rule_id", rule.Id), zap.String("name", rule.Name))
		return nil
	}

	result, err := q.db.ExecContext(ctx, queryUpdateExpiryRule, rule.Name, rule.ExpiryDays, rule.GraceDays,
		actions, rule.Priority, rule.Status, rule.Id)
	if err != nil {
		return fmt.Errorf("%w: unable to update expiry rule: %v", store.ErrSystem, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: expiry rule %d", store.ErrNotFound, rule.Id)
	}
	return nil
}

// ListExpiryCandidates returns earned credits that have not been expired
// yet, oldest first
func (q *queries) ListExpiryCandidates(ctx context.Context, c store.ExpiryCandidateQuery) ([]models.LedgerEntry, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT " + ledgerColumns + " FROM points_ledger l" +
		" WHERE l.status = 'earned' AND l.points_amount > 0 AND l.action_type != 'expiry_adjustment'" +
		" AND NOT EXISTS (SELECT 1 FROM point_expirations pe WHERE pe.ledger_id = l.id)")
	if c.UserId != "" {
		sb.WriteString(" AND l.user_id = ?")
		args = append(args, c.UserId)
	}
	if len(c.ActionTypes) > 0 {
		sb.WriteString(" AND l.action_type IN (" + placeholders(len(c.ActionTypes)) + ")")
		for _, a := range c.ActionTypes {
			args = append(args, string(a))
		}
	}
	if !c.CreatedBefore.IsZero() {
		sb.WriteString(" AND l.created_at < ?")
		args = append(args, c.CreatedBefore.UTC())
	}
	if !c.CreatedAfter.IsZero() {
		sb.WriteString(" AND l.created_at >= ?")
		args = append(args, c.CreatedAfter.UTC())
	}
	if c.WarningWindow {
		sb.WriteString(" AND NOT EXISTS (SELECT 1 FROM expiry_warnings w WHERE w.ledger_id = l.id)")
	}
	sb.WriteString(" ORDER BY l.created_at, l.id")
	if c.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, c.Limit)
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query expiry candidates: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	return scanLedgerEntries(rows)
}

func (q *queries) InsertExpiration(ctx context.Context, exp *models.Expiration) error {
	if exp.ExpiredAt.IsZero() {
		exp.ExpiredAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, queryInsertExpiration,
		exp.Id, exp.LedgerId, exp.UserId, exp.RuleId, exp.Points, exp.ExpiredAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ledger entry %d already expired", store.ErrDuplicate, exp.LedgerId)
		}
		return fmt.Errorf("%w: unable to insert expiration: %v", store.ErrSystem, err)
	}
	return nil
}

func (q *queries) InsertExpiryWarning(ctx context.Context, ledgerId int64, userId string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, queryInsertExpiryWarning, ledgerId, userId, at.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ledger entry %d already warned", store.ErrDuplicate, ledgerId)
		}
		return fmt.Errorf("%w: unable to insert expiry warning: %v", store.ErrSystem, err)
	}
	return nil
}
