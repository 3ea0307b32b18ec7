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
	"fmt"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (q *queries) InsertAuditLog(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.AdminId == "" || entry.UserId == "" {
		return fmt.Errorf("%w: audit entry requires admin and user", store.ErrValidation)
	}
	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = q.now()
	}

	_, err := q.db.ExecContext(ctx, queryInsertAuditLog,
		entry.Id, entry.AdminId, entry.UserId, string(entry.ActionType), entry.PointsInvolved,
		entry.LedgerId, nullString(entry.IpAddress), nullString(entry.Reason), entry.CreatedAt.UTC())
	if err != nil {
		zap.L().Error("Failed to insert audit log entry",
			zap.String("admin_id", entry.AdminId),
			zap.String("user_id", entry.UserId),
			zap.Error(err))
		return fmt.Errorf("%w: unable to insert audit log entry: %v", store.ErrSystem, err)
	}

	zap.L().Info("Admin adjustment audited",
		zap.String("audit_id", entry.Id),
		zap.String("admin_id", entry.AdminId),
		zap.String("user_id", entry.UserId),
		zap.String("action_type", string(entry.ActionType)),
		zap.Int64("points", entry.PointsInvolved))
	return nil
}

func (q *queries) ListAuditLog(ctx context.Context, userId string, limit, offset int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.db.QueryContext(ctx, queryGetAuditLog, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query audit log: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	var entries []models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var actionType string
		var ip, reason sql.NullString
		if err := rows.Scan(&entry.Id, &entry.AdminId, &entry.UserId, &actionType, &entry.PointsInvolved,
			&entry.LedgerId, &ip, &reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: unable to scan audit log entry: %v", store.ErrSystem, err)
		}
		entry.ActionType = models.ActionType(actionType)
		entry.IpAddress = ip.String
		entry.Reason = reason.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating audit log: %v", store.ErrSystem, err)
	}
	return entries, nil
}
