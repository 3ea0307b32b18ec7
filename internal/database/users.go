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

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.Role, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (q *queries) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying active users")

	rows, err := q.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("%w: unable to query users: %v", store.ErrSystem, err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("%w: unable to scan user row: %v", store.ErrSystem, err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("%w: error iterating user rows: %v", store.ErrSystem, err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (q *queries) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(q.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("%w: unable to query user by ID: %v", store.ErrSystem, err)
	}

	zap.L().Debug("Retrieved user by ID", zap.String("user_id", userId), zap.String("name", user.Name))
	return user, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := scanUser(q.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with email %s", store.ErrNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: unable to query user by email: %v", store.ErrSystem, err)
	}

	return user, nil
}

// CreateUser registers an account. An empty id is replaced by a new UUID and
// an empty role defaults to customer.
func (q *queries) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	if params.Name == "" || params.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", store.ErrValidation)
	}
	if params.Id == "" {
		params.Id = uuid.New().String()
	}
	if params.Role == "" {
		params.Role = models.RoleCustomer
	}
	if params.Role != models.RoleCustomer && params.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, params.Role)
	}

	zap.L().Info("Creating user",
		zap.String("id", params.Id),
		zap.String("name", params.Name),
		zap.String("email", params.Email),
		zap.String("role", params.Role))

	now := q.now()
	result, err := q.db.ExecContext(ctx, queryInsertUser, params.Id, params.Name, params.Email, params.Role, now, now)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", params.Email), zap.Error(err))
		return nil, fmt.Errorf("%w: unable to insert user: %v", store.ErrSystem, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to get rows affected: %v", store.ErrSystem, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: user with email %s or id %s already exists", store.ErrDuplicate, params.Email, params.Id)
	}

	zap.L().Info("User created successfully", zap.String("id", params.Id), zap.String("email", params.Email))
	return q.GetUserById(ctx, params.Id)
}
