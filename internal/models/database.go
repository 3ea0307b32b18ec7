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

package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a loyalty account holder or an administrator
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin reports whether the user may perform manual adjustments
func (u *User) IsAdmin() bool {
	return u.Active && u.Role == RoleAdmin
}

// BalanceSummary holds every derived aggregate for one user
type BalanceSummary struct {
	UserId        string `json:"user_id"`
	Available     int64  `json:"available"`
	Pending       int64  `json:"pending"`
	EarnedToDate  int64  `json:"earned_to_date"`
	ExpiredTotal  int64  `json:"expired_total"`
	RedeemedTotal int64  `json:"redeemed_total"`
}
