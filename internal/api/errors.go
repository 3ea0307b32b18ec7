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

package api

import (
	"errors"

	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/store"
)

// ErrInvalidRequest and ErrInternal are the only errors read methods return.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownUser    = errors.New("user not found")
	ErrInternal       = errors.New("internal error, please retry later")
)

// classify maps an engine error to a result code and a message that is safe
// to show to the caller.
func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return models.CodeInvalidRequest, "invalid request"
	case errors.Is(err, store.ErrInsufficientBalance):
		return models.CodeInsufficientBalance, "insufficient points balance"
	case errors.Is(err, store.ErrRedemptionLimitExceeded):
		return models.CodeRedemptionLimit, "redemption exceeds the maximum discount allowed for this order"
	case errors.Is(err, store.ErrPointsDisabled):
		return models.CodePointsDisabled, "the points program is currently disabled"
	case errors.Is(err, store.ErrNotFound):
		return models.CodeNotFound, "not found"
	case errors.Is(err, store.ErrInvalidTransition):
		return models.CodeInvalidTransition, "the operation is not allowed in the current state"
	case errors.Is(err, store.ErrPermission):
		return models.CodePermissionDenied, "permission denied"
	}
	return models.CodeInternalError, ErrInternal.Error()
}
