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

package httpapi

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"loyalty-points-go/internal/api"
	"loyalty-points-go/internal/models"
	"loyalty-points-go/internal/points"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// redeemRequest spends the caller's points. Administrators may name another
// user_id.
type redeemRequest struct {
	UserId         string          `json:"user_id"`
	Points         int64           `json:"points"`
	OrderId        string          `json:"order_id"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	Currency       string          `json:"currency"`
}

const (
	orderEventPlaced    = "placed"
	orderEventCompleted = "completed"
	orderEventRefunded  = "refunded"
)

// orderWebhook is the payload the commerce platform posts on order changes.
type orderWebhook struct {
	Event    string        `json:"event"`
	Order    *models.Order `json:"order"`
	RefundId string        `json:"refund_id"`
}

type adjustmentRequest struct {
	Operation string `json:"operation"`
	UserId    string `json:"user_id"`
	Points    int64  `json:"points"`
	Reason    string `json:"reason"`
}

type sweepRequest struct {
	UserId string `json:"user_id"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")
	if !actingFor(r, userId) {
		writeError(w, http.StatusForbidden, "access to another user's balance denied")
		return
	}
	summary, err := s.ledger.GetBalanceSummary(r.Context(), userId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")
	if !actingFor(r, userId) {
		writeError(w, http.StatusForbidden, "access to another user's history denied")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	history, err := s.ledger.GetHistory(r.Context(), userId, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	userId := userFromContext(r.Context()).UserId
	if req.UserId != "" && req.UserId != userId {
		if !actingFor(r, req.UserId) {
			writeError(w, http.StatusForbidden, "cannot redeem another user's points")
			return
		}
		userId = req.UserId
	}

	result, err := s.ledger.Redeem(r.Context(), userId, req.Points, req.OrderId, req.ConversionRate, req.Currency)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := statusForCode(result.Code)
	if result.Success {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handleCancelRedemption(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.CancelRedemption(r.Context(), chi.URLParam(r, "redemptionId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, statusForCode(result.Code), result)
}

// handleOrderWebhook stores the order snapshot and then runs the handler for
// the event. Handlers are idempotent, so the platform may retry on failure.
func (s *Server) handleOrderWebhook(w http.ResponseWriter, r *http.Request) {
	var hook orderWebhook
	if err := decodeJSON(w, r, &hook); err != nil || hook.Order == nil {
		writeError(w, http.StatusBadRequest, "malformed order webhook")
		return
	}

	ctx := r.Context()
	if err := s.ledger.RecordOrder(ctx, hook.Order); err != nil {
		writeServiceError(w, err)
		return
	}

	var processed bool
	switch hook.Event {
	case orderEventPlaced:
		processed = s.ledger.ProcessOrderPlaced(ctx, hook.Order.Id)
	case orderEventCompleted:
		processed = s.ledger.ProcessOrderCompleted(ctx, hook.Order.Id)
	case orderEventRefunded:
		if hook.RefundId == "" {
			writeError(w, http.StatusBadRequest, "refund_id is required for refund events")
			return
		}
		processed = s.ledger.ProcessRefund(ctx, hook.Order.Id, hook.RefundId)
	default:
		writeError(w, http.StatusBadRequest, "unknown order event")
		return
	}

	status := http.StatusOK
	if !processed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]interface{}{
		"order_id":  hook.Order.Id,
		"event":     hook.Event,
		"processed": processed,
	})
}

func (s *Server) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	adj := points.AdjustmentRequest{
		UserId:    req.UserId,
		Points:    req.Points,
		Reason:    req.Reason,
		AdminId:   userFromContext(r.Context()).UserId,
		IpAddress: clientIP(r),
	}

	var (
		result *models.AdjustmentResult
		err    error
	)
	ctx := r.Context()
	switch req.Operation {
	case "assign":
		result, err = s.ledger.AdminAssign(ctx, adj)
	case "deduct":
		result, err = s.ledger.AdminDeduct(ctx, adj)
	case "reset":
		result, err = s.ledger.AdminReset(ctx, adj)
	default:
		writeError(w, http.StatusBadRequest, "operation must be assign, deduct or reset")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, statusForCode(result.Code), result)
}

func (s *Server) handleExpirySweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	result, err := s.ledger.RunExpirySweep(r.Context(), req.UserId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, api.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, api.ErrUnknownUser):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, api.ErrInternal.Error())
	}
}

// clientIP returns the address set by the RealIP middleware without a port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
