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

// Package httpapi exposes the ledger service over HTTP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"loyalty-points-go/internal/api"
	"loyalty-points-go/internal/auth"
	"loyalty-points-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Server struct {
	ledger         *api.LedgerService
	tokens         *auth.TokenAuthority
	webhookSecret  []byte
	metricsEnabled bool
	requestTimeout time.Duration
}

// NewServer fails when either the token or the webhook secret is missing.
func NewServer(ledger *api.LedgerService, cfg models.ServerConfig) (*Server, error) {
	tokens, err := auth.NewTokenAuthority(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: WEBHOOK_SECRET", auth.ErrMissingSecret)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Server{
		ledger:         ledger,
		tokens:         tokens,
		webhookSecret:  []byte(cfg.Auth.WebhookSecret),
		metricsEnabled: cfg.MetricsEnabled,
		requestTimeout: timeout,
	}, nil
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	if s.metricsEnabled {
		r.Use(metricsMiddleware)
	}

	r.Get("/healthz", s.handleHealth)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.With(s.verifyWebhook).Post("/webhooks/orders", s.handleOrderWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/balance", s.handleBalance)
			r.Get("/history", s.handleHistory)
		})

		r.Route("/redemptions", func(r chi.Router) {
			r.Post("/", s.handleRedeem)
			r.With(requireAdmin).Post("/{redemptionId}/cancel", s.handleCancelRedemption)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/admin/adjustments", s.handleAdjustment)
			r.Post("/expiry/sweep", s.handleExpirySweep)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForCode maps a result code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case models.CodeOK:
		return http.StatusOK
	case models.CodeInvalidRequest:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodePermissionDenied:
		return http.StatusForbidden
	case models.CodeInsufficientBalance, models.CodeRedemptionLimit,
		models.CodeInvalidTransition, models.CodePointsDisabled:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"status":  status,
		},
	})
}
