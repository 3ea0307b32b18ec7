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
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"loyalty-points-go/internal/auth"

	"go.uber.org/zap"
)

type ContextKey string

const AuthenticatedUserContextKey = ContextKey("authenticatedUser")

// authenticate requires a valid bearer token and stores the caller in the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		user, err := s.tokens.Validate(parts[1])
		if err != nil {
			zap.L().Warn("Rejected bearer token",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after authenticate.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifyWebhook checks the body signature before the handler decodes it.
func (s *Server) verifyWebhook(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if !auth.VerifyPayload(s.webhookSecret, body, r.Header.Get(auth.SignatureHeader)) {
			zap.L().Warn("Rejected unsigned order webhook", zap.String("remote_addr", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) *auth.AuthenticatedUser {
	user, _ := ctx.Value(AuthenticatedUserContextKey).(*auth.AuthenticatedUser)
	return user
}

// actingFor reports whether the caller may act on userId: only for themselves
// unless they are an administrator.
func actingFor(r *http.Request, userId string) bool {
	user := userFromContext(r.Context())
	return user != nil && (user.IsAdmin || user.UserId == userId)
}
