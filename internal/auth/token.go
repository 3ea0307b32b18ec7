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

// Package auth issues and validates the bearer tokens callers present to the
// HTTP API, and signs order webhooks from the commerce platform.
package auth

import (
	"errors"
	"fmt"
	"time"

	"loyalty-points-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("auth secret is not configured")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// AuthenticatedUser is the caller resolved from a validated token.
type AuthenticatedUser struct {
	UserId  string
	IsAdmin bool
}

// TokenAuthority signs and validates HS256 tokens. The subject claim carries
// the user id and adm marks administrators.
type TokenAuthority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenAuthority(cfg models.AuthConfig) (*TokenAuthority, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: AUTH_JWT_SECRET", ErrMissingSecret)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenAuthority{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for the user.
func (a *TokenAuthority) Issue(userId string, isAdmin bool) (string, error) {
	if userId == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	now := a.now()
	claims := jwt.MapClaims{
		"sub": userId,
		"adm": isAdmin,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token, checks its signature, expiry and issuer, and
// returns the caller it names.
func (a *TokenAuthority) Validate(tokenString string) (*AuthenticatedUser, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	isAdmin, _ := claims["adm"].(bool)
	return &AuthenticatedUser{UserId: sub, IsAdmin: isAdmin}, nil
}
