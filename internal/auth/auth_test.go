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

package auth

import (
	"errors"
	"testing"
	"time"

	"loyalty-points-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func newAuthority(t *testing.T, secret string) *TokenAuthority {
	t.Helper()
	a, err := NewTokenAuthority(models.AuthConfig{JWTSecret: secret, JWTIssuer: "loyalty-points", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenAuthority failed: %v", err)
	}
	return a
}

func TestTokenRoundTrip(t *testing.T) {
	a := newAuthority(t, "secret")

	token, err := a.Issue("admin1", true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	user, err := a.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if user.UserId != "admin1" || !user.IsAdmin {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestValidateRejectsForgedTokens(t *testing.T) {
	a := newAuthority(t, "secret")
	other := newAuthority(t, "another-secret")

	forged, err := other.Issue("user1", true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := a.Validate(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong key, got %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user1", "adm": true, "iss": "loyalty-points", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := a.Validate(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for alg none, got %v", err)
	}

	if _, err := a.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestValidateRejectsExpiredTokens(t *testing.T) {
	a := newAuthority(t, "secret")
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := a.Issue("user1", false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	a.now = time.Now
	if _, err := a.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestNewTokenAuthorityRequiresSecret(t *testing.T) {
	if _, err := NewTokenAuthority(models.AuthConfig{}); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestPayloadSignature(t *testing.T) {
	secret := []byte("hook-secret")
	body := []byte(`{"event":"placed"}`)
	sig := SignPayload(secret, body)

	if !VerifyPayload(secret, body, sig) {
		t.Fatalf("Expected signature to verify")
	}
	if VerifyPayload(secret, []byte(`{"event":"completed"}`), sig) {
		t.Errorf("Expected tampered body to fail")
	}
	if VerifyPayload([]byte("other"), body, sig) {
		t.Errorf("Expected wrong secret to fail")
	}
	if VerifyPayload(nil, body, SignPayload(nil, body)) {
		t.Errorf("Expected empty secret to never verify")
	}
	if VerifyPayload(secret, body, "") || VerifyPayload(secret, body, "sha256=zz") {
		t.Errorf("Expected malformed signatures to fail")
	}
}
