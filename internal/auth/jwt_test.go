// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTManager("", "ceema", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewJWTManager(\"\") error = %v, want ErrEmptySecret", err)
	}

	m, err := NewJWTManager(testSecret, "ceema", 0)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	if m.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", m.ttl, DefaultTokenTTL)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	m, _ := NewJWTManager(testSecret, "ceema", time.Hour)

	token, err := m.GenerateToken("ops@example.org", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "ops@example.org" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.Issuer != "ceema" {
		t.Errorf("Issuer = %q, want ceema", claims.Issuer)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Parallel()

	m, _ := NewJWTManager(testSecret, "ceema", time.Hour)

	otherSecret, _ := NewJWTManager(strings.Repeat("x", 40), "ceema", time.Hour)
	forged, _ := otherSecret.GenerateToken("mallory", RoleAdmin)

	otherIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Hour)
	foreign, _ := otherIssuer.GenerateToken("mallory", RoleAdmin)

	expiredMgr, _ := NewJWTManager(testSecret, "ceema", time.Minute)
	expiredMgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredMgr.GenerateToken("ops", RoleAdmin)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "ceema"},
	})
	noExpiry, _ := noExp.SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", forged},
		{"wrong issuer", foreign},
		{"expired", expired},
		{"alg none", unsigned},
		{"no expiry", noExpiry},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		if _, err := m.ValidateToken(tt.token); err == nil {
			t.Errorf("%s: ValidateToken() error = nil", tt.name)
		}
	}
}

func TestValidateToken_NoIssuerCheck(t *testing.T) {
	t.Parallel()

	lenient, _ := NewJWTManager(testSecret, "", time.Hour)
	issuing, _ := NewJWTManager(testSecret, "anyone", time.Hour)

	token, _ := issuing.GenerateToken("ops", RoleAdmin)
	if _, err := lenient.ValidateToken(token); err != nil {
		t.Errorf("ValidateToken() error = %v, want issuer ignored", err)
	}
}
