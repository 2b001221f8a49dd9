// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/ceema/internal/logging"
	"github.com/tomtom215/ceema/internal/predict"
	"github.com/tomtom215/ceema/internal/validation"
)

// minJWTSecretLength matches HS256's key size.
const minJWTSecretLength = 32

// Validate checks struct-level constraints first, then the rules that span
// fields or need domain parsing.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	checks := []func() error{
		c.validateLogging,
		c.validatePredict,
		c.validateScorer,
		c.validateSecurity,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// validateLogging accepts every spelling logging.Init understands.
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePredict() error {
	if _, err := predict.ParsePolicy(c.Predict.UnresolvedPolicy); err != nil {
		return fmt.Errorf("UNRESOLVED_POLICY: %w", err)
	}
	return nil
}

func (c *Config) validateScorer() error {
	if c.Scorer.Backend != "tfserving" {
		return nil
	}
	if c.Scorer.TFServing.Endpoint == "" {
		return fmt.Errorf("TFSERVING_ENDPOINT is required when SCORER_BACKEND is tfserving")
	}
	if c.Scorer.TFServing.Model == "" {
		return fmt.Errorf("TFSERVING_MODEL is required when SCORER_BACKEND is tfserving")
	}
	return nil
}

// validateSecurity only applies when the admin routes are enabled.
func (c *Config) validateSecurity() error {
	if !c.Security.AdminEnabled() {
		return nil
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters for security", minJWTSecretLength)
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// containsPlaceholder catches secrets copied verbatim from example configs.
func containsPlaceholder(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range []string{"changeme", "change_me", "replace", "your_secret", "example", "placeholder"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard origin on a server exposing admin routes.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.Security.AdminEnabled() {
		return false
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
