// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package proxy implements a SOCKS5 dialer for the SAP BTP connectivity proxy.
package proxy

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned if the JWT token of the configuration is expired.
var ErrTokenExpired = errors.New("proxy: jwt token expired")

// Config holds proxy connection parameters.
type Config struct {
	Address    string // host:port of the SOCKS5 proxy.
	JWTToken   string // Connectivity service token, enables JWT authentication.
	LocationID string // Cloud connector location id, only used with JWT authentication.
	User       string
	Password   string
}

/*
TokenExpiry returns the expiration time of JWTToken.

The signature is not verified; that is up to the proxy. ok is false if no token is set, the
token is not a JWT or it carries no exp claim.
*/
func (c *Config) TokenExpiry() (expiry time.Time, ok bool) {
	if c.JWTToken == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.JWTToken, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
