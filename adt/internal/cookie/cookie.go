// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package cookie implements the Set-Cookie handling used by the ADT security session.
package cookie

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cookie names used by the ABAP application server.
const (
	SSO2         = "MYSAPSSO2"       // Logon ticket.
	SessionID    = "SAP_SESSIONID_"  // Security session, prefix followed by <SID>_<client>.
	UserContext  = "sap-usercontext" // Client and language of the logon.
	ContextID    = "sap-contextid"   // Binding to a server work process (stateful session).
	expiresAttr  = "expires"
	pathAttr     = "path"
	domainAttr   = "domain"
	expiresSAP   = "Mon, 02-Jan-2006 15:04:05 MST" // The server sends the expiry with dashes.
	pairSep      = "; "
	attributeSep = ";"
)

// ParseError is the error returned if a Set-Cookie value cannot be parsed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot parse cookie %q: %s", e.Input, e.Err)
	}
	return fmt.Sprintf("cannot parse cookie %q", e.Input)
}

// Unwrap returns the nested error.
func (e *ParseError) Unwrap() error { return e.Err }

var errMissingSeparator = errors.New("missing '=' separator")

// A Cookie is a single cookie as received by a Set-Cookie header.
type Cookie struct {
	Name    string
	Value   string
	Path    string    // Empty if not set.
	Domain  string    // Empty if not set.
	Expires time.Time // Zero if not set.
}

// Parse parses a single Set-Cookie value of the form name=value[; attr=val]*.
//
// Recognized attributes are path, domain and expires. Other attributes including
// flags without value (HttpOnly, secure) are ignored.
func Parse(s string) (*Cookie, error) {
	parts := strings.Split(s, attributeSep)

	name, value, ok := strings.Cut(parts[0], "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, &ParseError{Input: s, Err: errMissingSeparator}
	}

	c := &Cookie{Name: name, Value: strings.TrimSpace(value)}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case pathAttr:
			c.Path = v
		case domainAttr:
			c.Domain = v
		case expiresAttr:
			t, err := parseExpires(v)
			if err != nil {
				return nil, &ParseError{Input: s, Err: err}
			}
			c.Expires = t
		}
	}
	return c, nil
}

func parseExpires(s string) (time.Time, error) {
	t, err := time.Parse(expiresSAP, s)
	if err == nil {
		return t.UTC(), nil
	}
	if t, rfcErr := time.Parse(time.RFC1123, s); rfcErr == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

// Pair returns the name=value representation used in a Cookie request header.
func (c *Cookie) Pair() string { return c.Name + "=" + c.Value }

// Expired reports whether the cookie has an expiry which is not after now.
// The server removes a cookie by sending it with an expiry in the past.
func (c *Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Allowed reports whether the cookie is to be sent to destination.
func (c *Cookie) Allowed(destination string) bool {
	if c.Domain != "" && !strings.Contains(destination, c.Domain) {
		return false
	}
	if c.Path != "" && !strings.Contains(destination, c.Path) {
		return false
	}
	return true
}

// Clone returns a copy of c.
func (c *Cookie) Clone() *Cookie {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *Cookie) String() string {
	return fmt.Sprintf("name %s path %q domain %q expires %s", c.Name, c.Path, c.Domain, c.Expires)
}
