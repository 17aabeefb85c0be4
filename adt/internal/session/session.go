// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package session implements the ADT security session and its stateful contexts.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/SAP/go-adt/adt/internal/cookie"
)

// Header names and values of the session protocol.
const (
	HeaderCSRFToken = "X-Csrf-Token"
	HeaderSetCookie = "Set-Cookie"
	CSRFFetch       = "fetch"    // Requests a token from the server.
	csrfRequired    = "Required" // Sent by the server if the token was rejected.
)

/*
Security is a security session: the cookie jar shared by all requests, the CSRF token and the
stateful contexts bound to it.

Security is not safe for concurrent use. The dispatcher serializes all access.
*/
type Security struct {
	created  time.Time
	jar      *cookie.Jar
	csrf     string
	contexts map[ContextID]*Context
	now      func() time.Time
}

// New creates a security session from the headers of a response. If id is not nil the
// response belongs to a stateful request of that context.
//
// Malformed Set-Cookie values are dropped and returned as joined *cookie.ParseError. The session
// is valid in any case.
func New(h http.Header, id *ContextID) (*Security, error) {
	s := &Security{
		jar:      cookie.NewJar(),
		contexts: make(map[ContextID]*Context),
		now:      time.Now,
	}
	s.created = s.now()
	err := s.merge(h, id)
	return s, err
}

// Update merges the headers of a response into the session.
func (s *Security) Update(h http.Header, id *ContextID) error { return s.merge(h, id) }

func (s *Security) merge(h http.Header, id *ContextID) error {
	var ctx *Context
	if id != nil {
		ctx = s.contexts[*id]
		if ctx != nil && ctx.cookie != nil {
			// put the context cookie back so that a tombstone or a new value of this response applies.
			s.jar.Set(ctx.cookie)
		}
	}

	err := s.jar.ApplyAll(h.Values(HeaderSetCookie))

	// never keep a work process binding in the shared jar.
	c := s.jar.Take(cookie.ContextID)
	switch {
	case id == nil:
	case c != nil:
		if ctx == nil {
			ctx = newContext(*id, s.now())
			s.contexts[*id] = ctx
		}
		ctx.cookie = c
	case ctx != nil:
		ctx.cookie = nil
	}

	if token := h.Get(HeaderCSRFToken); token != "" {
		if strings.EqualFold(token, csrfRequired) {
			s.csrf = ""
		} else {
			s.csrf = token
		}
	}
	return err
}

// Created returns the creation time of the session.
func (s *Security) Created() time.Time { return s.created }

// Established reports whether the jar holds a security session cookie.
func (s *Security) Established() bool { return s.jar.FindPrefix(cookie.SessionID) != nil }

// SessionID returns the value of the security session cookie.
func (s *Security) SessionID() (string, bool) {
	if c := s.jar.FindPrefix(cookie.SessionID); c != nil {
		return c.Value, true
	}
	return "", false
}

// CSRFToken returns the CSRF token if known.
func (s *Security) CSRFToken() (string, bool) { return s.csrf, s.csrf != "" }

// CSRFHeader returns the value for the CSRF request header.
func (s *Security) CSRFHeader() string {
	if s.csrf == "" {
		return CSRFFetch
	}
	return s.csrf
}

// StatelessCookieHeader returns the Cookie request header value for destination.
func (s *Security) StatelessCookieHeader(destination string) string {
	return s.jar.Header(destination)
}

// StatefulCookieHeader returns the Cookie request header value for destination including
// the context cookie of id if one is bound.
func (s *Security) StatefulCookieHeader(id ContextID, destination string) string {
	h := s.jar.Header(destination)
	ctx, ok := s.contexts[id]
	if !ok || ctx.cookie == nil {
		return h
	}
	if h == "" {
		return ctx.cookie.Pair()
	}
	return h + "; " + ctx.cookie.Pair()
}

// Context returns the context bound to id.
func (s *Security) Context(id ContextID) (*Context, bool) {
	ctx, ok := s.contexts[id]
	return ctx, ok
}

// DropContext removes the local record of context id.
func (s *Security) DropContext(id ContextID) bool {
	if _, ok := s.contexts[id]; !ok {
		return false
	}
	delete(s.contexts, id)
	return true
}

// NumContexts returns the number of bound contexts.
func (s *Security) NumContexts() int { return len(s.contexts) }

// Clear removes all cookies, the CSRF token and all contexts.
func (s *Security) Clear() {
	s.jar.Clear()
	s.csrf = ""
	clear(s.contexts)
}
