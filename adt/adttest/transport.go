// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package adttest provides a recording transport and a simulated ADT server for tests.
package adttest

import (
	"context"
	"slices"
	"sync"

	"github.com/SAP/go-adt/adt/transport"
)

// HandlerFunc is an adapter to use a function as transport.
type HandlerFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// RoundTrip implements the transport.Transport interface.
func (f HandlerFunc) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// Transport records all requests before passing them to a handler.
type Transport struct {
	handler transport.Transport

	mu       sync.Mutex
	requests []*transport.Request
}

// NewTransport returns a recording transport passing requests to h.
func NewTransport(h transport.Transport) *Transport { return &Transport{handler: h} }

func cloneRequest(req *transport.Request) *transport.Request {
	clone := &transport.Request{Method: req.Method, Header: req.Header.Clone(), Body: slices.Clone(req.Body)}
	if req.URL != nil {
		u := *req.URL
		clone.URL = &u
	}
	return clone
}

// RoundTrip implements the transport.Transport interface.
// A done ctx fails the request before it is recorded.
func (t *Transport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.DispatchError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	t.mu.Lock()
	t.requests = append(t.requests, cloneRequest(req))
	t.mu.Unlock()
	return t.handler.RoundTrip(ctx, req)
}

// Requests returns the recorded requests in order.
func (t *Transport) Requests() []*transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.requests)
}

// Count returns the number of recorded requests matching fn.
func (t *Transport) Count(fn func(req *transport.Request) bool) int {
	n := 0
	for _, req := range t.Requests() {
		if fn(req) {
			n++
		}
	}
	return n
}

// Reset removes all recorded requests.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = nil
}
