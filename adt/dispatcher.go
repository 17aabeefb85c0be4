// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SAP/go-adt/adt/internal/session"
	"github.com/SAP/go-adt/adt/transport"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Server paths.
const (
	adtRoot    = "/sap/bc/adt/"
	logoffPath = "/sap/public/bc/icf/logoff"
)

// Query parameters added to every request.
const (
	paramClient   = "sap-client"
	paramLanguage = "sap-language"
)

const tracerName = "github.com/SAP/go-adt/adt"

type dispatcherConfig struct {
	server             *url.URL
	username, password string
	client, language   string
}

/*
A Dispatcher sends requests on behalf of one security session.

The first request logs on with basic authentication. All concurrent requests issued
before a session exists wait for the first successful response, so that exactly one
security session is created. Every state changing request carries a CSRF token which is
requested from the server once if not yet known.

A Dispatcher is safe for concurrent use.
*/
type Dispatcher struct {
	id            uuid.UUID
	server        *url.URL
	client        string
	language      string
	authorization string
	transport     transport.Transport
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics

	// initGuard serializes the bootstrap. It is held across the bootstrap round trips.
	initGuard *semaphore.Weighted
	// mu protects security. It is never held across I/O.
	mu       sync.Mutex
	security *session.Security // nil if no security session is established.

	lastContextID atomic.Uint64
}

func newDispatcher(cfg *dispatcherConfig, t transport.Transport, logger *slog.Logger, tp trace.TracerProvider, metrics *metrics) *Dispatcher {
	id := uuid.New()
	return &Dispatcher{
		id:            id,
		server:        cfg.server,
		client:        cfg.client,
		language:      cfg.language,
		authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.username+":"+cfg.password)),
		transport:     t,
		logger:        logger.With(slog.String("dispatcher", id.String())),
		tracer:        tp.Tracer(tracerName),
		metrics:       metrics,
		initGuard:     semaphore.NewWeighted(1),
	}
}

// NewDispatcher returns a new dispatcher created by connector c.
func NewDispatcher(c *Connector) (*Dispatcher, error) { return c.NewDispatcher() }

// ID returns the unique id of the dispatcher used in logs and traces.
func (d *Dispatcher) ID() uuid.UUID { return d.id }

// CloseIdleConnections closes idle connections of the transport if supported.
func (d *Dispatcher) CloseIdleConnections() {
	if c, ok := d.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// Stats returns the statistics of the dispatcher.
func (d *Dispatcher) Stats() Stats { return d.metrics.stats() }

// Reserve allocates a new context handle. No request is sent; the server binding
// is created by the first stateful request using the handle.
func (d *Dispatcher) Reserve() ContextID { return ContextID(d.lastContextID.Add(1)) }

/*
Drop forgets the context bound to id and reports whether one was bound.

The server is not notified. Objects locked within the context stay locked until they are
unlocked explicitly (see package object) or the server side context times out.
*/
func (d *Dispatcher) Drop(id ContextID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.security == nil || !d.security.DropContext(id) {
		return false
	}
	d.metrics.addGaugeValue(gaugeContext, -1)
	return true
}

// SessionID returns the value of the security session cookie.
func (d *Dispatcher) SessionID() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.security == nil {
		return "", false
	}
	return d.security.SessionID()
}

// Established reports whether a security session exists.
func (d *Dispatcher) Established() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.security != nil
}

// Dispatch dispatches ep according to the Kind of its request.
func (d *Dispatcher) Dispatch(ctx context.Context, ep Endpoint) (*Response, error) {
	r, err := ep.Request()
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, r, r.Kind)
}

// DispatchStateless dispatches ep without a context binding.
func (d *Dispatcher) DispatchStateless(ctx context.Context, ep Endpoint) (*Response, error) {
	r, err := ep.Request()
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, r, Stateless())
}

// DispatchStateful dispatches ep within the context bound to id.
func (d *Dispatcher) DispatchStateful(ctx context.Context, ep Endpoint, id ContextID) (*Response, error) {
	r, err := ep.Request()
	if err != nil {
		return nil, err
	}
	return d.dispatch(ctx, r, Stateful(id))
}

// initGuard state of a single dispatch.
type guard struct {
	sem  *semaphore.Weighted
	held bool
}

func (g *guard) acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.held = true
	return nil
}

func (g *guard) release() {
	if g.held {
		g.held = false
		g.sem.Release(1)
	}
}

func (d *Dispatcher) url(path string, params url.Values) *url.URL {
	u := *d.server
	// the server path is a prefix of all server paths.
	if strings.HasPrefix(path, "/") {
		u.Path += path
	} else {
		u.Path += adtRoot + path
	}
	q := maps.Clone(params)
	if q == nil {
		q = url.Values{}
	}
	if d.client != "" {
		q.Set(paramClient, d.client)
	}
	if d.language != "" {
		q.Set(paramLanguage, d.language)
	}
	u.RawQuery = q.Encode()
	return &u
}

func roundTripCategory(kind Kind) int {
	if kind.IsStateful() {
		return rtStateful
	}
	return rtStateless
}

func (d *Dispatcher) dispatch(ctx context.Context, r *Request, kind Kind) (*Response, error) {
	u := d.url(r.Path, r.Params)

	ctx, span := d.tracer.Start(ctx, "adt.dispatch", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", u.Path),
		attribute.String("adt.session_type", kind.String()),
		attribute.String("adt.dispatcher", d.id.String()),
	))
	defer span.End()

	resp, err := d.dispatchGuarded(ctx, r, u, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (d *Dispatcher) dispatchGuarded(ctx context.Context, r *Request, u *url.URL, kind Kind) (*Response, error) {
	g := &guard{sem: d.initGuard}
	defer g.release()

	h, err := d.prepare(ctx, g, u, kind)
	if err != nil {
		return nil, err
	}

	if r.mutating() && h.Get(session.HeaderCSRFToken) == session.CSRFFetch {
		if err := d.fetchCSRFToken(ctx, g, u, kind); err != nil {
			return nil, err
		}
		if h, err = d.prepare(ctx, g, u, kind); err != nil {
			return nil, err
		}
		if h.Get(session.HeaderCSRFToken) == session.CSRFFetch {
			// the session has been discarded meanwhile.
			return nil, ErrMissingCSRFToken
		}
	}

	for k, v := range r.Header {
		if _, ok := h[k]; !ok {
			h[k] = v
		}
	}
	resp, err := d.roundTrip(ctx, roundTripCategory(kind), &transport.Request{Method: r.Method, URL: u, Header: h, Body: r.Body}, kind)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

/*
prepare returns the session headers for a request to u. Without a security session the
init guard is acquired and basic credentials are returned. A caller waiting for the guard
finds the session established by the guard holder and releases the guard at once.

Every request of a dispatch obtains its headers from prepare, so basic credentials are
only ever sent by the guard holder.
*/
func (d *Dispatcher) prepare(ctx context.Context, g *guard, u *url.URL, kind Kind) (http.Header, error) {
	for {
		h, established := d.header(u, kind)
		switch {
		case established:
			g.release()
			return h, nil
		case g.held:
			return h, nil
		}
		if err := g.acquire(ctx); err != nil {
			return nil, err
		}
	}
}

func (d *Dispatcher) header(u *url.URL, kind Kind) (http.Header, bool) {
	h := http.Header{}
	h.Set(HeaderSessionType, kind.String())

	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.security
	if s == nil {
		h.Set("Authorization", d.authorization)
		h.Set(session.HeaderCSRFToken, session.CSRFFetch)
		return h, false
	}
	dst := u.String()
	var cookie string
	if id, ok := kind.ContextID(); ok {
		cookie = s.StatefulCookieHeader(id, dst)
	} else {
		cookie = s.StatelessCookieHeader(dst)
	}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
	h.Set(session.HeaderCSRFToken, s.CSRFHeader())
	return h, true
}

// fetchCSRFToken requests a CSRF token with a body-less GET to the path of u.
// The session may have been discarded since the caller prepared its request; the
// token request then bootstraps under the init guard.
func (d *Dispatcher) fetchCSRFToken(ctx context.Context, g *guard, u *url.URL, kind Kind) error {
	ctx, span := d.tracer.Start(ctx, "adt.csrf_fetch")
	defer span.End()

	fetchURL := d.url(u.Path, nil)
	h, err := d.prepare(ctx, g, fetchURL, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	h.Set(session.HeaderCSRFToken, session.CSRFFetch)

	resp, err := d.roundTrip(ctx, rtCSRF, &transport.Request{Method: http.MethodGet, URL: fetchURL, Header: h}, kind)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		err = &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if err == nil {
		d.mu.Lock()
		switch {
		case d.security == nil:
			err = ErrCookiesMissing
		default:
			if _, ok := d.security.CSRFToken(); !ok {
				err = ErrMissingCSRFToken
			}
		}
		d.mu.Unlock()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// roundTrip sends req and merges the response into the security session.
func (d *Dispatcher) roundTrip(ctx context.Context, category int, req *transport.Request, kind Kind) (*Response, error) {
	if req.Header.Get("Authorization") != "" {
		d.metrics.addCounterValue(counterBootstraps, 1)
	}
	d.metrics.addCounterValue(counterBytesWritten, uint64(len(req.Body)))

	start := time.Now()
	resp, err := d.transport.RoundTrip(ctx, req)
	d.metrics.addDurationValue(category, time.Since(start))
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "round trip failed", slog.String("method", req.Method), slog.String("path", req.URL.Path), slog.String("error", err.Error()))
		return nil, err
	}
	d.metrics.addCounterValue(counterBytesRead, uint64(len(resp.Body)))
	d.logger.LogAttrs(ctx, slog.LevelDebug, "round trip",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("session type", kind.String()),
	)

	// the response has arrived: merge regardless of a cancellation of ctx.
	d.merge(context.WithoutCancel(ctx), resp, kind)
	return resp, nil
}

func (d *Dispatcher) merge(ctx context.Context, resp *Response, kind Kind) {
	var id *ContextID
	if cid, ok := kind.ContextID(); ok {
		id = &cid
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if resp.StatusCode == http.StatusUnauthorized {
		d.metrics.addCounterValue(counterUnauthorized, 1)
		if d.security != nil {
			d.discard()
			d.logger.LogAttrs(ctx, slog.LevelInfo, "security session discarded", slog.Int("status", resp.StatusCode))
		}
		return
	}

	var err error
	if d.security == nil {
		var s *session.Security
		s, err = session.New(resp.Header, id)
		if s.Established() {
			d.security = s
			d.metrics.addGaugeValue(gaugeSession, 1)
			d.metrics.addGaugeValue(gaugeContext, int64(s.NumContexts()))
			d.logger.LogAttrs(ctx, slog.LevelInfo, "security session established")
		}
	} else {
		s := d.security
		_, hadToken := s.CSRFToken()
		numContexts := s.NumContexts()
		err = s.Update(resp.Header, id)
		d.metrics.addGaugeValue(gaugeContext, int64(s.NumContexts()-numContexts))
		if _, ok := s.CSRFToken(); hadToken && !ok {
			d.metrics.addCounterValue(counterCSRFInvalidated, 1)
			d.logger.LogAttrs(ctx, slog.LevelWarn, "csrf token invalidated by server", slog.Int("status", resp.StatusCode))
		}
		if !s.Established() {
			d.discard()
			d.logger.LogAttrs(ctx, slog.LevelInfo, "security session ended by server")
		}
	}
	if err != nil {
		d.logDroppedCookies(ctx, err)
	}
}

func (d *Dispatcher) logDroppedCookies(ctx context.Context, err error) {
	n := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n = len(joined.Unwrap())
	}
	d.metrics.addCounterValue(counterDroppedCookies, uint64(n))
	// the error contains the cookie value, log the count only.
	d.logger.LogAttrs(ctx, slog.LevelWarn, "malformed Set-Cookie values dropped", slog.Int("count", n))
}

// discard removes the security session. d.mu must be held.
func (d *Dispatcher) discard() {
	if d.security == nil {
		return
	}
	d.metrics.addGaugeValue(gaugeContext, -int64(d.security.NumContexts()))
	d.metrics.addGaugeValue(gaugeSession, -1)
	d.security.Clear()
	d.security = nil
}

// ErrNoSession is returned by Logoff if no security session exists.
var ErrNoSession = errors.New("no security session")

/*
Logoff ends the security session on the server and discards it locally. The local
session is discarded even if the logoff request fails. All contexts are dropped.
*/
func (d *Dispatcher) Logoff(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "adt.logoff", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := d.url(logoffPath, nil)

	d.mu.Lock()
	s := d.security
	if s == nil {
		d.mu.Unlock()
		return ErrNoSession
	}
	h := http.Header{}
	if cookie := s.StatelessCookieHeader(u.String()); cookie != "" {
		h.Set("Cookie", cookie)
	}
	d.mu.Unlock()

	start := time.Now()
	_, err := d.transport.RoundTrip(ctx, &transport.Request{Method: http.MethodGet, URL: u, Header: h})
	d.metrics.addDurationValue(rtLogoff, time.Since(start))

	d.mu.Lock()
	if d.security == s {
		d.discard()
	}
	d.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "logged off")
	return nil
}
