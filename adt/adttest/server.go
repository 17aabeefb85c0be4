// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adttest

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/SAP/go-adt/adt/transport"
)

// Paths served by Server.
const (
	DiscoveryPath = "/sap/bc/adt/core/discovery"
	LogoffPath    = "/sap/public/bc/icf/logoff"
)

// DiscoveryETag is the etag of the discovery document.
const DiscoveryETag = "20250101000000"

// DiscoveryXML is the discovery document served by Server.
const DiscoveryXML = `<?xml version="1.0" encoding="utf-8"?>
<app:service xmlns:app="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom">
  <app:workspace>
    <atom:title>Object Repository</atom:title>
    <app:collection href="/sap/bc/adt/programs/programs">
      <atom:title>Programs</atom:title>
      <app:accept>application/vnd.sap.adt.programs.programs.v2+xml</app:accept>
      <atom:category term="programs" scheme="http://www.sap.com/adt/categories/programs"/>
    </app:collection>
    <app:collection href="/sap/bc/adt/oo/classes">
      <atom:title>Classes</atom:title>
      <atom:category term="classes" scheme="http://www.sap.com/adt/categories/oo"/>
    </app:collection>
  </app:workspace>
  <app:workspace>
    <atom:title>Discovery</atom:title>
    <app:collection href="/sap/bc/adt/core/discovery">
      <atom:title>Discovery</atom:title>
    </app:collection>
  </app:workspace>
</app:service>`

const lockResultXML = `<?xml version="1.0" encoding="utf-8"?>
<asx:abap xmlns:asx="http://www.sap.com/abapxml" version="1.0">
  <asx:values>
    <DATA>
      <LOCK_HANDLE>%s</LOCK_HANDLE>
      <CORRNR/>
      <CORRUSER/>
      <CORRTEXT/>
      <IS_LOCAL>X</IS_LOCAL>
      <IS_LINK_UP/>
      <MODIFICATION_SUPPORT>NoModification</MODIFICATION_SUPPORT>
    </DATA>
  </asx:values>
</asx:abap>`

// objectCollections lists the collections holding objects which can be locked.
var objectCollections = []string{"/sap/bc/adt/programs/programs/", "/sap/bc/adt/oo/classes/"}

func objectExists(path string) bool {
	for _, prefix := range objectCollections {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return true
		}
	}
	return false
}

const (
	headerCSRFToken   = "X-Csrf-Token"
	headerSessionType = "X-sap-adt-sessiontype"
	cookieContextID   = "sap-contextid"
)

type serverSession struct {
	token    string
	contexts map[string]bool
}

type objectLock struct {
	context string
	handle  string
}

/*
Server simulates the session handling of an ABAP application server.

A request without a valid session cookie logs on with basic authentication and receives a
new SAP_SESSIONID_<SID>_<client> cookie. A CSRF token is issued on request and checked for
state changing requests. Stateful requests are bound to a sap-contextid. Objects can be
locked and unlocked with _action=LOCK and _action=UNLOCK; only programs and classes exist.
*/
type Server struct {
	Username, Password string
	SID                string
	Client             string

	mu          sync.Mutex
	lastSession int
	lastContext int
	lastToken   int
	lastLock    int
	logons      int
	sessions    map[string]*serverSession
	locks       map[string]objectLock
}

// NewServer returns a server with system id A4H and client 001.
func NewServer(username, password string) *Server {
	return &Server{
		Username: username,
		Password: password,
		SID:      "A4H",
		Client:   "001",
		sessions: map[string]*serverSession{},
		locks:    map[string]objectLock{},
	}
}

// SessionCookie returns the name of the security session cookie.
func (s *Server) SessionCookie() string {
	return fmt.Sprintf("SAP_SESSIONID_%s_%s", s.SID, s.Client)
}

// Logons returns the number of successful basic authentication logons.
func (s *Server) Logons() int { s.mu.Lock(); defer s.mu.Unlock(); return s.logons }

// Sessions returns the number of active security sessions.
func (s *Server) Sessions() int { s.mu.Lock(); defer s.mu.Unlock(); return len(s.sessions) }

// Locked reports whether the object at path is locked.
func (s *Server) Locked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.locks[path]
	return ok
}

// InvalidateTokens forgets all CSRF tokens.
func (s *Server) InvalidateTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.token = ""
	}
}

// EndSessions ends all security sessions without notifying clients.
func (s *Server) EndSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

func parseCookies(h string) map[string]string {
	cookies := map[string]string{}
	for _, pair := range strings.Split(h, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok {
			cookies[name] = value
		}
	}
	return cookies
}

func (s *Server) basicAuth(h string) bool {
	b64, ok := strings.CutPrefix(h, "Basic ")
	if !ok {
		return false
	}
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return false
	}
	return string(b) == s.Username+":"+s.Password
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

// RoundTrip implements the transport.Transport interface.
func (s *Server) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle(req), nil
}

func (s *Server) handle(req *transport.Request) *transport.Response {
	resp := &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	cookies := parseCookies(req.Header.Get("Cookie"))

	sessionCookie := s.SessionCookie()
	sid := cookies[sessionCookie]
	sess := s.sessions[sid]
	if sess == nil {
		if !s.basicAuth(req.Header.Get("Authorization")) {
			resp.StatusCode = http.StatusUnauthorized
			resp.Body = []byte("Logon failed")
			return resp
		}
		s.logons++
		s.lastSession++
		sid = fmt.Sprintf("S%04d", s.lastSession)
		sess = &serverSession{contexts: map[string]bool{}}
		s.sessions[sid] = sess
		resp.Header.Add("Set-Cookie", fmt.Sprintf("%s=%s; path=/; HttpOnly", sessionCookie, sid))
		resp.Header.Add("Set-Cookie", fmt.Sprintf("sap-usercontext=sap-client=%s; path=/", s.Client))
	}

	if req.URL.Path == LogoffPath {
		delete(s.sessions, sid)
		resp.Header.Add("Set-Cookie", sessionCookie+"=; path=/; expires=Thu, 01-Jan-1970 00:00:01 GMT")
		return resp
	}

	token := req.Header.Get(headerCSRFToken)
	if strings.EqualFold(token, "fetch") {
		if sess.token == "" {
			s.lastToken++
			sess.token = fmt.Sprintf("T%04d", s.lastToken)
		}
		resp.Header.Set(headerCSRFToken, sess.token)
	}
	if mutating(req.Method) && (sess.token == "" || token != sess.token) {
		resp.StatusCode = http.StatusForbidden
		resp.Header.Set(headerCSRFToken, "Required")
		resp.Body = []byte("CSRF token validation failed")
		return resp
	}

	var contextID string
	if req.Header.Get(headerSessionType) == "stateful" {
		if c, ok := cookies[cookieContextID]; ok && sess.contexts[c] {
			contextID = c
		} else {
			s.lastContext++
			contextID = fmt.Sprintf("SID%%3aANON%%3a%s_%04d", s.SID, s.lastContext)
			sess.contexts[contextID] = true
			resp.Header.Add("Set-Cookie", fmt.Sprintf("%s=%s; path=/sap/bc/adt", cookieContextID, contextID))
		}
	}

	query := req.URL.Query()
	switch query.Get("_action") {
	case "LOCK":
		if contextID == "" {
			resp.StatusCode = http.StatusBadRequest
			resp.Body = []byte("stateful session required")
			return resp
		}
		if !objectExists(req.URL.Path) {
			resp.StatusCode = http.StatusNotFound
			resp.Body = []byte("resource does not exist")
			return resp
		}
		if _, ok := s.locks[req.URL.Path]; ok {
			resp.StatusCode = http.StatusForbidden
			resp.Body = []byte("object is locked by another user or context")
			return resp
		}
		s.lastLock++
		l := objectLock{context: contextID, handle: fmt.Sprintf("H%038d", s.lastLock)}
		s.locks[req.URL.Path] = l
		resp.Header.Set("Content-Type", "application/vnd.sap.as+xml; charset=utf-8; dataname=com.sap.adt.lock.Result2")
		resp.Body = fmt.Appendf(nil, lockResultXML, l.handle)
	case "UNLOCK":
		if l, ok := s.locks[req.URL.Path]; ok && l.handle == query.Get("lockHandle") {
			delete(s.locks, req.URL.Path)
		}
	default:
		if req.URL.Path == DiscoveryPath {
			resp.Header.Set("ETag", DiscoveryETag)
			if req.Header.Get("If-None-Match") == DiscoveryETag {
				resp.StatusCode = http.StatusNotModified
				return resp
			}
			resp.Header.Set("Content-Type", "application/atomsvc+xml")
			resp.Body = []byte(DiscoveryXML)
		}
	}
	return resp
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, _ := s.RoundTrip(r.Context(), &transport.Request{Method: r.Method, URL: r.URL, Header: r.Header, Body: body})
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
