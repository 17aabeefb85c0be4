// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SAP/go-adt/adt/internal/session"
)

// ContextID is a handle of a stateful context reserved by a Dispatcher.
type ContextID = session.ContextID

// Session types sent in the X-sap-adt-sessiontype header.
const (
	sessionTypeStateless = "stateless"
	sessionTypeStateful  = "stateful"
)

// A Kind is either stateless or stateful. A stateful Kind carries the context
// handle whose work process binding is to be used.
type Kind struct {
	stateful bool
	id       ContextID
}

// Stateless returns the stateless Kind.
func Stateless() Kind { return Kind{} }

// Stateful returns the stateful Kind bound to context id.
func Stateful(id ContextID) Kind { return Kind{stateful: true, id: id} }

// IsStateful reports whether k is stateful.
func (k Kind) IsStateful() bool { return k.stateful }

// ContextID returns the context handle of a stateful Kind.
func (k Kind) ContextID() (ContextID, bool) { return k.id, k.stateful }

func (k Kind) String() string {
	if k.stateful {
		return sessionTypeStateful
	}
	return sessionTypeStateless
}

/*
A Request describes a request relative to the ADT root /sap/bc/adt/ of the server.

A Path starting with '/' is taken as absolute path on the server instead, so that
object uris as returned by the server (e.g. /sap/bc/adt/programs/programs/zprog) can be used
unmodified.
*/
type Request struct {
	Method string
	Path   string
	Params url.Values
	Header http.Header
	Body   []byte
	Kind   Kind
}

// Request implements the Endpoint interface.
func (r *Request) Request() (*Request, error) { return r, nil }

// WithHeader adds the header values hv to r and returns r.
func (r *Request) WithHeader(hv ...HeaderValue) *Request {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	for _, v := range hv {
		r.Header.Set(v.Name, v.Value)
	}
	return r
}

func (r *Request) mutating() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

// An Endpoint provides the request to be dispatched.
type Endpoint interface {
	Request() (*Request, error)
}

// An Operation is an Endpoint decoding its own response.
type Operation[T any] interface {
	Endpoint
	Decode(resp *Response) (T, error)
}

// Query dispatches op according to its Kind and decodes the response.
func Query[T any](ctx context.Context, d *Dispatcher, op Operation[T]) (T, error) {
	resp, err := d.Dispatch(ctx, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return op.Decode(resp)
}

// ADT request header names.
const (
	HeaderProfiling      = "X-sap-adt-profiling"
	HeaderRuntimeTracing = "X-adt-runtime-tracing"
	HeaderServerInstance = "X-sap-adt-server-instance"
	HeaderSoftState      = "X-sap-adt-softstate"
	HeaderSessionType    = "X-sap-adt-sessiontype"
)

// ProfilingServerTime is the profiling kind measuring the server time.
const ProfilingServerTime = "server-time"

// A HeaderValue is an optional ADT request header.
type HeaderValue struct {
	Name, Value string
}

// Profiling returns the runtime profiling header of kind, e.g. ProfilingServerTime.
func Profiling(kind string) HeaderValue { return HeaderValue{HeaderProfiling, kind} }

// ServerInstance returns the header selecting the application server instance.
func ServerInstance(name string) HeaderValue { return HeaderValue{HeaderServerInstance, name} }

// SoftState returns the soft state header.
func SoftState(on bool) HeaderValue {
	v := 0
	if on {
		v = 1
	}
	return HeaderValue{HeaderSoftState, strconv.Itoa(v)}
}

// RuntimeTracing returns the request trace header.
func RuntimeTracing(v string) HeaderValue { return HeaderValue{HeaderRuntimeTracing, v} }
