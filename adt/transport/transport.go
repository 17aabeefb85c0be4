// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the wire transport used by the adt dispatcher.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// A Request is a fully prepared request. The dispatcher has already attached
// credentials, cookies and the CSRF token.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// A Response is the raw response of a round trip.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport is the interface of a wire transport.
//
// RoundTrip must not interpret the response status. A failure to obtain a
// response is returned as *DispatchError.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// DispatchError is the error returned if a request could not be sent or no
// response was received.
type DispatchError struct {
	Method string
	URL    string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s %s: %s", e.Method, e.URL, e.Err)
}

// Unwrap returns the nested error.
func (e *DispatchError) Unwrap() error { return e.Err }

func newDispatchError(req *Request, err error) *DispatchError {
	return &DispatchError{Method: req.Method, URL: redacted(req.URL), Err: err}
}

func redacted(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
