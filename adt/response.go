// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"net/http"
	"slices"

	"github.com/SAP/go-adt/adt/transport"
)

// Response is the raw response of a dispatched request.
type Response = transport.Response

// ExpectStatus returns a *StatusError if the status code of resp is not one of codes.
func ExpectStatus(resp *Response, codes ...int) error {
	if slices.Contains(codes, resp.StatusCode) {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
}

// Success returns the body of a response with status 200.
func Success(resp *Response) ([]byte, error) {
	if err := ExpectStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Cached is the result of a cache controlled request.
type Cached struct {
	Modified bool   // false if the server answered 304 Not Modified.
	ETag     string // Empty if the server did not send one.
	Body     []byte // nil if not modified.
}

// CacheControlled decodes a response of a request which may be answered by 304 Not Modified.
func CacheControlled(resp *Response) (*Cached, error) {
	if err := ExpectStatus(resp, http.StatusOK, http.StatusNotModified); err != nil {
		return nil, err
	}
	c := &Cached{Modified: resp.StatusCode == http.StatusOK, ETag: resp.Header.Get("ETag")}
	if c.Modified {
		c.Body = resp.Body
	}
	return c, nil
}

// Plain returns the response without inspecting the status code.
func Plain(resp *Response) (*Response, error) { return resp, nil }
