// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SAP/go-adt/adt/transport"
)

// ErrUnauthorized is the error returned if the server answers with status 401.
// The error is wrapped in a *StatusError carrying the response body.
var ErrUnauthorized = errors.New("unauthorized")

// ErrMissingCSRFToken is the error raised if a state changing request cannot be sent because
// the server did not provide a CSRF token on request.
var ErrMissingCSRFToken = errors.New("missing csrf token")

// ErrCookiesMissing is the error raised if the CSRF token request did not establish a
// security session.
var ErrCookiesMissing = errors.New("security session cookies missing")

// DispatchError is the error returned by the transport if no response was received.
type DispatchError = transport.DispatchError

// StatusError is the error returned if a response has a status code the
// receiver does not accept.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches ErrUnauthorized for status code 401.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
