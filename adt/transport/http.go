// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"
)

// HTTPOptions contains optional parameters of the HTTP transport.
type HTTPOptions struct {
	Timeout   time.Duration // Zero means no timeout.
	TLSConfig *tls.Config
	Dialer    Dialer // A custom dialer disables proxies configured by environment.
}

// HTTP is the net/http based default transport.
//
// Cookies are not handled by the transport, the client jar is unset and redirects are
// not followed so that every Set-Cookie header reaches the security session.
type HTTP struct {
	client *http.Client
}

// NewHTTP returns a new HTTP transport.
func NewHTTP(opts HTTPOptions) *HTTP {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	dialer := opts.Dialer
	if dialer != nil {
		tr.Proxy = nil
	} else {
		dialer = DefaultDialer
	}
	tr.DialContext = dialer.DialContext
	if opts.TLSConfig != nil {
		tr.TLSClientConfig = opts.TLSConfig.Clone()
	}
	return &HTTP{client: &http.Client{
		Transport: tr,
		Timeout:   opts.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

// RoundTrip implements the Transport interface.
func (t *HTTP) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, newDispatchError(req, err)
	}
	if req.Header != nil {
		hreq.Header = req.Header.Clone()
	}

	hresp, err := t.client.Do(hreq)
	if err != nil {
		return nil, newDispatchError(req, err)
	}
	defer hresp.Body.Close()

	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, newDispatchError(req, err)
	}
	return &Response{StatusCode: hresp.StatusCode, Header: hresp.Header, Body: b}, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *HTTP) CloseIdleConnections() { t.client.CloseIdleConnections() }
