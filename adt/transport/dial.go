// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// The Dialer interface needs to be implemented by custom dialers, e.g. the SOCKS5
// connectivity proxy dialer of package proxy.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DefaultTCPKeepAlive is the keep-alive period of the default dialer (copied from net.dial.go).
const DefaultTCPKeepAlive = 15 * time.Second

// DefaultDialer is the default Dialer implementation.
var DefaultDialer Dialer = &tcp4PrefDialer{dialer: net.Dialer{KeepAlive: DefaultTCPKeepAlive}}

// dialer which prefers tcp4 connections over tcp6. Many on-premise application servers
// only listen on IPv4.
type tcp4PrefDialer struct {
	dialer net.Dialer
}

func (d *tcp4PrefDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network == "tcp" {
		if conn, err := d.dialer.DialContext(ctx, "tcp4", address); err == nil {
			return conn, nil
		}
	}
	return d.dialer.DialContext(ctx, network, address)
}
