// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package proxy

import "fmt"

// reply is the SOCKS5 reply field (RFC 1928 section 6).
type reply byte

const (
	replySucceeded reply = iota
	replyGeneralFailure
	replyNotAllowed
	replyNetworkUnreachable
	replyHostUnreachable
	replyConnectionRefused
	replyTTLExpired
	replyCommandNotSupported
	replyAddressTypeNotSupported
)

var replyTexts = [...]string{
	replySucceeded:               "succeeded",
	replyGeneralFailure:          "general SOCKS server failure",
	replyNotAllowed:              "connection not allowed by ruleset",
	replyNetworkUnreachable:      "network unreachable",
	replyHostUnreachable:         "host unreachable",
	replyConnectionRefused:       "connection refused",
	replyTTLExpired:              "TTL expired",
	replyCommandNotSupported:     "command not supported",
	replyAddressTypeNotSupported: "address type not supported",
}

func (r reply) String() string {
	if int(r) < len(replyTexts) {
		return replyTexts[r]
	}
	return fmt.Sprintf("unknown code 0x%02X", byte(r))
}

// ReplyError is the error returned if the proxy rejects a connect request.
type ReplyError struct {
	code reply
}

func (e *ReplyError) Error() string { return "proxy reply: " + e.code.String() }

// Code returns the SOCKS5 reply code.
func (e *ReplyError) Code() byte { return byte(e.code) }
