// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

type command byte

type authMethod byte

const (
	version5 = 0x05
	// Address types
	addrTypeIPv4 = 0x01
	addrTypeFQDN = 0x03
	addrTypeIPv6 = 0x04
	// Command types
	cmdConnect command = 0x01
	// Authentication methods
	authNotRequired    authMethod = 0x00
	authBasic          authMethod = 0x02
	authJWT            authMethod = 0x80
	authNoneAcceptable authMethod = 0xff
	// Authentication method versions
	authBasicVersion = 0x01
	authJWTVersion   = 0x01
	authReplySuccess = 0x00
)

const maxLen = 255

// ErrNoAcceptableAuthMethod is returned if the proxy accepts none of the offered authentication methods.
var ErrNoAcceptableAuthMethod = errors.New("proxy: no acceptable authentication method")

// A Dialer opens connections to a target server via a SOCKS5 proxy.
type Dialer struct {
	cfg         Config
	authMethods []authMethod
	dialer      net.Dialer
	expiry      time.Time // zero if the token does not expire.
}

// NewDialer creates a Dialer pointing to the SOCKS5 server specified in config.
func NewDialer(config *Config) *Dialer {
	d := &Dialer{cfg: *config}
	d.authMethods = []authMethod{authNotRequired}
	if config.JWTToken != "" {
		d.authMethods = append(d.authMethods, authJWT)
		d.expiry, _ = config.TokenExpiry()
	}
	if config.User != "" {
		d.authMethods = append(d.authMethods, authBasic)
	}
	return d
}

// DialContext establishes a connection to the server at address via the proxy.
// Only tcp networks are supported.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("proxy: network %s not supported", network)
	}
	if !d.expiry.IsZero() && !time.Now().Before(d.expiry) {
		return nil, ErrTokenExpired
	}
	conn, err := d.dialer.DialContext(ctx, "tcp", d.cfg.Address)
	if err != nil {
		return nil, err
	}
	if err := d.connect(ctx, conn, address); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// connect performs the SOCKS5 handshake. A cancellation of ctx interrupts pending reads and writes.
func (d *Dialer) connect(ctx context.Context, conn net.Conn, address string) (err error) {
	host, port, err := splitHostPort(address)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer func() {
		if !stop() {
			// conn carries an expired deadline.
			err = ctx.Err()
		}
	}()

	// Version/method selection
	// +----+----------+----------+
	// |VER | NMETHODS | METHODS  |
	// +----+----------+----------+
	// | 1  |    1     | 1 to 255 |
	// +----+----------+----------+
	b := make([]byte, 0, 6+len(host))
	b = append(b, version5, byte(len(d.authMethods)))
	for _, m := range d.authMethods {
		b = append(b, byte(m))
	}
	if _, err = conn.Write(b); err != nil {
		return err
	}
	// +----+--------+
	// |VER | METHOD |
	// +----+--------+
	if _, err = io.ReadFull(conn, b[:2]); err != nil {
		return err
	}
	if b[0] != version5 {
		return fmt.Errorf("unexpected SOCKS version %d - expected %d", b[0], version5)
	}
	if err = d.authenticate(conn, authMethod(b[1])); err != nil {
		return err
	}

	// Request
	// +----+-----+-------+------+----------+----------+
	// |VER | CMD |  RSV  | ATYP | DST.ADDR | DST.PORT |
	// +----+-----+-------+------+----------+----------+
	// | 1  |  1  | X'00' |  1   | Variable |    2     |
	// +----+-----+-------+------+----------+----------+
	b = b[:0]
	b = append(b, version5, byte(cmdConnect), 0)
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			b = append(b, addrTypeIPv4)
			b = append(b, ip4...)
		} else {
			b = append(b, addrTypeIPv6)
			b = append(b, ip.To16()...)
		}
	} else {
		if len(host) > maxLen {
			return errors.New("hostname cannot exceed 255 bytes")
		}
		b = append(b, addrTypeFQDN, byte(len(host)))
		b = append(b, host...)
	}
	b = binary.BigEndian.AppendUint16(b, port)
	if _, err = conn.Write(b); err != nil {
		return err
	}

	// Response
	// +----+-----+-------+------+----------+----------+
	// |VER | REP |  RSV  | ATYP | BND.ADDR | BND.PORT |
	// +----+-----+-------+------+----------+----------+
	if _, err = io.ReadFull(conn, b[:4]); err != nil {
		return err
	}
	if b[0] != version5 {
		return fmt.Errorf("unexpected SOCKS version %d - expected %d", b[0], version5)
	}
	if r := reply(b[1]); r != replySucceeded {
		return &ReplyError{code: r}
	}
	if b[2] != 0 {
		return fmt.Errorf("unexpected value %d in reserved field - expected zero", b[2])
	}
	var n int64
	switch b[3] {
	case addrTypeFQDN:
		if _, err = io.ReadFull(conn, b[:1]); err != nil {
			return err
		}
		n = int64(b[0])
	case addrTypeIPv4:
		n = net.IPv4len
	case addrTypeIPv6:
		n = net.IPv6len
	default:
		return fmt.Errorf("unknown address type 0x%02X", b[3])
	}
	// skip BND.ADDR and BND.PORT
	_, err = io.CopyN(io.Discard, conn, n+2)
	return err
}

func (d *Dialer) authenticate(conn net.Conn, method authMethod) error {
	switch method {
	case authNotRequired:
		return nil
	case authBasic:
		return d.authenticateBasic(conn)
	case authJWT:
		return d.authenticateJWT(conn)
	case authNoneAcceptable:
		return ErrNoAcceptableAuthMethod
	}
	return fmt.Errorf("unsupported authentication method 0x%02X", byte(method))
}

// authenticateBasic performs the username/password sub-negotiation (RFC 1929).
func (d *Dialer) authenticateBasic(conn net.Conn) error {
	switch {
	case d.cfg.User == "":
		return errors.New("username cannot be empty")
	case len(d.cfg.User) > maxLen:
		return errors.New("username cannot exceed 255 bytes")
	case d.cfg.Password == "":
		return errors.New("password cannot be empty")
	case len(d.cfg.Password) > maxLen:
		return errors.New("password cannot exceed 255 bytes")
	}
	// +----+------+----------+------+----------+
	// |VER | ULEN |  UNAME   | PLEN |  PASSWD  |
	// +----+------+----------+------+----------+
	b := []byte{authBasicVersion, byte(len(d.cfg.User))}
	b = append(b, d.cfg.User...)
	b = append(b, byte(len(d.cfg.Password)))
	b = append(b, d.cfg.Password...)
	if _, err := conn.Write(b); err != nil {
		return err
	}
	return readAuthReply(conn, authBasicVersion, "username/password")
}

// authenticateJWT performs the connectivity service sub-negotiation with a JWT token
// and an optional cloud connector location id.
func (d *Dialer) authenticateJWT(conn net.Conn) error {
	if d.cfg.JWTToken == "" {
		return errors.New("JWT token cannot be empty")
	}
	if len(d.cfg.LocationID) > maxLen {
		return errors.New("location ID cannot exceed 255 bytes")
	}
	// +----+------+----------+------+-----------+
	// |VER | TLEN |  TOKEN   | LLEN |  LOC_ID   |
	// +----+------+----------+------+-----------+
	// | 1  |  4   | Variable |  1   | Variable  |
	// +----+------+----------+------+-----------+
	b := &bytes.Buffer{}
	b.Grow(1 + 4 + len(d.cfg.JWTToken) + 1 + len(d.cfg.LocationID))
	b.WriteByte(authJWTVersion)
	binary.Write(b, binary.BigEndian, uint32(len(d.cfg.JWTToken)))
	b.WriteString(d.cfg.JWTToken)
	b.WriteByte(byte(len(d.cfg.LocationID)))
	b.WriteString(d.cfg.LocationID)
	if _, err := conn.Write(b.Bytes()); err != nil {
		return err
	}
	return readAuthReply(conn, authJWTVersion, "JWT")
}

func readAuthReply(conn net.Conn, version byte, name string) error {
	r := make([]byte, 2)
	if _, err := io.ReadFull(conn, r); err != nil {
		return err
	}
	if r[0] != version {
		return fmt.Errorf("invalid %s authentication version %d - expected %d", name, r[0], version)
	}
	if r[1] != authReplySuccess {
		return fmt.Errorf("%s authentication failed with error code %d", name, r[1])
	}
	return nil
}

func splitHostPort(address string) (string, uint16, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	if err != nil || portNum == 0 {
		return "", 0, fmt.Errorf("port number %s out of range", port)
	}
	return host, uint16(portNum), nil
}
