// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/SAP/go-adt/adt/internal/dsn"
	"github.com/SAP/go-adt/adt/transport"
	"github.com/SAP/go-adt/proxy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

// Connector default values.
const (
	DefaultClient  = "001"            // Default SAP client.
	DefaultTimeout = 60 * time.Second // Default transport timeout.
)

// minimal timeout value.
const minTimeout = 0 * time.Second

/*
A Connector represents an ADT server in a fixed configuration.
Dispatchers created by a Connector share its configuration at creation time and
report their statistics to the Connector.
*/
type Connector struct {
	mu                 sync.RWMutex
	server             string // scheme://host:port
	username, password string
	client             string
	language           string
	timeout            time.Duration
	tlsConfig          *tls.Config
	dialer             transport.Dialer
	transport          transport.Transport
	logger             *slog.Logger
	tracerProvider     trace.TracerProvider
	metrics            *metrics
}

// NewConnector returns a new Connector instance with default values.
func NewConnector() *Connector {
	return &Connector{
		client:  DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		metrics: newMetrics(nil),
	}
}

// NewBasicAuthConnector creates a connector for basic authentication.
// server is the url of the application server, e.g. https://vhcala4hci:50001. A path
// (e.g. https://gateway/abap behind a reverse proxy) prefixes all request paths.
func NewBasicAuthConnector(server, username, password string) *Connector {
	c := NewConnector()
	c.server = strings.TrimSuffix(server, "/")
	c.username = username
	c.password = password
	return c
}

// NewDSNConnector creates a connector from a data source name.
func NewDSNConnector(dsnStr string) (*Connector, error) {
	dsn, err := dsn.Parse(dsnStr)
	if err != nil {
		return nil, err
	}
	c := NewConnector()
	c.server = dsn.Server.String()
	c.username = dsn.Username
	c.password = dsn.Password
	if dsn.Client != "" {
		c.client = dsn.Client
	}
	if dsn.Language != "" {
		if err := c.setLanguage(dsn.Language); err != nil {
			return nil, err
		}
	}
	if dsn.Timeout != 0 {
		c.setTimeout(dsn.Timeout)
	}
	if dsn.TLS != nil {
		if err := c.setTLS(dsn.TLS.ServerName, dsn.TLS.InsecureSkipVerify, dsn.TLS.RootCAFiles); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Server returns the server url of the connector.
func (c *Connector) Server() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.server }

// Username returns the username of the connector.
func (c *Connector) Username() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.username }

// Password returns the password of the connector.
func (c *Connector) Password() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.password }

// SetPassword sets the password of the connector. Dispatchers already created keep the former one.
func (c *Connector) SetPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = password
}

// Client returns the SAP client of the connector.
func (c *Connector) Client() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.client }

// SetClient sets the SAP client of the connector. An empty client omits the sap-client parameter.
func (c *Connector) SetClient(client string) { c.mu.Lock(); defer c.mu.Unlock(); c.client = client }

// Language returns the logon language of the connector.
func (c *Connector) Language() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.language }

// the logon language is the upper case ISO 639-1 code of the language tag base.
func normalizeLanguage(s string) (string, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", s, err)
	}
	base, _ := tag.Base()
	return strings.ToUpper(base.String()), nil
}

func (c *Connector) setLanguage(s string) error {
	if s == "" {
		c.language = ""
		return nil
	}
	lang, err := normalizeLanguage(s)
	if err != nil {
		return err
	}
	c.language = lang
	return nil
}

/*
SetLanguage sets the logon language of the connector.

Any BCP 47 language tag is accepted, e.g. "en", "EN" or "de-CH", and reduced to its
base language. An empty language omits the sap-language parameter.
*/
func (c *Connector) SetLanguage(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLanguage(s)
}

// Timeout returns the timeout of the connector.
func (c *Connector) Timeout() time.Duration { c.mu.RLock(); defer c.mu.RUnlock(); return c.timeout }

func (c *Connector) setTimeout(timeout time.Duration) {
	if timeout < minTimeout {
		timeout = minTimeout
	}
	c.timeout = timeout
}

// SetTimeout sets the timeout of the default transport. Zero means no timeout.
func (c *Connector) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTimeout(timeout)
}

// TLSConfig returns the TLS configuration of the connector.
func (c *Connector) TLSConfig() *tls.Config { c.mu.RLock(); defer c.mu.RUnlock(); return c.tlsConfig }

func (c *Connector) setTLS(serverName string, insecureSkipVerify bool, rootCAFiles []string) error {
	c.tlsConfig = &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: insecureSkipVerify,
	}
	var certPool *x509.CertPool
	for _, fn := range rootCAFiles {
		rootPEM, err := os.ReadFile(fn)
		if err != nil {
			return err
		}
		if certPool == nil {
			certPool = x509.NewCertPool()
		}
		if ok := certPool.AppendCertsFromPEM(rootPEM); !ok {
			return fmt.Errorf("failed to parse root certificate - filename: %s", fn)
		}
	}
	if certPool != nil {
		c.tlsConfig.RootCAs = certPool
	}
	return nil
}

// SetTLS sets the TLS configuration of the connector with given parameters. An existing connector TLS configuration is replaced.
func (c *Connector) SetTLS(serverName string, insecureSkipVerify bool, rootCAFiles ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setTLS(serverName, insecureSkipVerify, rootCAFiles)
}

// SetTLSConfig sets the TLS configuration of the connector.
func (c *Connector) SetTLSConfig(tlsConfig *tls.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tlsConfig = tlsConfig.Clone()
}

// Dialer returns the dialer of the connector, nil means transport.DefaultDialer.
func (c *Connector) Dialer() transport.Dialer { c.mu.RLock(); defer c.mu.RUnlock(); return c.dialer }

// SetDialer sets the dialer used by the default transport.
func (c *Connector) SetDialer(dialer transport.Dialer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialer = dialer
}

// SetProxy routes the default transport through the SOCKS5 connectivity proxy given by config.
func (c *Connector) SetProxy(config *proxy.Config) { c.SetDialer(proxy.NewDialer(config)) }

// Transport returns the custom transport of the connector.
func (c *Connector) Transport() transport.Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

// SetTransport sets a custom transport. If set, timeout, TLS and dialer settings are not used.
func (c *Connector) SetTransport(t transport.Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
}

// Logger returns the Logger instance of the connector.
func (c *Connector) Logger() *slog.Logger { c.mu.RLock(); defer c.mu.RUnlock(); return c.logger }

// SetLogger sets the Logger instance of the connector.
func (c *Connector) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
}

// TracerProvider returns the tracer provider of the connector, nil means the global provider.
func (c *Connector) TracerProvider() trace.TracerProvider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracerProvider
}

// SetTracerProvider sets the tracer provider of the connector.
func (c *Connector) SetTracerProvider(tp trace.TracerProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracerProvider = tp
}

// Stats returns the accumulated statistics of all dispatchers created by the connector.
func (c *Connector) Stats() Stats { return c.metrics.stats() }

// NewDispatcher returns a new dispatcher without security session.
func (c *Connector) NewDispatcher() (*Dispatcher, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	server, err := url.Parse(c.server)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", c.server, err)
	}
	if server.Scheme == "" || server.Host == "" {
		return nil, fmt.Errorf("invalid server url %q - expected scheme and host", c.server)
	}

	t := c.transport
	if t == nil {
		t = transport.NewHTTP(transport.HTTPOptions{Timeout: c.timeout, TLSConfig: c.tlsConfig, Dialer: c.dialer})
	}
	tp := c.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return newDispatcher(&dispatcherConfig{
		server:   &url.URL{Scheme: server.Scheme, Host: server.Host, Path: strings.TrimRight(server.Path, "/")},
		username: c.username,
		password: c.password,
		client:   c.client,
		language: c.language,
	}, t, c.logger, tp, newMetrics(c.metrics)), nil
}
