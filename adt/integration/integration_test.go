// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package integration

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/adt/api/core"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-units"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage    = "sapse/abap-cloud-developer-trial:2023"
	defaultMemory   = "16g"
	defaultUser     = "DEVELOPER"
	defaultPassword = "ABAPtr2023#00"
	hostname        = "vhcala4hci"
	httpPort        = "50000/tcp"
	discoveryPath   = "/sap/bc/adt/core/discovery"
	startupTimeout  = 90 * time.Minute
)

var server, user, password string

func getEnv(key, defValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defValue
}

func startContainer(ctx context.Context) (testcontainers.Container, string, error) {
	memory, err := units.RAMInBytes(getEnv("ADT_TEST_MEMORY", defaultMemory))
	if err != nil {
		return nil, "", err
	}
	req := testcontainers.ContainerRequest{
		Image:        getEnv("ADT_TEST_IMAGE", defaultImage),
		ExposedPorts: []string{httpPort},
		Cmd:          []string{"-skip-limits-check", "-agree-to-sap-license"},
		ConfigModifier: func(config *container.Config) {
			config.Hostname = hostname
		},
		HostConfigModifier: func(hostConfig *container.HostConfig) {
			hostConfig.Memory = memory
		},
		// the ICF answers 401 as soon as the ADT services are up.
		WaitingFor: wait.ForHTTP(discoveryPath).
			WithPort(httpPort).
			WithStatusCodeMatcher(func(status int) bool { return status == http.StatusUnauthorized || status == http.StatusOK }).
			WithPollInterval(30 * time.Second).
			WithStartupTimeout(startupTimeout),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return c, "", err
	}
	endpoint, err := c.PortEndpoint(ctx, httpPort, "http")
	return c, endpoint, err
}

func TestMain(m *testing.M) {
	user = getEnv("ADT_TEST_USER", defaultUser)
	password = getEnv("ADT_TEST_PASSWORD", defaultPassword)

	var c testcontainers.Container
	if server = os.Getenv("ADT_TEST_SERVER"); server == "" {
		var err error
		c, server, err = startContainer(context.Background())
		if err != nil {
			if c != nil {
				c.Terminate(context.Background())
			}
			log.Fatal(err)
		}
	}
	code := m.Run()
	if c != nil {
		if err := c.Terminate(context.Background()); err != nil {
			log.Print(err)
		}
	}
	os.Exit(code)
}

func newDispatcher(t *testing.T) *adt.Dispatcher {
	c := adt.NewBasicAuthConnector(server, user, password)
	c.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	d, err := c.NewDispatcher()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.CloseIdleConnections)
	return d
}

func testSessionID(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	if _, err := adt.Query(ctx, d, &core.Discovery{}); err != nil {
		t.Fatal(err)
	}
	id, ok := d.SessionID()
	if !ok || id == "" {
		t.Fatal("session id missing")
	}
	if err := d.Logoff(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.SessionID(); ok {
		t.Fatal("session id after logoff")
	}
}

func testConcurrentLogon(t *testing.T) {
	const numCall = 10

	d := newDispatcher(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, numCall)
	wg.Add(numCall)
	for i := range numCall {
		go func() {
			defer wg.Done()
			_, errs[i] = adt.Query(ctx, d, &core.Discovery{})
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		t.Fatal(err)
	}
	if n := d.Stats().Bootstraps; n != 1 {
		t.Fatalf("number of bootstraps %d - expected 1", n)
	}
	if err := d.Logoff(ctx); err != nil {
		t.Fatal(err)
	}
}

func testDiscoveryNotModified(t *testing.T) {
	d := newDispatcher(t)
	ctx := context.Background()

	result, err := adt.Query(ctx, d, &core.Discovery{})
	if err != nil {
		t.Fatal(err)
	}
	if result.ETag == "" {
		t.Skip("server does not send an etag")
	}
	result, err = adt.Query(ctx, d, &core.Discovery{ETag: result.ETag})
	if err != nil {
		t.Fatal(err)
	}
	if result.Modified {
		t.Fatal("expected not modified")
	}
}

func testWrongPassword(t *testing.T) {
	c := adt.NewBasicAuthConnector(server, user, password+"x")
	d, err := c.NewDispatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer d.CloseIdleConnections()
	if _, err := adt.Query(context.Background(), d, &core.Discovery{}); !errors.Is(err, adt.ErrUnauthorized) {
		t.Fatalf("error %v - expected %v", err, adt.ErrUnauthorized)
	}
}

func TestIntegration(t *testing.T) {
	tests := []struct {
		name string
		fct  func(t *testing.T)
	}{
		{"sessionID", testSessionID},
		{"concurrentLogon", testConcurrentLogon},
		{"discoveryNotModified", testDiscoveryNotModified},
		// a failed logon may lock the user: run last.
		{"wrongPassword", testWrongPassword},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.fct(t)
		})
	}
}
