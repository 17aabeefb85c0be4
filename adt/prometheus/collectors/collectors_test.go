// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package collectors

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/adt/adttest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const server = "http://localhost:50000"

func newTestConnector() *adt.Connector {
	c := adt.NewBasicAuthConnector(server, "developer", "secret")
	c.SetTransport(adttest.NewTransport(adttest.NewServer("developer", "secret")))
	c.SetLogger(slog.New(slog.DiscardHandler))
	return c
}

func testConnectorCollector(t *testing.T) {
	c := newTestConnector()
	d, err := c.NewDispatcher()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.DispatchStateless(context.Background(), &adt.Request{Method: "GET", Path: "core/discovery"}); err != nil {
		t.Fatal(err)
	}

	collector := NewConnectorCollector(c, server)
	expected := `
# HELP go_adt_connector_security_sessions The number of established connector security sessions.
# TYPE go_adt_connector_security_sessions gauge
go_adt_connector_security_sessions{server="http://localhost:50000"} 1
# HELP go_adt_connector_bootstraps The number of connector requests sent with basic authentication.
# TYPE go_adt_connector_bootstraps counter
go_adt_connector_bootstraps{server="http://localhost:50000"} 1
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"go_adt_connector_security_sessions", "go_adt_connector_bootstraps"); err != nil {
		t.Fatal(err)
	}
}

func testDispatcherCollector(t *testing.T) {
	c := newTestConnector()
	d, err := c.NewDispatcher()
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewDispatcherCollector(d, server)); err != nil {
		t.Fatal(err)
	}
	// gauges, counters and one histogram per round trip category.
	if n := testutil.CollectAndCount(NewDispatcherCollector(d, server)); n != 8+adt.StatsNumRoundTrip {
		t.Fatalf("number of metrics %d - expected %d", n, 8+adt.StatsNumRoundTrip)
	}
	if n, err := testutil.GatherAndCount(reg, "go_adt_dispatcher_round_trip_time"); err != nil || n != adt.StatsNumRoundTrip {
		t.Fatalf("number of round trip histograms %d (%v) - expected %d", n, err, adt.StatsNumRoundTrip)
	}
}

func TestCollectors(t *testing.T) {
	tests := []struct {
		name string
		fct  func(t *testing.T)
	}{
		{"connectorCollector", testConnectorCollector},
		{"dispatcherCollector", testDispatcherCollector},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			test.fct(t)
		})
	}
}
