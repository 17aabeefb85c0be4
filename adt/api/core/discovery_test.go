// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"testing"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/adt/adttest"
	"github.com/SAP/go-adt/adt/transport"
)

func newTestDispatcher(t *testing.T, h transport.Transport) (*adt.Dispatcher, *adttest.Transport) {
	tr := adttest.NewTransport(h)
	c := adt.NewBasicAuthConnector("http://localhost:50000", "developer", "secret")
	c.SetTransport(tr)
	c.SetLogger(slog.New(slog.DiscardHandler))
	d, err := c.NewDispatcher()
	if err != nil {
		t.Fatal(err)
	}
	return d, tr
}

func testDiscovery(t *testing.T) {
	d, tr := newTestDispatcher(t, adttest.NewServer("developer", "secret"))
	ctx := context.Background()

	result, err := adt.Query(ctx, d, &Discovery{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Modified || result.ETag != adttest.DiscoveryETag {
		t.Fatalf("modified %t etag %s - expected true %s", result.Modified, result.ETag, adttest.DiscoveryETag)
	}
	hrefs := result.Service.Hrefs()
	expected := []string{"/sap/bc/adt/programs/programs", "/sap/bc/adt/oo/classes", "/sap/bc/adt/core/discovery"}
	if !slices.Equal(hrefs, expected) {
		t.Fatalf("hrefs %v - expected %v", hrefs, expected)
	}
	c, ok := result.Service.Collection("/sap/bc/adt/programs/programs")
	if !ok {
		t.Fatal("programs collection missing")
	}
	if c.Title != "Programs" || len(c.Accept) != 1 || len(c.Categories) != 1 || c.Categories[0].Term != "programs" {
		t.Fatalf("unexpected collection %v", c)
	}
	if result.Service.Workspaces[0].Title != "Object Repository" {
		t.Fatalf("workspace title %s", result.Service.Workspaces[0].Title)
	}

	result, err = adt.Query(ctx, d, &Discovery{ETag: result.ETag})
	if err != nil {
		t.Fatal(err)
	}
	if result.Modified || result.Service != nil {
		t.Fatal("expected not modified result")
	}
	reqs := tr.Requests()
	if v := reqs[len(reqs)-1].Header.Get("If-None-Match"); v != adttest.DiscoveryETag {
		t.Fatalf("If-None-Match %s - expected %s", v, adttest.DiscoveryETag)
	}
	if st := reqs[len(reqs)-1].Header.Get(adt.HeaderSessionType); st != "stateless" {
		t.Fatalf("session type %s - expected stateless", st)
	}
}

func testInvalidDocument(t *testing.T) {
	d, _ := newTestDispatcher(t, adttest.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Set-Cookie": {"SAP_SESSIONID_A4H_001=S1; path=/"}},
			Body:       []byte("<html>logon</html>"),
		}, nil
	}))
	if _, err := adt.Query(context.Background(), d, &Discovery{}); err == nil {
		t.Fatal("expected error")
	}
}

func testStatus(t *testing.T) {
	d, _ := newTestDispatcher(t, adttest.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	}))
	_, err := adt.Query(context.Background(), d, &Discovery{})
	var statusError *adt.StatusError
	if !errors.As(err, &statusError) || statusError.StatusCode != http.StatusNotFound {
		t.Fatalf("error %v - expected status error 404", err)
	}
}

func TestDiscovery(t *testing.T) {
	tests := []struct {
		name string
		fct  func(t *testing.T)
	}{
		{"discovery", testDiscovery},
		{"invalidDocument", testInvalidDocument},
		{"status", testStatus},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			test.fct(t)
		})
	}
}
