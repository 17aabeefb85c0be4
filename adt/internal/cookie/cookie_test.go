// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package cookie

import (
	"errors"
	"testing"
	"time"
)

func testParseSSO(t *testing.T) {
	c, err := Parse("MYSAPSSO2=AjQxMDMBAe2qea; path=/; domain=localhost; expires=Tue, 01-Jan-1980 00:00:01 GMT")
	if err != nil {
		t.Fatal(err)
	}
	if c.Pair() != "MYSAPSSO2=AjQxMDMBAe2qea" {
		t.Fatalf("pair %s - expected %s", c.Pair(), "MYSAPSSO2=AjQxMDMBAe2qea")
	}
	if c.Path != "/" {
		t.Fatalf("path %q - expected %q", c.Path, "/")
	}
	if c.Domain != "localhost" {
		t.Fatalf("domain %q - expected %q", c.Domain, "localhost")
	}
	expires := time.Date(1980, time.January, 1, 0, 0, 1, 0, time.UTC)
	if !c.Expires.Equal(expires) {
		t.Fatalf("expires %s - expected %s", c.Expires, expires)
	}
	if !c.Expired(time.Now()) {
		t.Fatal("cookie should be expired")
	}
}

func testParseValueWithSeparator(t *testing.T) {
	c, err := Parse("sap-usercontext=sap-client=001; path=/")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != UserContext || c.Value != "sap-client=001" {
		t.Fatalf("name %s value %s - expected %s %s", c.Name, c.Value, UserContext, "sap-client=001")
	}
}

func testParseIgnoresFlags(t *testing.T) {
	c, err := Parse("SAP_SESSIONID_A4H_001=XYZ%3d; path=/; HttpOnly; secure; SameSite=Lax;")
	if err != nil {
		t.Fatal(err)
	}
	if c.Value != "XYZ%3d" || c.Path != "/" {
		t.Fatalf("value %s path %s - expected %s %s", c.Value, c.Path, "XYZ%3d", "/")
	}
	if !c.Expires.IsZero() {
		t.Fatalf("expires %s - expected zero", c.Expires)
	}
}

func testParseRFC1123(t *testing.T) {
	c, err := Parse("a=b; Expires=Wed, 01 Jan 2048 10:00:00 GMT")
	if err != nil {
		t.Fatal(err)
	}
	if c.Expires.Year() != 2048 {
		t.Fatalf("expires %s - expected year 2048", c.Expires)
	}
}

func testParseErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"novalue",
		"=value",
		"a=b; expires=yesterday",
	} {
		_, err := Parse(s)
		var parseError *ParseError
		if !errors.As(err, &parseError) {
			t.Fatalf("input %q: error %v - expected ParseError", s, err)
		}
	}
}

func testAllowed(t *testing.T) {
	c := &Cookie{Name: "n", Value: "v", Domain: "example.com", Path: "/sap/bc/adt"}

	tests := []struct {
		destination string
		allowed     bool
	}{
		{"https://example.com/sap/bc/adt/core/discovery", true},
		{"https://example.com/sap/public/bc/icf/logoff", false},
		{"https://other.com/sap/bc/adt/core/discovery", false},
	}
	for _, test := range tests {
		if allowed := c.Allowed(test.destination); allowed != test.allowed {
			t.Fatalf("destination %s: allowed %t - expected %t", test.destination, allowed, test.allowed)
		}
	}
}

func TestCookie(t *testing.T) {
	tests := []struct {
		name string
		fct  func(t *testing.T)
	}{
		{"parseSSO", testParseSSO},
		{"parseValueWithSeparator", testParseValueWithSeparator},
		{"parseIgnoresFlags", testParseIgnoresFlags},
		{"parseRFC1123", testParseRFC1123},
		{"parseErrors", testParseErrors},
		{"allowed", testAllowed},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			test.fct(t)
		})
	}
}
