// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"fmt"
	"strings"
)

// StatsNumRoundTrip is the number of round trip categories.
const StatsNumRoundTrip = numRoundTrip

// StatsRoundTripTexts are the texts used for the round trip categories.
var StatsRoundTripTexts = [StatsNumRoundTrip]string{"stateless", "stateful", "csrf", "logoff"}

// StatsDurationBuckets are the used duration buckets in milliseconds.
var StatsDurationBuckets = []uint64{10, 50, 100, 250, 500, 1000, 5000, 30000}

// DurationStat represents a duration statistic.
type DurationStat struct {
	Count uint64
	Sum   uint64 // Values in milliseconds.
	// The bucket key is the upper limit in milliseconds, the value the cumulative
	// number of measurements not exceeding it.
	Buckets map[uint64]uint64
}

func (s *DurationStat) String() string {
	return fmt.Sprintf("count %d sum %d values %v", s.Count, s.Sum, s.Buckets)
}

// Stats contains dispatcher statistics.
type Stats struct {
	// Gauges
	Sessions int // The number of established security sessions.
	Contexts int // The number of bound stateful contexts.
	// Counter
	BytesRead       uint64 // Total response body bytes.
	BytesWritten    uint64 // Total request body bytes.
	Bootstraps      uint64 // Number of requests sent with basic authentication.
	Unauthorized    uint64 // Number of responses with status 401.
	CSRFInvalidated uint64 // Number of CSRF tokens rejected by the server.
	DroppedCookies  uint64 // Number of malformed Set-Cookie values.
	//
	RoundTrips []*DurationStat // Round trip duration statistics per category.
}

func (s Stats) String() string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "\nsessions         %d", s.Sessions)
	fmt.Fprintf(&sb, "\ncontexts         %d", s.Contexts)
	fmt.Fprintf(&sb, "\nbytesRead        %d", s.BytesRead)
	fmt.Fprintf(&sb, "\nbytesWritten     %d", s.BytesWritten)
	fmt.Fprintf(&sb, "\nbootstraps       %d", s.Bootstraps)
	fmt.Fprintf(&sb, "\nunauthorized     %d", s.Unauthorized)
	fmt.Fprintf(&sb, "\ncsrfInvalidated  %d", s.CSRFInvalidated)
	fmt.Fprintf(&sb, "\ndroppedCookies   %d", s.DroppedCookies)
	sb.WriteString("\nroundTrips")
	for i, durationStat := range s.RoundTrips {
		fmt.Fprintf(&sb, "\n  %-10s %s", StatsRoundTripTexts[i], durationStat.String())
	}
	return sb.String()
}
