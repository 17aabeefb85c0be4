// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package collectors implements go-adt prometheus collectors.
package collectors

import (
	"fmt"
	"strings"

	"github.com/SAP/go-adt/adt"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "go_adt"

type stats interface {
	Stats() adt.Stats
}

type collector struct {
	s stats

	sessions        *prometheus.Desc
	contexts        *prometheus.Desc
	readBytes       *prometheus.Desc
	writtenBytes    *prometheus.Desc
	bootstraps      *prometheus.Desc
	unauthorized    *prometheus.Desc
	csrfInvalidated *prometheus.Desc
	droppedCookies  *prometheus.Desc
	roundTrips      *prometheus.Desc
}

func newCollector(s stats, subsystem string, labels prometheus.Labels) prometheus.Collector {
	// fqName: namespace, subsystem, name
	fqName := func(name string) string { return strings.Join([]string{namespace, subsystem, name}, "_") }
	return &collector{
		s: s,
		sessions: prometheus.NewDesc(
			fqName("security_sessions"),
			fmt.Sprintf("The number of established %s security sessions.", subsystem),
			nil,
			labels,
		),
		contexts: prometheus.NewDesc(
			fqName("contexts"),
			fmt.Sprintf("The number of bound %s stateful contexts.", subsystem),
			nil,
			labels,
		),
		readBytes: prometheus.NewDesc(
			fqName("bytes_read"),
			fmt.Sprintf("The total response body bytes read by %s.", subsystem),
			nil,
			labels,
		),
		writtenBytes: prometheus.NewDesc(
			fqName("bytes_written"),
			fmt.Sprintf("The total request body bytes written by %s.", subsystem),
			nil,
			labels,
		),
		bootstraps: prometheus.NewDesc(
			fqName("bootstraps"),
			fmt.Sprintf("The number of %s requests sent with basic authentication.", subsystem),
			nil,
			labels,
		),
		unauthorized: prometheus.NewDesc(
			fqName("unauthorized"),
			fmt.Sprintf("The number of %s responses with status 401.", subsystem),
			nil,
			labels,
		),
		csrfInvalidated: prometheus.NewDesc(
			fqName("csrf_invalidated"),
			fmt.Sprintf("The number of %s CSRF tokens rejected by the server.", subsystem),
			nil,
			labels,
		),
		droppedCookies: prometheus.NewDesc(
			fqName("dropped_cookies"),
			fmt.Sprintf("The number of malformed Set-Cookie values dropped by %s.", subsystem),
			nil,
			labels,
		),
		roundTrips: prometheus.NewDesc(
			fqName("round_trip_time"),
			fmt.Sprintf("The round trip time measured in milliseconds for the different request categories of %s.", subsystem),
			[]string{"category"},
			labels,
		),
	}
}

// Describe implements Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.contexts
	ch <- c.readBytes
	ch <- c.writtenBytes
	ch <- c.bootstraps
	ch <- c.unauthorized
	ch <- c.csrfInvalidated
	ch <- c.droppedCookies
	ch <- c.roundTrips
}

func buckets(s *adt.DurationStat) map[float64]uint64 {
	buckets := map[float64]uint64{}
	for k, v := range s.Buckets {
		buckets[float64(k)] = v
	}
	return buckets
}

// Collect implements Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.s.Stats()
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(stats.Sessions))
	ch <- prometheus.MustNewConstMetric(c.contexts, prometheus.GaugeValue, float64(stats.Contexts))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(stats.BytesRead))
	ch <- prometheus.MustNewConstMetric(c.writtenBytes, prometheus.CounterValue, float64(stats.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.bootstraps, prometheus.CounterValue, float64(stats.Bootstraps))
	ch <- prometheus.MustNewConstMetric(c.unauthorized, prometheus.CounterValue, float64(stats.Unauthorized))
	ch <- prometheus.MustNewConstMetric(c.csrfInvalidated, prometheus.CounterValue, float64(stats.CSRFInvalidated))
	ch <- prometheus.MustNewConstMetric(c.droppedCookies, prometheus.CounterValue, float64(stats.DroppedCookies))
	for i, h := range stats.RoundTrips {
		ch <- prometheus.MustNewConstHistogram(c.roundTrips, h.Count, float64(h.Sum), buckets(h), adt.StatsRoundTripTexts[i])
	}
}

// NewConnectorCollector returns a collector that exports the metrics of all dispatchers of *adt.Connector.
func NewConnectorCollector(c *adt.Connector, server string) prometheus.Collector {
	return newCollector(c, "connector", prometheus.Labels{"server": server})
}

// NewDispatcherCollector returns a collector that exports *adt.Dispatcher metrics.
func NewDispatcherCollector(d *adt.Dispatcher, server string) prometheus.Collector {
	return newCollector(d, "dispatcher", prometheus.Labels{"server": server, "dispatcher": d.ID().String()})
}
