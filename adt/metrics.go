// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package adt

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Round trip categories.
const (
	rtStateless = iota
	rtStateful
	rtCSRF
	rtLogoff
	numRoundTrip
)

const (
	counterBytesRead = iota
	counterBytesWritten
	counterBootstraps
	counterUnauthorized
	counterCSRFInvalidated
	counterDroppedCookies
	numCounter
)

const (
	gaugeSession = iota
	gaugeContext
	numGauge
)

type counter struct {
	n atomic.Uint64
}

func (c *counter) add(n uint64)  { c.n.Add(n) }
func (c *counter) value() uint64 { return c.n.Load() }

type gauge struct {
	v atomic.Int64
}

func (g *gauge) add(n int64)  { g.v.Add(n) }
func (g *gauge) value() int64 { return g.v.Load() }

type durationHistogram struct {
	mu              sync.Mutex
	count           uint64
	sum             uint64
	durationBuckets []uint64
	buckets         []uint64
}

func newDurationHistogram(durationBuckets []uint64) *durationHistogram {
	numBuckets := len(durationBuckets)
	if numBuckets == 0 {
		panic("number of duration buckets cannot be zero")
	}
	return &durationHistogram{durationBuckets: durationBuckets, buckets: make([]uint64, numBuckets)}
}

func (h *durationHistogram) stats() *DurationStat {
	h.mu.Lock()
	defer h.mu.Unlock()
	rv := &DurationStat{
		Count:   h.count,
		Sum:     h.sum,
		Buckets: make(map[uint64]uint64, len(h.buckets)),
	}
	for i, durationBucket := range h.durationBuckets {
		rv.Buckets[durationBucket] = h.buckets[i]
	}
	return rv
}

func (h *durationHistogram) add(d time.Duration) {
	ms := uint64(max(d.Milliseconds(), 0))
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += ms
	// buckets are cumulative (upper inclusive bound)
	i := sort.Search(len(h.durationBuckets), func(i int) bool { return h.durationBuckets[i] >= ms })
	for ; i < len(h.buckets); i++ {
		h.buckets[i]++
	}
}

type metrics struct {
	parent             *metrics
	counters           []*counter
	gauges             []*gauge
	durationHistograms []*durationHistogram
}

func newMetrics(parent *metrics) *metrics {
	rv := &metrics{
		parent:             parent,
		counters:           make([]*counter, numCounter),
		gauges:             make([]*gauge, numGauge),
		durationHistograms: make([]*durationHistogram, numRoundTrip),
	}
	for i := range numCounter {
		rv.counters[i] = &counter{}
	}
	for i := range numGauge {
		rv.gauges[i] = &gauge{}
	}
	for i := range numRoundTrip {
		rv.durationHistograms[i] = newDurationHistogram(StatsDurationBuckets)
	}
	return rv
}

func (m *metrics) addCounterValue(kind int, v uint64) {
	for ; m != nil; m = m.parent {
		m.counters[kind].add(v)
	}
}

func (m *metrics) addGaugeValue(kind int, v int64) {
	if v == 0 {
		return
	}
	for ; m != nil; m = m.parent {
		m.gauges[kind].add(v)
	}
}

func (m *metrics) addDurationValue(kind int, d time.Duration) {
	for ; m != nil; m = m.parent {
		m.durationHistograms[kind].add(d)
	}
}

func (m *metrics) stats() Stats {
	roundTrips := make([]*DurationStat, numRoundTrip)
	for i := range numRoundTrip {
		roundTrips[i] = m.durationHistograms[i].stats()
	}
	return Stats{
		Sessions:        int(m.gauges[gaugeSession].value()),
		Contexts:        int(m.gauges[gaugeContext].value()),
		BytesRead:       m.counters[counterBytesRead].value(),
		BytesWritten:    m.counters[counterBytesWritten].value(),
		Bootstraps:      m.counters[counterBootstraps].value(),
		Unauthorized:    m.counters[counterUnauthorized].value(),
		CSRFInvalidated: m.counters[counterCSRFInvalidated].value(),
		DroppedCookies:  m.counters[counterDroppedCookies].value(),
		RoundTrips:      roundTrips,
	}
}
