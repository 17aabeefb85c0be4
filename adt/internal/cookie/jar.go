// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package cookie

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// A Jar holds at most one cookie per name in insertion order.
// A Jar is not safe for concurrent use, the owning session serializes the access.
type Jar struct {
	cookies []*Cookie
	now     func() time.Time
}

// NewJar returns an empty jar.
func NewJar() *Jar { return &Jar{now: time.Now} }

// Len returns the number of cookies in the jar.
func (j *Jar) Len() int { return len(j.cookies) }

// Clear removes all cookies.
func (j *Jar) Clear() { j.cookies = nil }

func (j *Jar) index(name string) int {
	return slices.IndexFunc(j.cookies, func(c *Cookie) bool { return c.Name == name })
}

// Set stores c replacing a cookie with the same name. An expired c removes
// the cookie with the same name instead of being stored.
func (j *Jar) Set(c *Cookie) {
	i := j.index(c.Name)
	if c.Expired(j.now()) {
		if i >= 0 {
			j.cookies = slices.Delete(j.cookies, i, i+1)
		}
		return
	}
	if i >= 0 {
		j.cookies[i] = c
		return
	}
	j.cookies = append(j.cookies, c)
}

// Apply parses a single Set-Cookie value and stores the result.
func (j *Jar) Apply(s string) error {
	c, err := Parse(s)
	if err != nil {
		return err
	}
	j.Set(c)
	return nil
}

// ApplyAll applies the Set-Cookie values in order. A value failing to parse
// is skipped, the remaining values are still applied. The parse errors are
// returned joined.
func (j *Jar) ApplyAll(values []string) error {
	var errs []error
	for _, s := range values {
		if err := j.Apply(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Find returns the cookie with the given name or nil.
func (j *Jar) Find(name string) *Cookie {
	if i := j.index(name); i >= 0 {
		return j.cookies[i]
	}
	return nil
}

// FindPrefix returns the first cookie whose name starts with prefix or nil.
func (j *Jar) FindPrefix(prefix string) *Cookie {
	for _, c := range j.cookies {
		if strings.HasPrefix(c.Name, prefix) {
			return c
		}
	}
	return nil
}

// Take removes the cookie with the given name from the jar and returns it.
func (j *Jar) Take(name string) *Cookie {
	i := j.index(name)
	if i < 0 {
		return nil
	}
	c := j.cookies[i]
	j.cookies = slices.Delete(j.cookies, i, i+1)
	return c
}

// Header returns the Cookie request header value for destination.
func (j *Jar) Header(destination string) string {
	pairs := make([]string, 0, len(j.cookies))
	for _, c := range j.cookies {
		if c.Allowed(destination) {
			pairs = append(pairs, c.Pair())
		}
	}
	return strings.Join(pairs, pairSep)
}

// Names returns the cookie names in insertion order.
func (j *Jar) Names() []string {
	names := make([]string, len(j.cookies))
	for i, c := range j.cookies {
		names[i] = c.Name
	}
	return names
}
