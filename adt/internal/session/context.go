// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"time"

	"github.com/SAP/go-adt/adt/internal/cookie"
)

// ContextID is a locally allocated handle of a stateful context. It has no meaning for the server.
type ContextID uint64

func (id ContextID) String() string { return fmt.Sprintf("ctx-%d", uint64(id)) }

// A Context binds a ContextID to the sap-contextid cookie of a server work process.
type Context struct {
	ID      ContextID
	Created time.Time
	cookie  *cookie.Cookie
}

func newContext(id ContextID, created time.Time) *Context {
	return &Context{ID: id, Created: created}
}

// Cookie returns a copy of the bound context cookie or nil if the server ended the binding.
func (c *Context) Cookie() *cookie.Cookie { return c.cookie.Clone() }

// Bound reports whether a context cookie is bound.
func (c *Context) Bound() bool { return c.cookie != nil }
