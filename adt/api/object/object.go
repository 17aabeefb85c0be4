// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

/*
Package object provides the endpoints to lock and unlock repository objects.

Locks are bound to the stateful context the lock request was sent in. An object stays
locked until it is unlocked within the same context or the server side context ends:

	id := d.Reserve()
	defer d.Drop(id)
	lock, err := adt.Query(ctx, d, &object.Lock{URI: uri, Context: id})
	...
	_, err = adt.Query(ctx, d, &object.Unlock{URI: uri, Handle: lock.Handle, Context: id})
*/
package object

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SAP/go-adt/adt"
)

// Object actions.
const (
	actionParam  = "_action"
	actionLock   = "LOCK"
	actionUnlock = "UNLOCK"
)

const (
	accessModeParam = "accessMode"
	lockHandleParam = "lockHandle"
)

const lockResultMediaType = "application/vnd.sap.as+xml; charset=utf-8; dataname=com.sap.adt.lock.Result2"

// AccessMode is the lock access mode.
type AccessMode string

// Access modes.
const (
	AccessModify AccessMode = "MODIFY" // The object is locked for modifications.
	AccessShow   AccessMode = "SHOW"   // The object is locked read-only.
)

// ErrEmptyURI is returned if an object uri is missing.
var ErrEmptyURI = errors.New("object uri is empty")

// A LockResult describes the outcome of a lock request.
type LockResult struct {
	// Locked is false if the object is locked by another user or context.
	Locked              bool
	Handle              string
	TransportRequest    string
	TransportUser       string
	TransportText       string
	IsLocal             bool
	IsLinkUp            bool
	ModificationSupport string
}

// abap serialization (asx) of a lock result.
type asxLockResult struct {
	XMLName xml.Name `xml:"http://www.sap.com/abapxml abap"`
	Data    struct {
		LockHandle          string `xml:"LOCK_HANDLE"`
		CorrNr              string `xml:"CORRNR"`
		CorrUser            string `xml:"CORRUSER"`
		CorrText            string `xml:"CORRTEXT"`
		IsLocal             string `xml:"IS_LOCAL"`
		IsLinkUp            string `xml:"IS_LINK_UP"`
		ModificationSupport string `xml:"MODIFICATION_SUPPORT"`
	} `xml:"values>DATA"`
}

// abap boolean
func abapBool(s string) bool { return s == "X" }

func checkURI(uri string) error {
	if uri == "" {
		return ErrEmptyURI
	}
	return nil
}

/*
Lock locks the object at URI within the context Context.

URI is the object uri relative to the ADT root (e.g. programs/programs/zprog) or
absolute (e.g. /sap/bc/adt/oo/classes/zcl_test). AccessMode defaults to AccessModify.
*/
type Lock struct {
	URI        string
	AccessMode AccessMode
	Context    adt.ContextID
}

// Request implements the adt.Endpoint interface.
func (l *Lock) Request() (*adt.Request, error) {
	if err := checkURI(l.URI); err != nil {
		return nil, err
	}
	mode := l.AccessMode
	if mode == "" {
		mode = AccessModify
	}
	return &adt.Request{
		Method: http.MethodPost,
		Path:   l.URI,
		Params: url.Values{actionParam: {actionLock}, accessModeParam: {string(mode)}},
		Header: http.Header{"Accept": {lockResultMediaType}},
		Kind:   adt.Stateful(l.Context),
	}, nil
}

// Decode implements the adt.Operation interface.
func (l *Lock) Decode(resp *adt.Response) (*LockResult, error) {
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return &LockResult{}, nil
	default:
		return nil, adt.ExpectStatus(resp, http.StatusOK, http.StatusForbidden)
	}
	asx := &asxLockResult{}
	if err := xml.Unmarshal(resp.Body, asx); err != nil {
		return nil, fmt.Errorf("invalid lock result: %w", err)
	}
	if asx.Data.LockHandle == "" {
		return nil, fmt.Errorf("invalid lock result: lock handle missing")
	}
	return &LockResult{
		Locked:              true,
		Handle:              asx.Data.LockHandle,
		TransportRequest:    asx.Data.CorrNr,
		TransportUser:       asx.Data.CorrUser,
		TransportText:       asx.Data.CorrText,
		IsLocal:             abapBool(asx.Data.IsLocal),
		IsLinkUp:            abapBool(asx.Data.IsLinkUp),
		ModificationSupport: asx.Data.ModificationSupport,
	}, nil
}

// Unlock releases the lock Handle on the object at URI. It must be sent in the context
// the lock was acquired in.
type Unlock struct {
	URI     string
	Handle  string
	Context adt.ContextID
}

// Request implements the adt.Endpoint interface.
func (u *Unlock) Request() (*adt.Request, error) {
	if err := checkURI(u.URI); err != nil {
		return nil, err
	}
	if u.Handle == "" {
		return nil, errors.New("lock handle is empty")
	}
	return &adt.Request{
		Method: http.MethodPost,
		Path:   u.URI,
		Params: url.Values{actionParam: {actionUnlock}, lockHandleParam: {u.Handle}},
		Kind:   adt.Stateful(u.Context),
	}, nil
}

// Decode implements the adt.Operation interface.
func (u *Unlock) Decode(resp *adt.Response) ([]byte, error) { return adt.Success(resp) }
