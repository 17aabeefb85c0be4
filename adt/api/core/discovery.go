// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

// Package core provides the ADT core endpoints.
package core

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/SAP/go-adt/adt"
)

// XML namespaces of the discovery document.
const (
	NamespaceApp  = "http://www.w3.org/2007/app"
	NamespaceAtom = "http://www.w3.org/2005/Atom"
)

const discoveryPath = "core/discovery"

// A Category classifies a collection.
type Category struct {
	Term   string `xml:"term,attr"`
	Scheme string `xml:"scheme,attr"`
}

// A Collection is a resource collection offered by the server.
type Collection struct {
	Href       string     `xml:"href,attr"`
	Title      string     `xml:"http://www.w3.org/2005/Atom title"`
	Accept     []string   `xml:"http://www.w3.org/2007/app accept"`
	Categories []Category `xml:"http://www.w3.org/2005/Atom category"`
}

// A Workspace groups collections.
type Workspace struct {
	Title       string       `xml:"http://www.w3.org/2005/Atom title"`
	Collections []Collection `xml:"http://www.w3.org/2007/app collection"`
}

// Service is the discovery document.
type Service struct {
	XMLName    xml.Name    `xml:"http://www.w3.org/2007/app service"`
	Workspaces []Workspace `xml:"http://www.w3.org/2007/app workspace"`
}

// Collection returns the collection with the given href.
func (s *Service) Collection(href string) (*Collection, bool) {
	for i := range s.Workspaces {
		for j := range s.Workspaces[i].Collections {
			if c := &s.Workspaces[i].Collections[j]; c.Href == href {
				return c, true
			}
		}
	}
	return nil, false
}

// Hrefs returns the hrefs of all collections in document order.
func (s *Service) Hrefs() []string {
	var hrefs []string
	for _, w := range s.Workspaces {
		for _, c := range w.Collections {
			hrefs = append(hrefs, c.Href)
		}
	}
	return hrefs
}

// DiscoveryResult is the result of a Discovery operation.
type DiscoveryResult struct {
	Modified bool     // false if the document did not change since ETag.
	ETag     string   // The entity tag of the document.
	Service  *Service // nil if not modified.
}

/*
Discovery requests the discovery document of the server.

If ETag is set the server answers with 304 Not Modified as long as the document did not
change, and the result carries no Service.
*/
type Discovery struct {
	ETag string
}

// Request implements the adt.Endpoint interface.
func (d *Discovery) Request() (*adt.Request, error) {
	r := &adt.Request{
		Method: http.MethodGet,
		Path:   discoveryPath,
		Header: http.Header{"Accept": {"application/atomsvc+xml"}},
	}
	if d.ETag != "" {
		r.Header.Set("If-None-Match", d.ETag)
	}
	return r, nil
}

// Decode implements the adt.Operation interface.
func (d *Discovery) Decode(resp *adt.Response) (*DiscoveryResult, error) {
	cached, err := adt.CacheControlled(resp)
	if err != nil {
		return nil, err
	}
	result := &DiscoveryResult{Modified: cached.Modified, ETag: cached.ETag}
	if !cached.Modified {
		if result.ETag == "" {
			result.ETag = d.ETag
		}
		return result, nil
	}
	result.Service = &Service{}
	if err := xml.Unmarshal(cached.Body, result.Service); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}
	return result, nil
}
