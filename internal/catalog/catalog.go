/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog talks to the two remote catalogs the relay depends on: the
// region-scoped radio catalog that (re)issues station stream URLs, and the
// content catalog that backs the virtual station's program.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrItemNotFound indicates the catalog has no entry for the item.
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrNoAudioStream indicates an item resolved but exposes no audio encoding.
	ErrNoAudioStream = errors.New("no audio stream available")
)

// Item is a playable entry in the content catalog.
type Item struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image"`
}

// Collection is an ordered set of items belonging to one series.
type Collection struct {
	ID    string
	Title string
	Parts []Item // declared order, preserved
}

// IndexOf returns the position of itemID within the collection's parts, or -1.
func (c *Collection) IndexOf(itemID string) int {
	for i, p := range c.Parts {
		if p.ID == itemID {
			return i
		}
	}
	return -1
}

// Client abstracts the remote catalog calls consumed by the stream resolver
// and the virtual program director. Implemented by *HTTPClient in production
// and by fakes in tests.
type Client interface {
	// SearchItems returns one page of content items matching keyword.
	SearchItems(ctx context.Context, keyword string, page int) ([]Item, error)

	// ResolveCollection returns the ordered collection containing itemID, or
	// (nil, nil) when the item belongs to no collection.
	ResolveCollection(ctx context.Context, itemID string) (*Collection, error)

	// RelatedItems returns the catalog's recommendations for itemID.
	RelatedItems(ctx context.Context, itemID string) ([]Item, error)

	// ResolvePlayableURL turns an item into a concrete audio URL, picking the
	// highest quality encoding available.
	ResolvePlayableURL(ctx context.Context, itemID string) (string, error)

	// RefreshStreamURL re-queries the radio catalog for a station's current
	// stream URL. Returns "" (and no error) when the station is not listed.
	RefreshStreamURL(ctx context.Context, stationID, region string) (string, error)
}
