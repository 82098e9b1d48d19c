/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package program synthesizes the virtual station's schedule. The director is
// a two-state machine (Idle, Playing) over one shared pointer: every listener
// of the virtual station hears the same continuously-advancing channel, like
// a real broadcast, not a per-listener playlist.
package program

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/events"
)

// ErrProgramUnavailable indicates neither search nor any continuation
// fallback produced a playable item. The next request restarts from search.
var ErrProgramUnavailable = errors.New("virtual program unavailable")

const searchPageSpread = 10

// Selection is one resolved program entry handed to the relay.
type Selection struct {
	Item     catalog.Item
	AudioURL string
}

// Director advances the virtual station's shared program pointer.
type Director struct {
	catalog catalog.Client
	keyword string
	bus     *events.Bus
	logger  zerolog.Logger

	// pickN is rand.Intn, injectable for deterministic tests.
	pickN func(n int) int

	mu      sync.Mutex
	current *catalog.Item // nil while Idle
}

// New creates a director searching the content catalog with keyword.
func New(cat catalog.Client, keyword string, bus *events.Bus, logger zerolog.Logger) *Director {
	return &Director{
		catalog: cat,
		keyword: keyword,
		bus:     bus,
		logger:  logger.With().Str("component", "program").Logger(),
		pickN:   rand.Intn,
	}
}

// Next decides and commits the next program entry. The observe-decide-commit
// sequence runs under one lock so two concurrent virtual-station requests
// cannot both advance from the same item independently.
func (d *Director) Next(ctx context.Context) (Selection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return d.startFresh(ctx)
	}
	return d.advance(ctx)
}

// startFresh picks a random item from a randomized search page. On any
// failure the director stays Idle.
func (d *Director) startFresh(ctx context.Context) (Selection, error) {
	page := d.pickN(searchPageSpread) + 1
	items, err := d.catalog.SearchItems(ctx, d.keyword, page)
	if err != nil {
		return Selection{}, err
	}
	if len(items) == 0 {
		return Selection{}, ErrProgramUnavailable
	}

	item := items[d.pickN(len(items))]
	sel, err := d.commit(ctx, item)
	if err != nil {
		d.current = nil
		return Selection{}, err
	}

	d.logger.Info().Str("item_id", item.ID).Str("title", item.Title).Int("page", page).Msg("virtual program started")
	return sel, nil
}

// advance continues the current collection when possible, otherwise falls
// back to the first related item. Exhausting both drops back to Idle.
func (d *Director) advance(ctx context.Context) (Selection, error) {
	currentID := d.current.ID

	if next, ok := d.nextInCollection(ctx, currentID); ok {
		if sel, err := d.commit(ctx, next); err == nil {
			d.logger.Info().Str("item_id", next.ID).Str("title", next.Title).Msg("continuing collection")
			return sel, nil
		}
		// Next part unplayable; try the related fallback below.
	}

	related, err := d.catalog.RelatedItems(ctx, currentID)
	if err == nil && len(related) > 0 {
		if sel, err := d.commit(ctx, related[0]); err == nil {
			d.logger.Info().Str("item_id", related[0].ID).Str("title", related[0].Title).Msg("advancing to related item")
			return sel, nil
		}
	}

	d.current = nil
	d.logger.Warn().Str("item_id", currentID).Msg("no continuation available, program reset")
	return Selection{}, ErrProgramUnavailable
}

// nextInCollection returns the part immediately following currentID in its
// declared collection order. Never wraps around and never skips.
func (d *Director) nextInCollection(ctx context.Context, currentID string) (catalog.Item, bool) {
	coll, err := d.catalog.ResolveCollection(ctx, currentID)
	if err != nil || coll == nil {
		return catalog.Item{}, false
	}

	idx := coll.IndexOf(currentID)
	if idx < 0 || idx+1 >= len(coll.Parts) {
		return catalog.Item{}, false
	}
	return coll.Parts[idx+1], true
}

// commit resolves the item's audio URL and, on success, makes it current.
func (d *Director) commit(ctx context.Context, item catalog.Item) (Selection, error) {
	audioURL, err := d.catalog.ResolvePlayableURL(ctx, item.ID)
	if err != nil {
		return Selection{}, err
	}

	d.current = &item
	d.bus.Publish(events.EventProgramAdvance, events.Payload{
		"item_id": item.ID,
		"title":   item.Title,
		"author":  item.Author,
	})
	return Selection{Item: item, AudioURL: audioURL}, nil
}

// Current reports the item now playing, if any.
func (d *Director) Current() (catalog.Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return catalog.Item{}, false
	}
	return *d.current, true
}

// Reset abandons continuity. Called whenever a different, non-virtual station
// is requested: switching channels restarts the program from search.
func (d *Director) Reset() {
	d.mu.Lock()
	wasPlaying := d.current != nil
	d.current = nil
	d.mu.Unlock()

	if wasPlaying {
		d.bus.Publish(events.EventProgramReset, events.Payload{})
		d.logger.Debug().Msg("virtual program reset")
	}
}
