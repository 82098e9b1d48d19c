/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package program

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/events"
)

type fakeCatalog struct {
	searchItems []catalog.Item
	searchErr   error

	collections map[string]*catalog.Collection
	related     map[string][]catalog.Item

	playable   map[string]string // item id -> audio URL
	resolveErr map[string]error
}

func (f *fakeCatalog) SearchItems(ctx context.Context, keyword string, page int) ([]catalog.Item, error) {
	return f.searchItems, f.searchErr
}

func (f *fakeCatalog) ResolveCollection(ctx context.Context, itemID string) (*catalog.Collection, error) {
	return f.collections[itemID], nil
}

func (f *fakeCatalog) RelatedItems(ctx context.Context, itemID string) ([]catalog.Item, error) {
	return f.related[itemID], nil
}

func (f *fakeCatalog) ResolvePlayableURL(ctx context.Context, itemID string) (string, error) {
	if err := f.resolveErr[itemID]; err != nil {
		return "", err
	}
	if u, ok := f.playable[itemID]; ok {
		return u, nil
	}
	return "", catalog.ErrNoAudioStream
}

func (f *fakeCatalog) RefreshStreamURL(ctx context.Context, stationID, region string) (string, error) {
	return "", nil
}

func newTestDirector(cat catalog.Client) *Director {
	d := New(cat, "music", events.NewBus(), zerolog.Nop())
	d.pickN = func(n int) int { return 0 } // deterministic: first page, first item
	return d
}

func TestNextStartsFromSearchWhenIdle(t *testing.T) {
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v1", Title: "First", Author: "A"}},
		playable:    map[string]string{"v1": "http://cdn.example/v1.m4s"},
	}
	d := newTestDirector(cat)

	sel, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if sel.Item.ID != "v1" || sel.AudioURL != "http://cdn.example/v1.m4s" {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if cur, ok := d.Current(); !ok || cur.ID != "v1" {
		t.Fatalf("expected current v1, got %+v ok=%v", cur, ok)
	}
}

func TestNextContinuesCollectionInOrder(t *testing.T) {
	coll := &catalog.Collection{
		ID: "series",
		Parts: []catalog.Item{
			{ID: "v1", Title: "Part 1"},
			{ID: "v2", Title: "Part 2"},
			{ID: "v3", Title: "Part 3"},
		},
	}
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v1", Title: "Part 1"}},
		collections: map[string]*catalog.Collection{"v1": coll, "v2": coll},
		playable: map[string]string{
			"v1": "http://cdn.example/v1.m4s",
			"v2": "http://cdn.example/v2.m4s",
		},
	}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("first next: %v", err)
	}
	sel, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("second next: %v", err)
	}
	if sel.Item.ID != "v2" {
		t.Fatalf("expected the next collection part v2, got %q", sel.Item.ID)
	}
}

func TestNextFallsBackToRelatedAfterLastPart(t *testing.T) {
	coll := &catalog.Collection{
		ID:    "series",
		Parts: []catalog.Item{{ID: "v1"}, {ID: "v2"}},
	}
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v2", Title: "Last Part"}},
		collections: map[string]*catalog.Collection{"v2": coll},
		related:     map[string][]catalog.Item{"v2": {{ID: "r1", Title: "Related"}}},
		playable: map[string]string{
			"v2": "http://cdn.example/v2.m4s",
			"r1": "http://cdn.example/r1.m4s",
		},
	}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("first next: %v", err)
	}
	sel, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("second next: %v", err)
	}
	if sel.Item.ID != "r1" {
		t.Fatalf("expected related fallback r1, got %q", sel.Item.ID)
	}
}

func TestNextExhaustionResetsToIdle(t *testing.T) {
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v1", Title: "Standalone"}},
		playable:    map[string]string{"v1": "http://cdn.example/v1.m4s"},
		// no collection, no related: the second Next has nowhere to go
	}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("first next: %v", err)
	}
	_, err := d.Next(context.Background())
	if !errors.Is(err, ErrProgramUnavailable) {
		t.Fatalf("expected ErrProgramUnavailable, got %v", err)
	}
	if _, ok := d.Current(); ok {
		t.Fatal("expected director to be idle after exhaustion")
	}

	// Idle again: the next request restarts from search.
	sel, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("restart next: %v", err)
	}
	if sel.Item.ID != "v1" {
		t.Fatalf("expected restart from search, got %q", sel.Item.ID)
	}
}

func TestNextStaysIdleOnSearchFailure(t *testing.T) {
	cat := &fakeCatalog{searchErr: errors.New("catalog down")}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err == nil {
		t.Fatal("expected error from failed search")
	}
	if _, ok := d.Current(); ok {
		t.Fatal("expected director to stay idle")
	}
}

func TestResetAbandonsContinuity(t *testing.T) {
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v1", Title: "First"}},
		playable:    map[string]string{"v1": "http://cdn.example/v1.m4s"},
	}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	d.Reset()
	if _, ok := d.Current(); ok {
		t.Fatal("expected idle after reset")
	}
}

func TestUnplayableNextPartFallsBackToRelated(t *testing.T) {
	coll := &catalog.Collection{
		ID:    "series",
		Parts: []catalog.Item{{ID: "v1"}, {ID: "v2"}},
	}
	cat := &fakeCatalog{
		searchItems: []catalog.Item{{ID: "v1", Title: "Part 1"}},
		collections: map[string]*catalog.Collection{"v1": coll},
		related:     map[string][]catalog.Item{"v1": {{ID: "r1", Title: "Related"}}},
		playable: map[string]string{
			"v1": "http://cdn.example/v1.m4s",
			"r1": "http://cdn.example/r1.m4s",
		},
		resolveErr: map[string]error{"v2": catalog.ErrNoAudioStream},
	}
	d := newTestDirector(cat)

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("first next: %v", err)
	}
	sel, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("second next: %v", err)
	}
	if sel.Item.ID != "r1" {
		t.Fatalf("expected related fallback when next part is unplayable, got %q", sel.Item.ID)
	}
}
