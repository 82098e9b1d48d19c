/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stations.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceAllSwapsStationSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []models.Station{
		{ID: "a", Name: "Alpha", Region: "北京"},
		{ID: "b", Name: "Beta", Region: "上海"},
	}
	if err := s.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}

	second := []models.Station{
		{ID: "c", Name: "Gamma", Region: "央广", MP3High: "http://up.example/c.mp3"},
	}
	if err := s.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c" || got[0].MP3High != "http://up.example/c.mp3" {
		t.Fatalf("unexpected stations %+v", got)
	}
}

func TestReplaceAllEmptySetAllowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, []models.Station{{ID: "a", Name: "Alpha"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("replace with empty set: %v", err)
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %d stations", len(got))
	}
}

func TestRegionStatsNationalFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stations := []models.Station{
		{ID: "a", Name: "Alpha", Region: "北京"},
		{ID: "b", Name: "Beta", Region: "北京"},
		{ID: "c", Name: "Gamma", Region: "央广"},
	}
	if err := s.ReplaceAll(ctx, stations); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stats, err := s.RegionStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(stats))
	}
	if stats[0].Region != "央广" || stats[0].Count != 1 {
		t.Fatalf("expected national region first, got %+v", stats[0])
	}
	if stats[1].Region != "北京" || stats[1].Count != 2 {
		t.Fatalf("unexpected region stat %+v", stats[1])
	}
}
