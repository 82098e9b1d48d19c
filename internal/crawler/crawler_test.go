/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/events"
	"github.com/friendsincode/skald_relay/internal/models"
)

type fakeSource struct {
	regions  []catalog.Region
	byRegion map[string][]catalog.RawStation
	errs     map[string]error
}

func (f *fakeSource) Regions(ctx context.Context) ([]catalog.Region, error) {
	return f.regions, nil
}

func (f *fakeSource) RegionStations(ctx context.Context, code string) ([]catalog.RawStation, error) {
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.byRegion[code], nil
}

type fakeSink struct {
	got []models.Station
	err error
}

func (f *fakeSink) ReplaceAll(ctx context.Context, stations []models.Station) error {
	f.got = stations
	return f.err
}

func newTestCrawler(source Source, sink Sink) *Crawler {
	c := New(source, sink, events.NewBus(), zerolog.Nop())
	c.pause = 0
	return c
}

func TestCrawlAllCollectsAndPersists(t *testing.T) {
	source := &fakeSource{
		regions: []catalog.Region{
			{Code: "110000", Name: "北京"},
			{Code: "310000", Name: "上海"},
		},
		byRegion: map[string][]catalog.RawStation{
			"0":      {{ContentID: "n1", Title: "National One"}},
			"110000": {{ContentID: "b1", Title: "Beijing One"}},
			"310000": {{ContentID: "s1", Title: "Shanghai One"}},
		},
	}
	sink := &fakeSink{}

	stations, err := newTestCrawler(source, sink).CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}
	if stations[0].Region != "央广" {
		t.Fatalf("expected national stations first, got region %q", stations[0].Region)
	}
	if len(sink.got) != 3 {
		t.Fatalf("expected persisted set of 3, got %d", len(sink.got))
	}
}

func TestCrawlAllDedupesAcrossRegions(t *testing.T) {
	source := &fakeSource{
		regions: []catalog.Region{{Code: "110000", Name: "北京"}},
		byRegion: map[string][]catalog.RawStation{
			"0":      {{ContentID: "x", Title: "Syndicated"}},
			"110000": {{ContentID: "x", Title: "Syndicated"}, {ContentID: "b1", Title: "Beijing One"}},
		},
	}
	sink := &fakeSink{}

	stations, err := newTestCrawler(source, sink).CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected dedupe to 2 stations, got %d", len(stations))
	}
	// The national occurrence wins the region label.
	if stations[0].ID != "x" || stations[0].Region != "央广" {
		t.Fatalf("unexpected first station %+v", stations[0])
	}
}

func TestCrawlAllSkipsFailingRegion(t *testing.T) {
	source := &fakeSource{
		regions: []catalog.Region{
			{Code: "110000", Name: "北京"},
			{Code: "310000", Name: "上海"},
		},
		byRegion: map[string][]catalog.RawStation{
			"0":      {{ContentID: "n1", Title: "National One"}},
			"310000": {{ContentID: "s1", Title: "Shanghai One"}},
		},
		errs: map[string]error{"110000": errors.New("upstream timeout")},
	}
	sink := &fakeSink{}

	stations, err := newTestCrawler(source, sink).CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl should survive a failing region: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
}

func TestCrawlAllAbortsOnNationalFailure(t *testing.T) {
	source := &fakeSource{
		errs: map[string]error{"0": errors.New("upstream down")},
	}
	sink := &fakeSink{}

	if _, err := newTestCrawler(source, sink).CrawlAll(context.Background()); err == nil {
		t.Fatal("expected crawl to abort when the national fetch fails")
	}
	if sink.got != nil {
		t.Fatal("nothing may be persisted on an aborted crawl")
	}
}
