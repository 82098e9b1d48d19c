/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package crawler walks the remote radio catalog region by region and
// persists the resulting station set.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/events"
	"github.com/friendsincode/skald_relay/internal/models"
)

// nationalRegion labels stations from the catalog's national partition.
const nationalRegion = "央广"

// Source is the slice of the catalog client the crawler needs.
type Source interface {
	Regions(ctx context.Context) ([]catalog.Region, error)
	RegionStations(ctx context.Context, regionCode string) ([]catalog.RawStation, error)
}

// Sink persists a crawled station set.
type Sink interface {
	ReplaceAll(ctx context.Context, stations []models.Station) error
}

// Crawler fetches all stations from the radio catalog.
type Crawler struct {
	source Source
	sink   Sink
	bus    *events.Bus
	logger zerolog.Logger

	// pause between region fetches, to stay polite with the catalog
	pause time.Duration
}

// New creates a crawler.
func New(source Source, sink Sink, bus *events.Bus, logger zerolog.Logger) *Crawler {
	return &Crawler{
		source: source,
		sink:   sink,
		bus:    bus,
		logger: logger.With().Str("component", "crawler").Logger(),
		pause:  200 * time.Millisecond,
	}
}

// CrawlAll fetches the national partition, then every region, dedupes by
// station id, persists the result, and returns it. A single region failing
// is logged and skipped; only a failing national fetch aborts the crawl.
func (c *Crawler) CrawlAll(ctx context.Context) ([]models.Station, error) {
	var all []models.Station
	seen := make(map[string]struct{})

	collect := func(raws []catalog.RawStation, region string) int {
		added := 0
		for _, raw := range raws {
			if _, dup := seen[raw.ContentID]; dup {
				continue
			}
			seen[raw.ContentID] = struct{}{}
			all = append(all, raw.Station(region))
			added++
		}
		return added
	}

	c.logger.Info().Msg("fetching national stations")
	national, err := c.source.RegionStations(ctx, "0")
	if err != nil {
		return nil, fmt.Errorf("fetch national stations: %w", err)
	}
	collect(national, nationalRegion)

	regions, err := c.source.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch region list: %w", err)
	}
	c.logger.Info().Int("regions", len(regions)).Msg("region list fetched")

	for i, region := range regions {
		c.bus.Publish(events.EventCrawlProgress, events.Payload{
			"current":        i + 1,
			"total":          len(regions),
			"region":         region.Name,
			"stations_found": len(all),
		})

		raws, err := c.source.RegionStations(ctx, string(region.Code))
		if err != nil {
			c.logger.Error().Err(err).Str("region", region.Name).Msg("region fetch failed, skipping")
			continue
		}
		added := collect(raws, region.Name)
		c.logger.Info().Str("region", region.Name).Int("added", added).Msg("region crawled")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pause):
		}
	}

	if err := c.sink.ReplaceAll(ctx, all); err != nil {
		return nil, err
	}

	c.bus.Publish(events.EventCrawlComplete, events.Payload{"stations": len(all)})
	c.logger.Info().Int("stations", len(all)).Msg("crawl complete")
	return all, nil
}
