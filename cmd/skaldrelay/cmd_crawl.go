/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/crawler"
	"github.com/friendsincode/skald_relay/internal/events"
	"github.com/friendsincode/skald_relay/internal/store"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch all stations from the upstream catalog",
	Long:  "Crawl every region of the upstream radio catalog and replace the local station database with the result",
	RunE:  runCrawl,
}

var crawlTimeout time.Duration

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().DurationVar(&crawlTimeout, "timeout", 15*time.Minute, "Overall crawl deadline")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	st, err := store.Open(cfg.StationDBPath(), logger)
	if err != nil {
		return fmt.Errorf("open station store: %w", err)
	}
	defer st.Close()

	client := catalog.NewHTTPClient(catalog.Options{
		RadioBaseURL:   cfg.RadioCatalogURL,
		RadioKey:       cfg.RadioCatalogKey,
		ContentBaseURL: cfg.ContentCatalogURL,
		Timeout:        cfg.CatalogTimeout,
	}, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), crawlTimeout)
	defer cancel()

	cr := crawler.New(client, st, events.NewBus(), logger)
	stations, err := cr.CrawlAll(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	stats, err := st.RegionStats(ctx)
	if err != nil {
		return fmt.Errorf("read region stats: %w", err)
	}

	fmt.Printf("Crawl complete: %d stations across %d regions\n", len(stations), len(stats))
	for _, stat := range stats {
		fmt.Printf("  %-12s %d\n", stat.Region, stat.Count)
	}
	return nil
}
