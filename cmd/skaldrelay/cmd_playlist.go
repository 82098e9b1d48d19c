/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_relay/internal/models"
	"github.com/friendsincode/skald_relay/internal/playlist"
	"github.com/friendsincode/skald_relay/internal/relay"
	"github.com/friendsincode/skald_relay/internal/store"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Generate a live_streams.sii playlist for the game",
	Long:  "Render the crawled station list as an Euro Truck Simulator 2 live_streams.sii file pointing at this relay",
	RunE:  runPlaylist,
}

var (
	playlistOut     string
	playlistInstall bool
	playlistHost    string
)

func init() {
	rootCmd.AddCommand(playlistCmd)
	playlistCmd.Flags().StringVar(&playlistOut, "out", "", "Output path (default: <data dir>/live_streams.sii)")
	playlistCmd.Flags().BoolVar(&playlistInstall, "install", false, "Write into the detected game documents directory")
	playlistCmd.Flags().StringVar(&playlistHost, "host", "127.0.0.1", "Relay host to embed in stream URLs")
}

func runPlaylist(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	st, err := store.Open(cfg.StationDBPath(), logger)
	if err != nil {
		return fmt.Errorf("open station store: %w", err)
	}
	defer st.Close()

	stations, err := st.LoadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	if len(stations) == 0 {
		return fmt.Errorf("station database is empty, run `skaldrelay crawl` first")
	}

	if cfg.VirtualEnabled {
		stations = append(stations, models.Station{
			ID:     relay.VirtualStationID,
			Name:   relay.VirtualStationName,
			Region: "虚拟",
		})
	}

	gen := playlist.NewGenerator(playlistHost, cfg.HTTPPort)
	content := gen.Generate(stations)

	if playlistInstall {
		target, err := gen.Install(content)
		if err != nil {
			return fmt.Errorf("install playlist: %w", err)
		}
		fmt.Printf("Playlist installed: %s (%d stations)\n", target, len(stations))
		return nil
	}

	out := playlistOut
	if out == "" {
		out = cfg.PlaylistPath()
	}
	if err := gen.WriteFile(content, out); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	fmt.Printf("Playlist written: %s (%d stations)\n", out, len(stations))
	return nil
}
