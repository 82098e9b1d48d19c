/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver turns a station into a concretely playable upstream URL.
package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/models"
)

// ErrNoPlayableSource indicates neither the catalog nor the station's cached
// candidates yielded a usable URL. Terminal for the request; not retried here.
var ErrNoPlayableSource = errors.New("no playable source")

// Refresher is the slice of the catalog client the resolver needs.
type Refresher interface {
	RefreshStreamURL(ctx context.Context, stationID, region string) (string, error)
}

// Resolver produces the best currently-playable URL for a station.
type Resolver struct {
	catalog Refresher
	logger  zerolog.Logger
}

// New creates a resolver backed by the given catalog client.
func New(catalog Refresher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		logger:  logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve refreshes the station's stream URL from the catalog; a fresh URL
// wins unconditionally since cached ones expire. On catalog miss or error the
// station's own candidates are tried in rank order.
func (r *Resolver) Resolve(ctx context.Context, station models.Station) (string, error) {
	fresh, err := r.catalog.RefreshStreamURL(ctx, station.ID, station.Region)
	switch {
	case err != nil:
		r.logger.Warn().Err(err).Str("station_id", station.ID).Msg("stream refresh failed, using cached URL")
	case fresh != "":
		r.logger.Debug().Str("station_id", station.ID).Msg("refreshed stream URL")
		return fresh, nil
	default:
		r.logger.Warn().Str("station_id", station.ID).Msg("station missing from catalog, using cached URL")
	}

	for _, candidate := range station.CandidateURLs() {
		if candidate != "" {
			return candidate, nil
		}
	}

	return "", ErrNoPlayableSource
}
