/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package relay serves the station catalog and the per-station audio streams.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/events"
	"github.com/friendsincode/skald_relay/internal/models"
	"github.com/friendsincode/skald_relay/internal/program"
	"github.com/friendsincode/skald_relay/internal/registry"
	"github.com/friendsincode/skald_relay/internal/telemetry"
	"github.com/friendsincode/skald_relay/internal/transcode"
)

// ErrStationNotFound indicates the requested id is not in the registry.
var ErrStationNotFound = errors.New("station not found")

// VirtualStationID names the synthesized station. Everything else in the
// registry is a real cataloged station.
const VirtualStationID = "virtual"

// VirtualStationName is the display name shown for the synthesized station.
const VirtualStationName = "Skald Mix"

// chunkSize is the unit of transfer from the encoder pipe to the client.
const chunkSize = 4096

// chunkBacklog bounds the producer/consumer channel between the encoder
// reader and the response writer so a slow client cannot buffer a fast
// encoder without limit.
const chunkBacklog = 32

// Encoder is the slice of a transcode process the relay needs.
type Encoder interface {
	Output() io.ReadCloser
	PID() int
	Kill()
}

// Spawner launches encoders. Implemented by RunnerSpawner in production and
// by fakes in tests.
type Spawner interface {
	Spawn(ctx context.Context, inputURL string, opts transcode.SpawnOptions) (Encoder, error)
}

// RunnerSpawner adapts *transcode.Runner to the Spawner interface.
type RunnerSpawner struct {
	Runner *transcode.Runner
}

// Spawn launches an encoder process.
func (r RunnerSpawner) Spawn(ctx context.Context, inputURL string, opts transcode.SpawnOptions) (Encoder, error) {
	return r.Runner.Spawn(ctx, inputURL, opts)
}

// StationResolver resolves a station to a playable upstream URL.
type StationResolver interface {
	Resolve(ctx context.Context, station models.Station) (string, error)
}

// ProgramDirector advances the virtual station's program.
type ProgramDirector interface {
	Next(ctx context.Context) (program.Selection, error)
	Reset()
}

// activeStream is one in-flight relay session.
type activeStream struct {
	stationID string
	encoder   Encoder
	pid       int
	startedAt time.Time
}

// Relay binds the registry, resolver, director, and encoder runner to the
// HTTP surface.
type Relay struct {
	registry *registry.Registry
	resolver StationResolver
	spawner  Spawner
	director ProgramDirector // nil when the virtual station is disabled
	bus      *events.Bus
	logger   zerolog.Logger

	baseURL string
	port    int

	mu     sync.Mutex
	active map[string]*activeStream // session id -> stream
}

// New wires the relay.
func New(reg *registry.Registry, res StationResolver, spawner Spawner, director ProgramDirector, bus *events.Bus, baseURL string, port int, logger zerolog.Logger) *Relay {
	return &Relay{
		registry: reg,
		resolver: res,
		spawner:  spawner,
		director: director,
		bus:      bus,
		logger:   logger.With().Str("component", "relay").Logger(),
		baseURL:  baseURL,
		port:     port,
		active:   make(map[string]*activeStream),
	}
}

// Routes mounts the relay endpoints.
func (rel *Relay) Routes(r chi.Router) {
	r.Get("/stream/{id}", rel.HandleStream)
	r.Get("/health", rel.HandleHealth)
	r.Get("/api/stations", rel.HandleStations)
}

// HandleStream resolves the station (or virtual program entry), spawns an
// encoder, and forwards its output as a chunked audio/mpeg response.
func (rel *Relay) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var (
		streamURL string
		name      string
		opts      transcode.SpawnOptions
	)

	if id == VirtualStationID && rel.director != nil {
		sel, err := rel.director.Next(ctx)
		if err != nil {
			rel.logger.Error().Err(err).Msg("virtual program resolution failed")
			telemetry.StreamErrorsTotal.WithLabelValues("program").Inc()
			http.Error(w, "virtual program unavailable: "+err.Error(), http.StatusInternalServerError)
			return
		}
		streamURL = sel.AudioURL
		name = sel.Item.Title
		if sel.Item.Author != "" {
			name = sel.Item.Author + " - " + sel.Item.Title
		}
		// The content catalog's media servers reject requests without the
		// catalog's own referer and a browser user agent.
		opts = transcode.SpawnOptions{
			UserAgent: catalog.ContentUserAgent(),
			Referer:   catalog.ContentReferer(),
		}
	} else {
		// Switching to a real channel abandons virtual program continuity.
		if rel.director != nil {
			rel.director.Reset()
		}

		station, ok := rel.registry.Get(id)
		if !ok {
			telemetry.StreamErrorsTotal.WithLabelValues("not_found").Inc()
			http.Error(w, ErrStationNotFound.Error(), http.StatusNotFound)
			return
		}

		u, err := rel.resolver.Resolve(ctx, station)
		if err != nil {
			rel.logger.Error().Err(err).Str("station_id", id).Msg("resolution failed")
			telemetry.StreamErrorsTotal.WithLabelValues("no_source").Inc()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		streamURL = u
		name = station.Name
	}

	encoder, err := rel.spawner.Spawn(ctx, streamURL, opts)
	if err != nil {
		rel.logger.Error().Err(err).Str("station_id", id).Msg("encoder spawn failed")
		telemetry.StreamErrorsTotal.WithLabelValues("encoder").Inc()
		if errors.Is(err, transcode.ErrEncoderUnavailable) {
			http.Error(w, "encoder unavailable: "+err.Error(), http.StatusInternalServerError)
		} else {
			http.Error(w, "failed to start stream", http.StatusInternalServerError)
		}
		return
	}

	// Register before the first byte so status queries during slow starts
	// are accurate. The deferred teardown is the single cleanup path for
	// every way this handler exits.
	session := rel.register(id, encoder)
	defer rel.teardown(session, id, encoder)

	telemetry.StreamStartsTotal.WithLabelValues(id).Inc()
	rel.bus.Publish(events.EventStreamStart, events.Payload{
		"station_id": id,
		"session_id": session,
		"pid":        encoder.PID(),
	})
	rel.logger.Info().Str("station_id", id).Str("name", name).Int("pid", encoder.PID()).Msg("stream started")

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Icy-Name", url.QueryEscape(name))
	w.WriteHeader(http.StatusOK)

	rel.forward(ctx, w, encoder, id)
}

// forward pumps encoder output to the client through a bounded channel: the
// reader goroutine blocks once the backlog fills, so backpressure reaches the
// encoder pipe instead of growing heap.
func (rel *Relay) forward(ctx context.Context, w http.ResponseWriter, encoder Encoder, stationID string) {
	chunks := make(chan []byte, chunkBacklog)

	go func() {
		defer close(chunks)
		out := encoder.Output()
		buf := make([]byte, chunkSize)
		for {
			n, err := out.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					rel.logger.Warn().Err(err).Str("station_id", stationID).Msg("encoder read error")
				}
				return
			}
		}
	}()

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-ctx.Done():
			// Client went away; the deferred teardown kills the encoder,
			// which also unblocks the reader goroutine.
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (rel *Relay) register(stationID string, encoder Encoder) string {
	session := uuid.NewString()
	rel.mu.Lock()
	rel.active[session] = &activeStream{
		stationID: stationID,
		encoder:   encoder,
		pid:       encoder.PID(),
		startedAt: time.Now(),
	}
	rel.mu.Unlock()
	telemetry.ActiveStreams.Inc()
	return session
}

// teardown kills the encoder and removes the session entry. Runs exactly once
// per stream regardless of which exit condition fired first.
func (rel *Relay) teardown(session, stationID string, encoder Encoder) {
	encoder.Kill()

	rel.mu.Lock()
	_, present := rel.active[session]
	delete(rel.active, session)
	rel.mu.Unlock()

	if present {
		telemetry.ActiveStreams.Dec()
		rel.bus.Publish(events.EventStreamStop, events.Payload{
			"station_id": stationID,
			"session_id": session,
		})
		rel.logger.Info().Str("station_id", stationID).Msg("stream closed")
	}
}

// ActiveCount reports the number of in-flight streams.
func (rel *Relay) ActiveCount() int {
	rel.mu.Lock()
	defer rel.mu.Unlock()
	return len(rel.active)
}

// Shutdown kills every active encoder. In-flight handlers observe the pipe
// closing and unwind through their own teardown.
func (rel *Relay) Shutdown() {
	rel.mu.Lock()
	encoders := make([]Encoder, 0, len(rel.active))
	for _, s := range rel.active {
		encoders = append(encoders, s.encoder)
	}
	rel.mu.Unlock()

	for _, enc := range encoders {
		enc.Kill()
	}
}

// HandleHealth reports relay status. Reads only counters; never blocked by an
// in-progress stream spawn.
func (rel *Relay) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.ServerStatus{
		Running:       true,
		Port:          rel.port,
		ActiveStreams: rel.ActiveCount(),
		TotalStations: rel.registry.Count(),
	}
	writeJSON(w, status)
}

// HandleStations lists all stations with relay URLs, plus the synthetic
// virtual entry when enabled.
func (rel *Relay) HandleStations(w http.ResponseWriter, r *http.Request) {
	stations := rel.registry.List()
	views := make([]models.StationView, 0, len(stations)+1)
	for _, s := range stations {
		views = append(views, models.StationView{
			ID:        s.ID,
			Name:      s.Name,
			Subtitle:  s.Subtitle,
			Image:     s.Image,
			Region:    s.Region,
			StreamURL: rel.streamURL(s.ID),
		})
	}

	if rel.director != nil {
		views = append(views, models.StationView{
			ID:        VirtualStationID,
			Name:      VirtualStationName,
			Subtitle:  "Continuous program stitched from the content catalog",
			Region:    "virtual",
			StreamURL: rel.streamURL(VirtualStationID),
		})
	}

	writeJSON(w, views)
}

func (rel *Relay) streamURL(id string) string {
	return rel.baseURL + "/stream/" + id
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
