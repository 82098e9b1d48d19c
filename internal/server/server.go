/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, the catalog client and the
// relay into a running HTTP service.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_relay/internal/catalog"
	"github.com/friendsincode/skald_relay/internal/config"
	"github.com/friendsincode/skald_relay/internal/events"
	"github.com/friendsincode/skald_relay/internal/program"
	"github.com/friendsincode/skald_relay/internal/registry"
	"github.com/friendsincode/skald_relay/internal/relay"
	"github.com/friendsincode/skald_relay/internal/resolver"
	"github.com/friendsincode/skald_relay/internal/store"
	"github.com/friendsincode/skald_relay/internal/telemetry"
	"github.com/friendsincode/skald_relay/internal/transcode"
)

// Server bundles the HTTP relay and its supporting services.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	store    *store.Store
	registry *registry.Registry
	catalog  *catalog.HTTPClient
	relay    *relay.Relay
	director *program.Director
	bus      *events.Bus

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
	bgSubs   []busSubscription
}

type busSubscription struct {
	eventType events.EventType
	sub       events.Subscriber
}

// New builds a fully wired server. Station data is loaded from the store at
// startup; an empty database is not an error, the relay just serves no
// stations until a crawl runs.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.MetricsMiddleware)
	// Relay connections run for as long as the listener keeps playing, so
	// the request timeout only applies to the non-streaming routes.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/stream/") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		srv.Close()
		return nil, err
	}

	srv.relay.Routes(srv.router)
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.router,
		// Header deadline guards against slowloris; the write deadline stays
		// unset because stream responses have no natural end.
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	st, err := store.Open(s.cfg.StationDBPath(), s.logger)
	if err != nil {
		return err
	}
	s.store = st
	s.DeferClose(st.Close)

	s.registry = registry.New()
	if err := s.ReloadStations(context.Background()); err != nil {
		return err
	}

	s.catalog = catalog.NewHTTPClient(catalog.Options{
		RadioBaseURL:   s.cfg.RadioCatalogURL,
		RadioKey:       s.cfg.RadioCatalogKey,
		ContentBaseURL: s.cfg.ContentCatalogURL,
		Timeout:        s.cfg.CatalogTimeout,
	}, s.logger)

	res := resolver.New(s.catalog, s.logger)

	ffmpegBin, err := transcode.DetectFFmpeg(s.cfg.FFmpegBin)
	if err != nil {
		// Spawns will fail with an encoder error; the relay stays up so
		// /health and /api/stations keep working.
		s.logger.Warn().Err(err).Msg("ffmpeg not found, streams will be unavailable")
	} else {
		ev := s.logger.Info().Str("ffmpeg", ffmpegBin)
		if v, verr := transcode.Version(ffmpegBin); verr == nil {
			ev = ev.Str("version", v)
		}
		ev.Msg("encoder detected")
	}
	runner := transcode.NewRunner(ffmpegBin, s.logger)

	if s.cfg.VirtualEnabled {
		s.director = program.New(s.catalog, s.cfg.ProgramKeyword, s.bus, s.logger)
	}

	var director relay.ProgramDirector
	if s.director != nil {
		director = s.director
	}
	s.relay = relay.New(
		s.registry,
		res,
		relay.RunnerSpawner{Runner: runner},
		director,
		s.bus,
		s.cfg.AdvertisedBaseURL(),
		s.cfg.HTTPPort,
		s.logger,
	)
	s.DeferClose(func() error {
		s.relay.Shutdown()
		return nil
	})

	return nil
}

// ReloadStations replaces the registry contents from the store.
func (s *Server) ReloadStations(ctx context.Context) error {
	stations, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.registry.Load(stations)
	s.bus.Publish(events.EventCatalogReload, events.Payload{"stations": len(stations)})
	s.logger.Info().Int("stations", len(stations)).Msg("station registry loaded")
	return nil
}

// Store exposes the station store for the crawl and playlist commands.
func (s *Server) Store() *store.Store {
	return s.store
}

// Catalog exposes the upstream catalog client.
func (s *Server) Catalog() *catalog.HTTPClient {
	return s.catalog
}

// Bus exposes the event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// HTTPServer returns the configured relay HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("relay listening")
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := s.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("http shutdown error")
	}
	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("metrics shutdown error")
	}
	return nil
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// startBackgroundWorkers runs the event log loop, which surfaces bus events
// in the process log at debug level.
func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	watched := []events.EventType{
		events.EventStreamStart,
		events.EventStreamStop,
		events.EventProgramAdvance,
		events.EventProgramReset,
	}
	for _, et := range watched {
		sub := s.bus.Subscribe(et)
		s.bgSubs = append(s.bgSubs, busSubscription{eventType: et, sub: sub})
		s.bgWG.Add(1)
		go func(et events.EventType, sub events.Subscriber) {
			defer s.bgWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					s.logger.Debug().Str("event", string(et)).Fields(map[string]any(payload)).Msg("event")
				}
			}
		}(et, sub)
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	for _, bs := range s.bgSubs {
		s.bus.Unsubscribe(bs.eventType, bs.sub)
	}
	s.bgSubs = nil
	s.bgWG.Wait()
}
