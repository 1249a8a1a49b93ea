package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/carepoint/engine/internal/alerts"
	"github.com/carepoint/engine/internal/api"
	"github.com/carepoint/engine/internal/beds"
	"github.com/carepoint/engine/internal/cache"
	"github.com/carepoint/engine/internal/catalog"
	"github.com/carepoint/engine/internal/patients"
	"github.com/carepoint/engine/internal/shared/config"
	"github.com/carepoint/engine/internal/shared/events"
	"github.com/carepoint/engine/internal/shared/logging"
	"github.com/carepoint/engine/internal/shared/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Server.Env)
	log.Info().Str("env", cfg.Server.Env).Str("backend", cfg.Backend.BaseURL).Msg("starting clinical state engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	client := api.NewClient(cfg.Backend, log)
	coord := cache.NewCoordinator(log)

	// Entity caches.
	patientStore := cache.NewStore[patients.Patient]("patients", bus)
	bedStore := cache.NewStore[beds.Bed]("beds", bus)
	alertStore := cache.NewStore[alerts.Alert]("alerts", bus)

	patientSvc := patients.NewService(patientStore, bedStore, coord, client, bus, cfg.Triage, log)
	bedSvc := beds.NewService(bedStore, coord, client, patientSvc, log)
	alertSvc := alerts.NewService(alertStore, coord, client, log)

	// Advisory events surface in the operational log until a push channel
	// to the dashboard exists.
	bus.Subscribe("triage.downgrade", func(ctx context.Context, e events.Event) {
		log.Info().Interface("data", e.Data).Msg("triage downgrade advisory")
	})
	bus.Subscribe("vitals.critical", func(ctx context.Context, e events.Event) {
		log.Warn().Interface("data", e.Data).Msg("critical vitals recorded")
	})

	// Pollers. Patients refresh on the bed cadence; their occupancy changes
	// together.
	alertPoller := cache.NewPoller(alertStore, client.ListAlerts, cfg.Poll.AlertInterval, log)
	bedPoller := cache.NewPoller(bedStore, client.ListBeds, cfg.Poll.BedInterval, log)
	patientPoller := cache.NewPoller(patientStore, patientSvc.FetchAll, cfg.Poll.BedInterval, log)
	go alertPoller.Run(ctx)
	go bedPoller.Run(ctx)
	go patientPoller.Run(ctx)

	// Staleness kicks: a committed mutation marks its stores stale, the
	// matching poller reconciles right away instead of waiting for a tick.
	bus.Subscribe("cache.alerts.stale", func(context.Context, events.Event) { alertPoller.Kick() })
	bus.Subscribe("cache.beds.stale", func(context.Context, events.Event) { bedPoller.Kick() })
	bus.Subscribe("cache.patients.stale", func(context.Context, events.Event) { patientPoller.Kick() })

	// Medication catalog, preloaded once in the background.
	medCatalog := catalog.New()
	searchEngine := catalog.NewEngine(medCatalog, cfg.Search, client.SearchMedications, log)
	go func() {
		entries, err := client.SearchMedications(ctx, "", 0)
		if err != nil {
			log.Warn().Err(err).Msg("medication catalog preload failed, search starts cold")
			return
		}
		medCatalog.Load(entries)
		log.Info().Int("entries", medCatalog.Len()).Msg("medication catalog preloaded")
	}()
	patientSvc.UseGenericResolver(medCatalog.Generic)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"patients":       patientStore.Version(),
			"beds":           bedStore.Version(),
			"bedsAvailable":  len(bedSvc.Available("")),
			"alerts":         alertStore.Version(),
			"alertsUnread":   alertSvc.UnreadCount(),
			"catalogEntries": medCatalog.Len(),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	// The dashboard reports regaining foreground focus here; every poller
	// refreshes immediately instead of waiting out its interval.
	r.Post("/refresh", func(w http.ResponseWriter, _ *http.Request) {
		alertPoller.Kick()
		bedPoller.Kick()
		patientPoller.Kick()
		w.WriteHeader(http.StatusAccepted)
	})

	// Operator probe for the medication search tiers.
	r.Get("/debug/medications", func(w http.ResponseWriter, req *http.Request) {
		searchEngine.SetQuery(ctx, req.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(searchEngine.Options())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("operational surface listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
