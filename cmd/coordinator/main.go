/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command coordinator runs the skill coordination core: it loads config,
// restores the last durable snapshot from Postgres, serves the RPC
// surface over HTTP, and flushes a fresh snapshot on graceful shutdown.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/cache"
	"github.com/skillcore/coordinator/internal/config"
	"github.com/skillcore/coordinator/internal/httpapi"
	"github.com/skillcore/coordinator/internal/identity"
	"github.com/skillcore/coordinator/internal/logging"
	"github.com/skillcore/coordinator/internal/obsmetrics"
	"github.com/skillcore/coordinator/internal/storage/postgres"
	"github.com/skillcore/coordinator/pkg/coordinator"
)

func main() {
	configPath := flag.String("config", "", "path to coordinator.yaml (falls back to built-in defaults)")
	metricsPort := flag.String("metrics-port", "9090", "port for the /metrics and /health listener")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("loading configuration")
		}
		cfg = loaded
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logrus.WithError(err).Fatal("building logger")
	}
	log = log.WithName("coordinator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idReg, err := identity.NewRegistry(ctx, cfg.Identity.SeedAdmins, cfg.Identity.SeedWorkers, cfg.Identity.AnalysisEnabled)
	if err != nil {
		log.Error(err, "building identity registry")
		os.Exit(1)
	}
	if cfg.Identity.TeeWorkerURL != "" {
		idReg.SetTeeWorkerURL(cfg.Identity.TeeWorkerURL)
	}

	repo, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error(err, "opening postgres connection")
		os.Exit(1)
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			log.Error(cerr, "closing postgres connection")
		}
	}()
	if err := repo.Migrate(); err != nil {
		log.Error(err, "running core_state migrations")
		os.Exit(1)
	}

	core := coordinator.New(idReg, cfg.Caps.MaxFileSizeBytes, cfg.Caps.MaxFilesPerSkill, cfg.Caps.MaxHistoryEntries)

	snapshotJSON, schemaVersion, err := repo.LoadLatest(ctx)
	if err != nil {
		log.Error(err, "loading prior snapshot")
		os.Exit(1)
	}
	if snapshotJSON != nil {
		snap, err := coordinator.UnmarshalSnapshot(snapshotJSON)
		if err != nil {
			log.Error(err, "unmarshalling prior snapshot", "schema_version", schemaVersion)
			os.Exit(1)
		}
		if err := core.Restore(snap); err != nil {
			log.Error(err, "restoring prior snapshot")
			os.Exit(1)
		}
		log.Info("restored snapshot", "schema_version", schemaVersion)
	} else {
		log.Info("no prior snapshot found, starting clean")
	}

	// internal/cache backs the read-heavy query surface (get_stats,
	// list_skills_filtered); handlers invalidate it on skill mutations, job
	// result submissions and profile creation, so startup only needs to
	// hand the router a client.
	queryCache := cache.New(cfg.Redis.Address, cfg.Redis.DB, cfg.Redis.TTL)
	defer func() {
		if cerr := queryCache.Close(); cerr != nil {
			log.Error(cerr, "closing cache client")
		}
	}()

	metricsLog := logrus.New()
	metricsSrv := obsmetrics.NewServer(*metricsPort, metricsLog)
	metricsSrv.StartAsync()

	router := httpapi.NewRouter(core, cfg.Server.CORS.AllowedOrigins, queryCache)
	httpSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", "address", cfg.Server.Address)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "http server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "shutting down http server")
	}
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		log.Error(err, "shutting down metrics server")
	}

	snap := core.Snapshot()
	snapJSON, err := coordinator.MarshalSnapshot(snap)
	if err != nil {
		log.Error(err, "marshalling final snapshot")
	} else if err := repo.SaveSnapshot(shutdownCtx, snap.SchemaVersion, snapJSON); err != nil {
		log.Error(apperrors.Wrap(err, apperrors.Internal, "saving final snapshot"), "snapshot not persisted")
	} else {
		log.Info("final snapshot persisted")
	}

	log.Info("shutdown complete")
}
