package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/jobline/internal/config"
	"github.com/alfredjeanlab/jobline/internal/entitlement"
	"github.com/alfredjeanlab/jobline/internal/events"
	"github.com/alfredjeanlab/jobline/internal/gate"
	"github.com/alfredjeanlab/jobline/internal/ingest"
	"github.com/alfredjeanlab/jobline/internal/lanes"
	"github.com/alfredjeanlab/jobline/internal/presence"
	"github.com/alfredjeanlab/jobline/internal/server"
	"github.com/alfredjeanlab/jobline/internal/store"
	"github.com/alfredjeanlab/jobline/internal/store/postgres"
	jobsync "github.com/alfredjeanlab/jobline/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the jobs gRPC and HTTP server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		policy, err := gate.ParsePolicy(cfg.GatePolicy)
		if err != nil {
			return err
		}

		// Open the lane store.
		var st store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
			logger.Info("lanes backed by postgres")
		} else {
			st = lanes.New()
			logger.Info("lanes are in memory (JOBS_DATABASE_URL not set)")
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (JOBS_NATS_URL not set)")
		}

		// Create server components.
		jobsServer := server.NewJobsServer(st, publisher)

		var sessions *gate.Registry
		if cfg.GateEnabled() {
			var auth gate.Authenticator
			if cfg.AuthURL != "" {
				auth = entitlement.NewAuth(cfg.AuthURL, cfg.EntitlementToken)
			}
			sessions = jobsServer.EnableGate(
				entitlement.NewClient(cfg.EntitlementURL, cfg.EntitlementToken),
				auth,
				gate.Options{
					Timeout: cfg.VerifyTimeout,
					Policy:  policy,
					Logger:  logger,
				},
			)
			logger.Info("session gate enabled", "entitlement_url", cfg.EntitlementURL, "policy", policy, "timeout", cfg.VerifyTimeout)
		} else {
			logger.Info("session gate disabled (JOBS_ENTITLEMENT_URL not set)")
		}

		jobsServer.Presence.StartReaper(&presence.ReaperConfig{
			DeadThreshold: cfg.PresenceDeadAfter,
			OnDead: func(actor string, activeJobs []string) {
				logger.Warn("worker went quiet", "actor", actor, "active_jobs", activeJobs)
			},
		})

		// Seed the pending lane.
		if cfg.SeedFile != "" {
			jobs, err := ingest.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			if _, err := ingest.Seed(context.Background(), jobsServer, jobs, logger); err != nil {
				publisher.Close()
				st.Close()
				return err
			}
		}

		grpcServer := server.NewGRPCServer(jobsServer, cfg.AuthToken)

		// Start gRPC listener.
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: jobsServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start sync scheduler if any destinations are configured.
		var scheduler *jobsync.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []jobsync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := jobsync.NewS3Destination(context.Background(), jobsync.S3Config{
					Bucket:   cfg.SyncS3Bucket,
					Key:      cfg.SyncS3Key,
					Region:   cfg.SyncS3Region,
					Endpoint: cfg.SyncS3Endpoint,
				})
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "dest", s3Dest)
				}
			}

			if cfg.SyncGitRepo != "" {
				gitDest := jobsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
				dests = append(dests, gitDest)
				logger.Info("sync git destination enabled", "dest", gitDest)
			}

			if len(dests) > 0 {
				scheduler = jobsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		// Start the ingest subscriber if NATS is available.
		var ingestCancel context.CancelFunc
		if cfg.NATSURL != "" && cfg.IngestTopic != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create ingest subscriber", "err", err)
			} else {
				ingester := ingest.NewSubscriber(jobsServer, cfg.IngestTopic, logger)
				var ingestCtx context.Context
				ingestCtx, ingestCancel = context.WithCancel(context.Background())
				go func() {
					if err := ingester.Run(ingestCtx, sub); err != nil {
						logger.Error("ingest subscriber error", "err", err)
					}
					sub.Close()
				}()
			}
		}

		logger.Info("jobs server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if ingestCancel != nil {
			ingestCancel()
			logger.Info("ingest subscriber stopped")
		}

		if scheduler != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := scheduler.SyncNow(flushCtx); err != nil {
				logger.Warn("final sync incomplete", "err", err)
			}
			cancel()
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		jobsServer.Presence.Stop()
		if sessions != nil {
			sessions.Close()
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
