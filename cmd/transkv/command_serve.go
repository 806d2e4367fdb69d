package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Jeanedlune/transkv/internal/api"
	"github.com/Jeanedlune/transkv/internal/jobqueue"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	// Initialize storage
	opts := config.StoreOptions()
	if opts.Raft != nil {
		opts.Raft.Logger = logger.Named("raft")
	}
	store, err := kvstore.Open(opts)
	if err != nil {
		return err
	}
	logger.Info("store opened", "type", opts.Type, "key_codecs", opts.Transformer.Key,
		"value_codecs", opts.Transformer.Value, "raft", opts.Raft != nil)

	jobStore, err := kvstore.Open(config.JobStoreOptions())
	if err != nil {
		_ = store.Close()
		return err
	}

	// Initialize job queue with configuration and persistence
	queueConfig := &jobqueue.QueueConfig{
		WorkerCount:  config.JobQueue.WorkerCount,
		QueueSize:    config.JobQueue.QueueSize,
		MaxRetries:   config.JobQueue.MaxRetries,
		RetryBackoff: config.JobQueue.RetryBackoff,
		Logger:       logger.Named("jobqueue"),
	}
	queue := jobqueue.NewQueueWithConfig(queueConfig, jobStore)
	queue.RegisterHandler(jobqueue.JobTypeExport, &jobqueue.ExportHandler{
		Store: store,
		Dir:   filepath.Join(config.Storage.DataDir, "exports"),
	})
	queue.RegisterHandler(jobqueue.JobTypePurge, &jobqueue.PurgeHandler{Store: store})
	server := api.NewServer(store, queue)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logger.Named("http").StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Info}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.AllowContentType("application/json"))

	server.Routes(r)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    config.Server.Port,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Mark server as ready
	server.SetReady(true)

	// Wait for termination signal
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal, starting graceful shutdown")
	case err = <-serveErr:
		logger.Error("HTTP server error", "error", err)
	}

	// Mark server as not ready immediately
	server.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown HTTP server (stops accepting new connections)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Shutdown job queue (stops workers)
	queue.Shutdown()

	// Close storage; the raft node, if any, goes down with it
	if err := errors.Join(store.Close(), jobStore.Close()); err != nil {
		logger.Error("error closing storage", "error", err)
	}

	logger.Info("graceful shutdown completed")
	return err
}
