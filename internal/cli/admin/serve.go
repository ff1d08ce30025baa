package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/videochat/internal/api/handlers"
	"github.com/cloo-solutions/videochat/internal/config"
	"github.com/cloo-solutions/videochat/internal/jobs"
	"github.com/cloo-solutions/videochat/internal/server"
	"github.com/cloo-solutions/videochat/internal/service"
	"github.com/cloo-solutions/videochat/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the videochat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		defer flush()
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	deps, err := newSessionDeps(ctx, cfg)
	if err != nil {
		return err
	}
	sessions := service.NewSessionManager(service.NewSessionFactory(deps))

	reaper := jobs.NewWorker(jobs.NewSessionReaper(sessions, cfg.SessionIdleTTL), cfg.SessionReapInterval)
	go reaper.Start(ctx)
	log.Printf("session reaper started (idle ttl %s)", cfg.SessionIdleTTL)

	router := server.NewRouter(server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(sessions),
		AskTimeout:     cfg.AskTimeout,
		IngestTimeout:  cfg.IngestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	for _, id := range sessions.IDs() {
		_ = sessions.Delete(id)
	}

	log.Println("server exited")
	return nil
}
