package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/api"
	"github.com/banshee-data/pointer.predict/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve per-pointer prediction sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.String("listen", getEnvStr("POINTER_PREDICT_LISTEN", ":8080"), "Listen address")
	f.String("config", getEnvStr("POINTER_PREDICT_CONFIG", ""), "Tuning config file (.json, .yaml, .yml)")
	f.String("db", getEnvStr("POINTER_PREDICT_DB", ""), "SQLite run store to expose under /api/runs (empty disables)")
	f.Int("max-sessions", getEnvInt("POINTER_PREDICT_MAX_SESSIONS", 0), "Override max_sessions (0 keeps the config value)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")
	maxSessions, _ := cmd.Flags().GetInt("max-sessions")

	tuning, cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if maxSessions <= 0 {
		maxSessions = tuning.GetMaxSessions()
	}
	sessions, err := api.NewSessionManager(cfg, api.SessionOptions{
		IdleTimeout: tuning.GetSessionIdleTimeout(),
		MaxSessions: maxSessions,
		AutoStart:   true,
	})
	if err != nil {
		return err
	}

	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer st.Close()
		if v, _, err := st.MigrateVersion(); err == nil {
			log.Printf("run store %s at schema v%d", dbPath, v)
		}
	}

	mux := api.NewServer(sessions, st).ServeMux()
	if st != nil {
		if err := st.AttachAdminRoutes(mux); err != nil {
			return fmt.Errorf("failed to attach admin routes: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.Run(ctx)
		log.Print("session janitor stopped")
	}()

	server := &http.Server{
		Addr:              listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("serving pointer predictions on %s (max %d sessions, idle timeout %s)",
			listen, maxSessions, tuning.GetSessionIdleTimeout())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		stop()
		wg.Wait()
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	wg.Wait()
	log.Printf("HTTP server stopped")
	return nil
}
