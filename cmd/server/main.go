package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arencloud/cloudgate/internal/api"
	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/db"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Println("config error:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env)

	gdb, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open db", "error", err)
	}
	store := db.NewStore(gdb)
	defer store.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           middleware.Recoverer(api.Router(cfg, logger, store), logger),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // notification stream is long lived
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", srv.Addr, "db", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
