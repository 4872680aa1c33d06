package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/api"
	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/governor"
	"tracklink-go-srv/internal/pipeline"
	"tracklink-go-srv/internal/provider"
	"tracklink-go-srv/internal/provider/apple"
	"tracklink-go-srv/internal/provider/spotify"
	"tracklink-go-srv/internal/provider/youtube"
	"tracklink-go-srv/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("loading configuration failed")
	}

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("opening database failed")
	}
	defer store.Close()

	ctx := context.Background()
	adapters := []provider.Adapter{
		spotify.New(ctx, cfg.Spotify),
		apple.New(cfg.Apple),
		youtube.New(cfg.YouTube),
	}
	for _, a := range adapters {
		enabled := true
		switch a.Name() {
		case "spotify":
			enabled = cfg.Spotify.Enabled()
		case "apple":
			enabled = cfg.Apple.Enabled()
		case "youtube":
			enabled = cfg.YouTube.Enabled()
		}
		logger.WithFields(logrus.Fields{"provider": a.Name(), "enabled": enabled}).Info("provider adapter ready")
	}

	gov := governor.New(cfg.Rate, cfg.Schedule.MaxConcurrent)
	pipe := pipeline.New(store, gov, adapters, logger)

	sched := scheduler.New(pipe, store, cfg.Schedule, logger)
	sched.Start()

	handler := api.NewHandler(pipe, store, sched, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server.Mode),
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}

	// Waits for any in-flight pass to finish its current track.
	sched.Stop()
	logger.Info("stopped")
}
