// Replay - keeps the last minute of screen activity and plays it back when
// the machine wakes from sleep
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/replay/internal/capture"
	"github.com/GriffinCanCode/replay/internal/config"
	"github.com/GriffinCanCode/replay/internal/display"
	"github.com/GriffinCanCode/replay/internal/replay"
	"github.com/GriffinCanCode/replay/internal/resume"
	"github.com/GriffinCanCode/replay/internal/screen"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if host, _, err := net.SplitHostPort(cfg.HTTPAddr); err == nil {
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			slog.Warn("display surface is not bound to loopback", "http", cfg.HTTPAddr)
		}
	}

	backend := screen.New(screen.Options{
		FFmpegPath: cfg.FFmpegPath,
		Framerate:  cfg.CaptureFramerate,
		Bitrate:    cfg.CaptureBitrate,
		X11Display: cfg.X11Display,
	})
	starter := capture.NewStarter(backend)

	srv := display.New()
	ctrl := replay.New(replay.CaptureStarter(starter), srv, replay.Options{
		OnTransition: func(from, to replay.State) {
			slog.Info("replay state", "from", from.String(), "to", to.String())
		},
	})
	srv.Bind(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctrl.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		for range resume.Merge(ctx, logger, resume.FromConfig(cfg)...) {
			ctrl.Resume()
		}
	}()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("replay starting", "http", cfg.HTTPAddr, "resume_sources", cfg.ResumeSources)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("shutdown complete")
}
