package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wyydra/huddle/internal/adapter/driven/gateway/ws"
	handler "github.com/Wyydra/huddle/internal/adapter/driving/http"
	"github.com/Wyydra/huddle/internal/config"
	"github.com/Wyydra/huddle/internal/core/service"
	"github.com/Wyydra/huddle/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFilePath := flag.String("config", "", "Path to a YAML, TOML or JSON config file.")
	flag.Parse()

	if err := run(*configFilePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFilePath string) error {
	cfg, err := config.Load(configFilePath)
	if err != nil {
		return err
	}

	l, logFile, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if cfg.File != "" {
		l.Info().Str("path", cfg.File).Msg("Loaded config file")
	} else if configFilePath != "" {
		l.Info().Str("path", configFilePath).Msg("No config file found, using defaults")
	}

	rooms := service.NewRoomService(l, cfg.InboxSize)

	h := handler.NewHandler(rooms, handler.Options{
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
		WS: ws.Options{
			WriteWait:       cfg.WS.WriteWait,
			PongWait:        cfg.WS.PongWait,
			PingInterval:    cfg.WS.PingInterval,
			MaxMessageBytes: cfg.WS.MaxMessageBytes,
			SendBuffer:      cfg.WS.SendBuffer,
		},
		LogRate:    cfg.LogRelay.Rate,
		LogBurst:   cfg.LogRelay.Burst,
		ICEServers: cfg.ICEServers,
	}, l)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: h.NewRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The coordinator outlives the HTTP server so in-flight disconnects
	// still get applied during shutdown.
	roomsCtx, stopRooms := context.WithCancel(context.Background())
	defer stopRooms()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rooms.Run(roomsCtx)
	})

	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			l.Error().Err(err).Msg("Server forced to shutdown")
		}
		stopRooms()
		return err
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("Server exited with error")
		return err
	}
	l.Info().Msg("Server exited")
	return nil
}
