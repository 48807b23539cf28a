package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/config"
	"github.com/hakanakfirat27/zeugma-realtime/internal/api"
	"github.com/hakanakfirat27/zeugma-realtime/internal/connection"
	"github.com/hakanakfirat27/zeugma-realtime/internal/cursor"
	"github.com/hakanakfirat27/zeugma-realtime/internal/routers"
	"github.com/hakanakfirat27/zeugma-realtime/internal/session"
	"github.com/hakanakfirat27/zeugma-realtime/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	backend := config.Conf.BACKEND
	apiClient := api.NewClient(backend.BaseURL, backend.Token)
	conns := connection.NewManager(backend.WSURL, backend.Token)

	var cursors cursor.Store
	if appState.Redis != nil {
		cursors = cursor.NewRedisStore(appState.Redis)
	} else {
		cursors = cursor.NewMemoryStore()
	}

	engine := session.NewEngine(appState.Identity, apiClient, conns, cursors, session.Options{
		PollInterval:  config.Conf.SYNC.PollInterval,
		SilentTimeout: config.Conf.SYNC.SilentTimeout,
		TypingExpiry:  config.Conf.SYNC.TypingExpiry,
		TypingIdle:    config.Conf.SYNC.TypingIdle,
		PageSize:      config.Conf.SYNC.PageSize,
	})
	engine.Start(ctx)
	log.Info().Msg("Sync engine initialized")

	r := routers.NewRouter(engine)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// serve the local status API
	go func() {
		log.Info().Msgf("Status API listening on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	// gracefully shutdown the application
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	engine.Stop()
}
