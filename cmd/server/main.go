package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/boxer-login/backend"
	"github.com/jrsteele09/boxer-login/internal/config"
	"github.com/jrsteele09/boxer-login/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errPanicRecovered = errors.New("panic recovered")

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := run(ctx)
		if err == nil {
			break
		}
		if !shouldRestart(ctx, err) {
			stop()
			log.Fatal().Err(err).Msg("server failed")
		}
		log.Error().Err(err).Msg("server panicked, restarting")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("server stopped")
}

// shouldRestart is true only for a recovered panic while no stop was requested.
// Startup errors are permanent and must reach the supervisor as a non-zero exit.
func shouldRestart(ctx context.Context, err error) bool {
	return errors.Is(err, errPanicRecovered) && ctx.Err() == nil
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = fmt.Errorf("%w: %v", errPanicRecovered, r)
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	setupLogging(c)
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}

	displayAppname(c.GetAppName())

	flows, err := server.InitialiseFlows(c, nil)
	if err != nil {
		return err
	}
	backendClient := backend.New(c.GetBackendURL(), c.GetBackendTimeout(), nil)

	handler, err := server.New(c, backendClient, flows)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
