package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/taxbook/taxbook-go/internal/config"
	"github.com/taxbook/taxbook-go/internal/devserver"
)

func main() {
	_ = godotenv.Load(".env")

	if err := run(); err != nil {
		log.Fatalf("Error running dev server: %s\n", err)
	}
	log.Printf("Dev server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName() + " dev")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if c.GetEnv() != "DEV" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	srv := devserver.New(
		config.GetEnv("DEVSERVER_SECRET", "dev-only-secret-not-for-production"),
		devserver.WithLogger(logger),
		devserver.WithRefreshRotation(true),
	)
	if err := srv.SeedUser("demo@taxbook.dev", "demo12345", "Демо", "Пользователь"); err != nil {
		return fmt.Errorf("seeding demo user: %w", err)
	}
	logger.Info().Str("email", "demo@taxbook.dev").Msg("seeded demo account (password demo12345)")

	server := &http.Server{Addr: c.GetPort(), Handler: srv.Handler()}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Printf("Dev server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
