package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"linkhub.app/app"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found or error loading it")
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	app.NewConfigDisplayer(application.Logger()).PrintConfig(application.Config())

	setupGracefulShutdown(application)

	// A panic escaping the startup path is treated as a shutdown trigger
	// so registered cleanup still runs.
	defer func() {
		if r := recover(); r != nil {
			application.Logger().Error("unrecovered panic", map[string]interface{}{"panic": r})
			os.Exit(application.Shutdown("panic"))
		}
	}()

	application.Logger().Info("Starting LinkHub...", nil)
	if err := application.Start(); err != nil {
		application.Logger().Error("Failed to start application", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Start returns cleanly once the shutdown sequence closes the server;
	// the signal goroutine owns the exit code in that case.
	select {}
}

func setupGracefulShutdown(application *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-c
		os.Exit(application.Shutdown(sig.String()))
	}()
}
