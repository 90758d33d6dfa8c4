package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"photobooth/internal/app"
	"photobooth/internal/config"
	"syscall"
)

func main() {
	cfg := config.Load()

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := application.Run(ctx)
	stop()

	if err := application.Close(); err != nil {
		log.Printf("Error during cleanup: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server stopped: %v", runErr)
	}
}
