// Package main implements the entry point for the choreboard server, the
// real-time household task subsystem: a WebSocket gateway, the task
// lifecycle API, and the overdue sweeper.
package main

import (
	"context"
	"log"
)

func main() {
	ctx := context.Background()

	app, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
