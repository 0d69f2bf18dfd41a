package main

import (
	"context"
	"log"

	"github.com/avolkonsky/cloudvault/internal/server"
	"github.com/avolkonsky/cloudvault/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
