package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/mizphses/kips/internal/server"
	"github.com/mizphses/kips/internal/server/config"
)

func main() {

	// Missing .env is fine; settings may come from the environment proper.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
