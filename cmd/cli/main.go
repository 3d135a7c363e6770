package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/mizphses/kips/internal/cli"
	"github.com/mizphses/kips/internal/flagx"
	"github.com/mizphses/kips/internal/server/config"
)

func main() {

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer app.Close()

	// Strip the config flags already consumed by LoadConfig; what remains
	// is the admin command and its arguments.
	args := flagx.ExcludeFlags(os.Args[1:],
		[]string{"-a", "-b", "-r", "-d", "-s", "-p", "-t", "-i", "-c", "-config"})

	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}
}
