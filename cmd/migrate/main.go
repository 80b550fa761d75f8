package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewCLILogger("migrate", true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := infra.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	fmt.Println("schema is up to date")
}
