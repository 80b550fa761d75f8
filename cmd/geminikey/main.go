package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/infra"
	"studio/internal/infra/credentials"
)

func main() {
	var (
		keyFlag   string
		checkFlag bool
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key to store (fallbacks to GEMINI_API_KEY)")
	flag.BoolVar(&checkFlag, "check", false, "only report whether a key is stored")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.HasDatabase() {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = cfg.GeminiAPIKey
	}
	if key == "" && !checkFlag {
		fmt.Fprintln(os.Stderr, "GEMINI API key is required via -key or environment")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewCLILogger("geminikey", false).With().Str("provider", credentials.ProviderGemini).Logger()
	selector := credentials.NewSelector(credentials.NewStore(infra.NewSQLRunner(pool, logger)), func(context.Context) (string, error) {
		return key, nil
	})

	if checkFlag {
		ok, err := selector.HasSelectedKey(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read api key: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("no GEMINI API key stored")
			os.Exit(1)
		}
		fmt.Println("GEMINI API key is stored")
		return
	}

	if err := selector.OpenSelectKey(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist gemini api key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("GEMINI API key stored successfully")
}
