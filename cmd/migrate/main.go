package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"genstudio/internal/infra"
	"genstudio/internal/migrate"
)

func main() {
	var (
		statusFlag  bool
		timeoutFlag time.Duration
	)
	flag.BoolVar(&statusFlag, "status", false, "list pending migrations without applying them")
	flag.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	logger := infra.NewLogger(os.Getenv("APP_ENV"), "migrate")

	migrations, err := migrate.Load()
	if err != nil {
		exitWithError(err)
	}
	db, err := migrate.Open(dbURL)
	if err != nil {
		exitWithError(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	runner := migrate.NewRunner(db, logger, migrations)
	if statusFlag {
		pending, err := runner.Pending(ctx)
		if err != nil {
			exitWithError(err)
		}
		if len(pending) == 0 {
			fmt.Println("schema is up to date")
			return
		}
		for _, m := range pending {
			fmt.Printf("pending %04d %s\n", m.Version, m.Name)
		}
		return
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		exitWithError(fmt.Errorf("applied %d migrations before failing: %w", applied, err))
	}
	fmt.Printf("applied %d migrations\n", applied)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
