package infra

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded schema statements in execution order.
func Schema() []string {
	var stmts []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// Migrate applies the embedded schema through database/sql and lib/pq. Every
// statement is idempotent, so running it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, databaseURL string, logger zerolog.Logger) error {
	if strings.TrimSpace(databaseURL) == "" {
		return errors.New("migrate: DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", describePQ(err))
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range Schema() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: statement %d: %w", i+1, describePQ(err))
		}
		logger.Debug().Int("statement", i+1).Msg("migrate: applied")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", describePQ(err))
	}
	logger.Info().Int("statements", len(Schema())).Msg("migrate: schema up to date")
	return nil
}

func describePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Message, pqErr.Code, err)
	}
	return err
}
