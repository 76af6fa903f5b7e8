package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"wasteboard/infrastructure/sqlite"
)

// openDB opens the configured database and brings its schema up to date.
// Without sqlite.migrations_dir the migrations compiled into the binary are used.
func openDB(ctx context.Context) (*sqlite.DB, error) {
	db, err := sqlite.Open(cfg.SQLite.Path, sqlite.Options{ReadConns: cfg.SQLite.ReadConns})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dir := strings.TrimSpace(cfg.SQLite.MigrationsDir); dir != "" {
		resolved, err := resolveMigrationsDir(dir)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		err = sqlite.ApplyMigrations(ctx, db, resolved)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		slog.Debug("migrations applied", slog.String("dir", resolved))
		return db, nil
	}
	if err := sqlite.ApplyEmbeddedMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return db, nil
}

// resolveMigrationsDir accepts dir relative to the working directory or to the repo root
// two levels up, so the binary also works when started from cmd/wasteboard.
func resolveMigrationsDir(dir string) (string, error) {
	candidates := []string{dir}
	if !filepath.IsAbs(dir) {
		candidates = append(candidates, filepath.Join("..", "..", dir))
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		tried = append(tried, absPath)

		info, err := os.Stat(absPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("migrations dir not found; tried: %s", strings.Join(tried, ", "))
}
