// Command migrate applies or rolls back the SQL schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down [steps]
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"recuerdamed/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		logger.Error("usage: migrate up|down [steps]")
		os.Exit(1)
	}

	cfg := config.NewConfig()

	databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Database.User), url.QueryEscape(cfg.Database.Password),
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.Database.SSLMode)

	m, err := migrate.New("file://internal/database/migrations", databaseURL)
	if err != nil {
		logger.Error("failed to initialize migrator", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil {
				logger.Error("invalid step count", slog.String("steps", os.Args[2]))
				os.Exit(1)
			}
		}
		err = m.Steps(-steps)
	default:
		logger.Error("unknown command", slog.String("command", os.Args[1]))
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Error("failed to read version", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
