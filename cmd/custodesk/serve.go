package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/custodesk-dev/custodesk"
	"github.com/custodesk-dev/custodesk/pkg/middleware"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		devMode    bool
		storeKind  string
		dsn        string
		sqlDialect string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the custodesk server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel(devMode),
			}))
			slog.SetDefault(logger)

			store, err := buildStore(storeKind, dsn, sqlDialect)
			if err != nil {
				return err
			}
			defer store.Close()

			app := custodesk.New(custodesk.Config{
				Logger:  logger,
				DevMode: devMode,
				Store:   store,
				Middleware: []func(http.Handler) http.Handler{
					middleware.Prometheus(),
					middleware.OpenTelemetry(),
				},
			})

			return app.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "store backend: memory or sql")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (for --store=sql)")
	cmd.Flags().StringVar(&sqlDialect, "dialect", "sqlite", "SQL dialect: postgres, mysql, or sqlite")
	return cmd
}

func logLevel(devMode bool) slog.Level {
	if devMode {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func buildStore(kind, dsn, dialect string) (storage.Store, error) {
	switch kind {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sql":
		if dsn == "" {
			return nil, fmt.Errorf("--store=sql requires --dsn")
		}
		db, err := sql.Open(driverName(dialect), dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return storage.NewSQLStore(db, storage.WithSQLDialect(sqlDialectOf(dialect))), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

// driverName maps a dialect to its database/sql driver. Only the sqlite
// driver is compiled in; postgres and mysql require building with the
// corresponding driver import.
func driverName(dialect string) string {
	switch dialect {
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite"
	default:
		return "postgres"
	}
}

func sqlDialectOf(dialect string) storage.SQLDialect {
	switch dialect {
	case "mysql":
		return storage.DialectMySQL
	case "sqlite":
		return storage.DialectSQLite
	default:
		return storage.DialectPostgreSQL
	}
}
