// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
	"github.com/carterperez-dev/templates/pos-backend/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "posctl",
		Short:        "Operator tooling for the POS admin backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")

	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newIdentityCommand(opts))
	return root
}

func newMigrateCommand(opts *options) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := core.NewDatabase(cmd.Context(), opts.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			if err := migrations.Apply(cmd.Context(), db.Dialect.Driver, opts.cfg.Database.URL, db.DB, opts.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := postgresRunner(opts)
			if err != nil {
				return err
			}
			defer runner.Close() //nolint:errcheck // process exits right after

			if err := runner.Down(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := postgresRunner(opts)
			if err != nil {
				return err
			}
			defer runner.Close() //nolint:errcheck // process exits right after

			st, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	})

	return migrateCmd
}

func postgresRunner(opts *options) (*migrations.Runner, error) {
	if opts.cfg.Database.Driver != core.DriverPostgres {
		return nil, fmt.Errorf("versioned migrations require the postgres driver, got %q", opts.cfg.Database.Driver)
	}
	return migrations.NewRunner(opts.cfg.Database.URL, opts.logger)
}

func printStatus(w io.Writer, st *migrations.Status) {
	fmt.Fprintf(w, "current version: %d\n", st.CurrentVersion)
	fmt.Fprintf(w, "total migrations: %d\n", st.Total)
	if len(st.Pending) == 0 {
		fmt.Fprintln(w, "pending: none")
		return
	}
	fmt.Fprintf(w, "pending: %v\n", st.Pending)
}

func newIdentityCommand(opts *options) *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Inspect and repair identity provider links",
	}

	identityCmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Push every pending tenant id to the identity provider once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			db, err := core.NewDatabase(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			if cfg.Database.AutoMigrate {
				if err := migrations.Apply(ctx, db.Dialect.Driver, cfg.Database.URL, db.DB, opts.logger); err != nil {
					return err
				}
			}

			redis, err := core.NewRedis(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer redis.Close() //nolint:errcheck // process exits right after

			links := identity.NewLinkRepository(db)
			linker := identity.NewLinker(identity.LinkerConfig{
				Links:       links,
				Store:       identity.NewMetadataStore(cfg.Identity),
				Cache:       identity.NewTenantCache(redis, cfg.Identity.CacheTTL),
				MetadataKey: cfg.Identity.MetadataKey,
				Retry:       identity.RetryFromConfig(cfg.Provisioning),
				Logger:      opts.logger,
			})

			res, err := identity.NewReconciler(identity.ReconcilerConfig{
				Links:     links,
				Linker:    linker,
				BatchSize: cfg.Provisioning.ReconcileBatchSize,
				Logger:    opts.logger,
			}).RunOnce(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d synced=%d failed=%d pending=%d parked=%d\n",
				res.Attempted, res.Synced, res.Failed, res.Pending, res.Parked)
			return nil
		},
	})

	return identityCmd
}
