// Command tomodoroctl runs maintenance tasks against the Tomodoro database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Th3drata/Tomodoro/internal/changefeed"
	"github.com/Th3drata/Tomodoro/internal/database"
	"github.com/Th3drata/Tomodoro/internal/repository"
	"github.com/Th3drata/Tomodoro/internal/services"
	"github.com/Th3drata/Tomodoro/internal/stats"
)

var (
	databaseURL    string
	migrationsPath string
	pool           *pgxpool.Pool
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "tomodoroctl",
		Short:         "Maintenance commands for the Tomodoro server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set (use --database-url)")
			}
			var err error
			pool, err = database.NewPostgresPool(databaseURL)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if pool != nil {
				pool.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", envOr("MIGRATIONS_PATH", "migrations"), "migrations directory")

	rootCmd.AddCommand(migrateCmd(), statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failLine(err))
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusOnly {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				status, err := database.MigrationStatus(ctx, pool, migrationsPath)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderMigrations(status))
				return nil
			}

			applied, err := database.RunMigrations(pool, migrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okLine(fmt.Sprintf("%d migrations applied", len(applied))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "list migrations without applying them")
	return cmd
}

func statsCmd() *cobra.Command {
	var (
		user string
		tz   string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print focus statistics for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			userID, err := resolveUser(ctx, user)
			if err != nil {
				return err
			}

			intervals, err := repository.NewIntervalRepo(pool, changefeed.NewLocal()).ListAll(ctx, userID)
			if err != nil {
				return err
			}

			loc := services.ResolveLocation(tz)
			summary := stats.Compute(intervals, time.Now().In(loc))
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(user, summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id or email")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone for day boundaries (default: local)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func resolveUser(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	u, err := repository.NewUserRepo(pool).GetByEmail(ctx, ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("no user %q: %w", ref, err)
	}
	return u.ID, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
