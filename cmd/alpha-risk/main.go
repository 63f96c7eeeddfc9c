package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/MagicKrazik/ALPHA/internal/app"
	"github.com/MagicKrazik/ALPHA/internal/catalog"
	"github.com/MagicKrazik/ALPHA/internal/common/logger"
	"github.com/MagicKrazik/ALPHA/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "alpha-risk"

func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "ALPHA perioperative risk engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(recomputeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline consumers, scheduled jobs and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the risk factor and alert rule catalog",
		Long: "Upserts risk factors by name and inserts alert rules that do not exist yet.\n" +
			"Without --file the built-in catalog is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			var (
				cat *catalog.Catalog
				err error
			)
			if path != "" {
				cat, err = catalog.LoadFile(path)
			} else {
				cat, err = catalog.Default()
			}
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				result, err := a.Seed(cmd.Context(), cat)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"risk factors: %d created, %d updated\nalert rules: %d created, %d already present\n",
					result.FactorsCreated, result.FactorsUpdated, result.RulesCreated, result.RulesSkipped)
				return nil
			})
		},
	}
	cmd.Flags().String("file", "", "catalog YAML file (default: built-in catalog)")
	return cmd
}

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <case-id>",
		Short: "Queue a risk profile rebuild for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.Recompute(cmd.Context(), args[0])
			})
		},
	}
}

// withApp loads the configuration, connects the application and runs fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(a)
}
