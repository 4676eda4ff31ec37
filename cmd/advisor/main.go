package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"service-advisor/internal/app"
	"service-advisor/internal/config"
	"service-advisor/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile    string
	logOptions = log.NewOptions()

	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "advisor",
		Short: "Vehicle maintenance status and service advice",
		Long: `advisor evaluates a vehicle's service history against the built-in
interval catalog and asks an advisory provider for indicative intervals.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("log.level") {
				logOptions.Level = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log.format") {
				logOptions.Format = cfg.Log.Format
			}
			logger, err = log.New(logOptions)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file.")
	logOptions.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(adviseCmd)
	rootCmd.AddCommand(intervalsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(vehiclesCmd)
	rootCmd.AddCommand(historyCmd)
}

// withApp connects to the backing stores for the duration of fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close connections", zap.Error(err))
		}
	}()
	return fn(a)
}
