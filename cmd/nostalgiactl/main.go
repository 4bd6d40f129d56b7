// Command nostalgiactl is the operator CLI. It reads and writes the
// configuration collection the server keeps rotating secrets in.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/config"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// opener connects to the configured database and returns the configuration
// service over it plus a release function.
type opener func(ctx context.Context) (*services.ConfigurationService, func(context.Context) error, error)

func openFromEnv(ctx context.Context) (*services.ConfigurationService, func(context.Context) error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseBackend == "memory" {
		return nil, nil, fmt.Errorf("DATABASE_BACKEND=memory has nothing to manage")
	}
	stores, closeFn, err := store.Open(ctx, cfg.DatabaseBackend, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	return services.NewConfigurationService(stores.Configurations, stores.Tx), closeFn, nil
}

func newRootCmd(open opener) *cobra.Command {
	var timeout time.Duration

	withConfigs := func(cmd *cobra.Command, fn func(ctx context.Context, configs *services.ConfigurationService) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		configs, closeFn, err := open(ctx)
		if err != nil {
			return err
		}
		defer closeFn(context.Background())
		return fn(ctx, configs)
	}

	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfigs(cmd, func(ctx context.Context, configs *services.ConfigurationService) error {
				value, err := configs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Set one or more configuration values",
		Long: `Set one or more configuration values in a single transaction.
Either every pair is written or none is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(args)
			if err != nil {
				return err
			}
			return withConfigs(cmd, func(ctx context.Context, configs *services.ConfigurationService) error {
				if err := configs.SetConfigurations(ctx, pairs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d key(s)\n", len(pairs))
				return nil
			})
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage runtime configuration",
	}
	configCmd.AddCommand(getCmd, setCmd)

	rootCmd := &cobra.Command{
		Use:           "nostalgiactl",
		Short:         "Operator tooling for the nostalgia server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")
	rootCmd.AddCommand(configCmd)
	return rootCmd
}

func parsePairs(args []string) ([]models.ConfigurationPair, error) {
	pairs := make([]models.ConfigurationPair, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%q is not KEY=VALUE", arg)
		}
		pairs = append(pairs, models.ConfigurationPair{Key: strings.TrimSpace(key), Value: value})
	}
	return pairs, nil
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
