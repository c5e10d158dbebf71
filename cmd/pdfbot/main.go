package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/pdfbot/core/bootstrap"
	"github.com/m3rciful/pdfbot/core/buildinfo"
	corecmd "github.com/m3rciful/pdfbot/core/cmd"
	coreconfig "github.com/m3rciful/pdfbot/core/config"
	coredatabase "github.com/m3rciful/pdfbot/core/database"
	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/internal/bot"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "pdfbot",
		Short:         "Telegram bot that renders invoices, program PDFs and trade cards",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configPath,
				DefaultConfigPath: defaultConfigPath,
				LoadConfig:        coreconfig.Load,
				Bootstrap:         bootstrapApp,
			})
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (default $CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	return cmd
}

func bootstrapApp(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return bot.New(ctx, cfg, infra), nil
}

func loadConfig(configPath string) (*coreconfig.Config, error) {
	path := corecmd.ResolveConfigPath(configPath, "", defaultConfigPath)
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			out, err := cfg.Redacted()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				return errors.New("database is disabled; set database.enabled or DB_ENABLED")
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()

			if err := coredatabase.RunMigrations(cmd.Context(), cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pdfbot:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
