package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/hexlet/typoreporter/cmd/typoreporter/modules"
	dbfs "github.com/hexlet/typoreporter/db"
	"github.com/hexlet/typoreporter/internal/config"
	"github.com/hexlet/typoreporter/internal/db"
	"github.com/hexlet/typoreporter/internal/logger"
	"github.com/hexlet/typoreporter/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "typoreporter",
		Short:         "Typo Reporter account pages server",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if configPath != "" {
				_ = os.Setenv("CONFIG_PATH", configPath)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.toml")

	root.AddCommand(newServeCommand(), newMigrateCommand(&configPath), newVersionCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Printf("Starting Typo Reporter %s\n", version.GetInfo())
			fx.New(
				modules.InfraModule,
				modules.DomainModule,
				modules.HandlersModule,
				modules.ServerModule,
				fx.WithLogger(modules.NewFxLogger),
			).Run()
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up [N]|down [N]|version|force N",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(_ *cobra.Command, args []string) error {
			command, err := db.ParseMigrateCommand(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.Init(cfg.Log.Level, cfg.Log.Format)
			source, err := dbfs.Migrations()
			if err != nil {
				return err
			}
			return db.RunMigrate(log, cfg.Postgres, source, command)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("Typo Reporter %s\n", version.GetInfo())
		},
	}
}
