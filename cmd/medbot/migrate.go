package main

import (
	"context"
	"fmt"

	"github.com/msenthi7/medical-chatbot/config"
	"github.com/msenthi7/medical-chatbot/repositories/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const migrateLongDesc string = `Create the PostgreSQL tables used by the postgres memory backend
and the exchange log. Safe to run more than once.`

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long:  migrateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}
	if cfg.Database.ConnectionString == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	logger.Info("migration complete", zap.String("connection", cfg.Database.LogString()))
	return nil
}
