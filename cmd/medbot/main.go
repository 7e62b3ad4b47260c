package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/msenthi7/medical-chatbot/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "medbot",
		Short:         "Retrieval-augmented medical question answering service",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		// Running the bare binary starts the server
		RunE: serve.RunE,
	}

	root.AddCommand(serve, newAskCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func initLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	var cfg zap.Config
	switch strings.ToLower(envOrDefault("LOG_FORMAT", "json")) {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
