package main

import (
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/zoreu/tabledb/internal/config"
	"github.com/zoreu/tabledb/internal/logging"
	"github.com/zoreu/tabledb/internal/registry"
	"github.com/zoreu/tabledb/internal/repl"
	"github.com/zoreu/tabledb/internal/server"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to YAML config file")
		serve      = pflag.Bool("serve", false, "run the HTTP server instead of the REPL")
		port       = pflag.Int("port", 0, "HTTP port (overrides config)")
		debug      = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if *debug || cfg.Server.Debug {
		level = slog.LevelDebug
	}
	logger, closeFn := logging.SetupLogger(level, cfg.Logging.SeqURL)
	defer closeFn()
	slog.SetDefault(logger)

	reg := registry.New()

	if *serve {
		slog.Info("starting tabledb server", "port", cfg.Server.Port)
		srv := server.New(reg, cfg.Cache.DefaultCapacity)
		if err := srv.Start(cfg.Server.Port); err != nil {
			slog.Error("server failed", "error", err)
			closeFn()
			os.Exit(1)
		}
		return
	}

	if err := repl.Start(reg, cfg.Cache.DefaultCapacity); err != nil {
		slog.Error("repl failed", "error", err)
		closeFn()
		os.Exit(1)
	}
}
