// Package main is the entry point for the shrub9 window manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/shrub9/internal/config"
	"github.com/jmylchreest/shrub9/internal/daemon"
	"github.com/jmylchreest/shrub9/internal/store"
	"github.com/jmylchreest/shrub9/internal/wm"
	"github.com/jmylchreest/shrub9/internal/x11"
)

// Build-time variables
var (
	version = "dev"
)

func main() {
	displayName := flag.String("display", "", "X display to manage (default: $DISPLAY)")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/shrub9/config.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noDBus := flag.Bool("no-dbus", false, "Do not export the control interface on the session bus")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("shrub9 version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(*displayName, *configPath, !*noDBus, logger))
}

func run(displayName, configPath string, withDBus bool, logger *slog.Logger) int {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		return 1
	}

	conn, err := x11.Open(displayName, cfg.Appearance, logger)
	if err != nil {
		logger.Error("failed to open display", "display", displayName, "error", err)
		return 1
	}

	name := displayName
	if name == "" {
		name = os.Getenv("DISPLAY")
	}
	restartPath, err := store.RestartPath(name)
	if err != nil {
		logger.Warn("layout will not survive restarts", "error", err)
		restartPath = ""
	}

	d, err := daemon.New(cfg, conn, daemon.NewExecSpawner(logger), daemon.Options{
		ConfigPath:  configPath,
		RestartPath: restartPath,
		Version:     version,
		DBus:        withDBus,
		Logger:      logger,
	})
	if err != nil {
		conn.Close()
		logger.Error("failed to create window manager", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting shrub9", "version", version, "config", configPath)
	act, err := d.Run(ctx)
	if err != nil {
		logger.Error("window manager failed", "error", err)
		return 1
	}

	if act == wm.Restart {
		logger.Info("restarting")
		stop()
		if err := daemon.Reexec(); err != nil {
			logger.Error("failed to restart", "error", err)
			return 1
		}
	}

	logger.Info("shrub9 stopped")
	return 0
}
