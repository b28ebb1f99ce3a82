package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	app "github.com/rocketscienceinc/tictactoe-udp/internal"
	"github.com/rocketscienceinc/tictactoe-udp/internal/config"
)

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
// An optional PORT argument overrides the configured UDP port.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	applyArgs(conf, os.Args[1:])
	logger := initLogger(conf)

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

// apply command line arguments.
func applyArgs(conf *config.Config, args []string) {
	if len(args) > 1 {
		panic(fmt.Errorf("usage: %s [PORT]", filepath.Base(os.Args[0])))
	}

	if len(args) == 0 {
		return
	}

	port, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil || port == 0 {
		panic(fmt.Errorf("could not parse port %q", args[0]))
	}

	conf.UDP.Port = args[0]
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
