package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/blockfs/backend"
	"github.com/brettbedarf/blockfs/config"
	"github.com/brettbedarf/blockfs/server"
	"github.com/brettbedarf/blockfs/util"
	"github.com/google/uuid"
)

func main() {
	// Parse command line arguments
	var (
		configPath  string
		backendKind string
		backendRoot string
		verbose     int
		umount      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (yaml or json)")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&backendKind, "backend", "", "Object backend scheme: memory or disk")
	flag.StringVar(&backendKind, "b", "", "--backend (shorthand)")
	flag.StringVar(&backendRoot, "root", "", "Root directory for the disk backend")
	flag.StringVar(&backendRoot, "r", "", "--root (shorthand)")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", 3, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 3, "--verbose (shorthand)")
	flag.Parse()

	// Initialize logger
	if verbose < 1 {
		verbose = 1
	}
	if verbose > 5 {
		verbose = 5
	}
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	logLvl := logLvls[verbose-1]
	util.InitializeLogger(logLvl)
	logger := util.GetLogger("main").With().Str("session", uuid.NewString()).Logger()

	mnt := flag.Arg(0)
	logger.Info().Int("verbose", verbose).Str("mnt", mnt).Msg("blockfs server initializing")
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount {
		cmd := exec.Command("fusermount", "-u", mnt)
		// ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	cfg := config.NewDefaultConfig()
	if configPath != "" {
		loaded, err := config.NewConfigFromFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		cfg = loaded
	}
	cfg.LogLvl = logLvl
	if backendKind != "" {
		cfg.BackendScheme = backendKind
	}
	if backendRoot != "" {
		cfg.BackendRoot = backendRoot
	}

	// Register all built-in backends and open the configured one
	backend.RegisterBuiltins()
	be, err := backend.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("scheme", cfg.BackendScheme).Msg("Failed to open object backend")
	}
	logger.Debug().Str("scheme", cfg.BackendScheme).Msg("Object backend ready")

	fs := server.New(cfg, be)

	// The root directory record must exist before anything can resolve
	if err := fs.Mkdirs(context.Background(), "/"); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize root directory")
	}

	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	if err := fs.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
	} else {
		logger.Info().Msg("Filesystem unmounted successfully")
	}
}
