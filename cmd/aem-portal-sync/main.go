package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/handlers"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/services"

	"github.com/ternarybob/arbor"
)

const serviceName = "aem-portal-sync"

func main() {
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		mode           = flag.String("mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
		quiet          = flag.Bool("quiet", false, "Suppress banner output")
		version        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help message")
		validateConfig = flag.Bool("validate", false, "Validate configuration file and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s (build: %s)\n", serviceName, common.GetVersion(), common.GetBuild())
		os.Exit(0)
	}

	if *help {
		showHelp()
		os.Exit(0)
	}

	environment := parseMode(*mode)

	// Load configuration with priority: defaults -> TOML -> environment
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Service.Environment = environment

	if *validateConfig {
		if err := cfg.ValidateWiki(); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	if err := common.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := common.GetLogger()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", environment).
		Msg("Starting AEM Portal Sync Service")

	logger.Info().
		Str("config_path", *configPath).
		Str("sync_interval", cfg.Service.SyncInterval).
		Msg("Configuration loaded")

	if !*quiet {
		common.PrintBanner(serviceName, environment, common.GetLogFilePath())
	}

	logger.Info().Msg("Initializing services...")

	storage, err := services.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize storage")
		os.Exit(1)
	}
	defer storage.Close()

	snapshots, err := services.NewSnapshotCache(&cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize snapshot cache")
		os.Exit(1)
	}
	defer snapshots.Close()

	wsHub := handlers.NewWebSocketHub(logger)
	syncer := services.NewSyncer(cfg, storage, snapshots, wsHub, logger)

	logger.Info().Msg("Services initialized successfully")

	runServerMode(cfg, storage, syncer, wsHub, logger)

	if !*quiet {
		common.PrintShutdownBanner(serviceName)
	}
	logger.Info().Msg("AEM Portal Sync Service shutdown complete")
}

func runServerMode(cfg *common.Config, storage interfaces.Storage, syncer *services.Syncer, wsHub *handlers.WebSocketHub, logger arbor.ILogger) {
	logger.Info().Msg("Starting in server mode")

	webServer, err := services.NewWebServer(cfg, storage, syncer, wsHub, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create web server")
		return
	}

	ctx := context.Background()
	if err := webServer.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start web server")
		return
	}

	logger.Info().
		Int("port", cfg.Service.Port).
		Msg("Web server started successfully")

	scheduler := services.NewScheduler(syncer, cfg.SyncIntervalDuration(), cfg.Service.SyncOnStart, logger)
	scheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("Server running - press Ctrl+C to stop")

	<-sigChan
	logger.Info().Msg("Shutdown signal received")

	scheduler.Stop()

	if err := webServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	logger.Info().Msg("Server mode shutdown complete")
}

func parseMode(mode string) string {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}

func showHelp() {
	fmt.Printf("%s v%s - AEM Component Catalog Wiki Sync\n\n", serviceName, common.GetVersion())
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n\n", os.Args[0])
	fmt.Println("Flags:")
	fmt.Println("  -mode string        Environment mode: 'dev', 'development', 'prod', or 'production' (default \"dev\")")
	fmt.Println("  -config string      Configuration file path")
	fmt.Println("  -quiet              Suppress banner output")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show help message")
	fmt.Println("  -validate           Validate configuration file and exit")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s                                  # Run with scheduled sync\n", os.Args[0])
	fmt.Printf("  %s -mode prod                       # Run in production mode\n", os.Args[0])
	fmt.Printf("  %s -config /path/to/config.toml     # Use custom config file\n", os.Args[0])
	fmt.Println("\nEnvironment overrides: AZURE_DEVOPS_ORG, AZURE_DEVOPS_PROJECT,")
	fmt.Println("AZURE_DEVOPS_WIKI_ID, AZURE_DEVOPS_PAT, DATABASE_PATH, SNAPSHOT_PATH,")
	fmt.Println("LOG_LEVEL, SERVER_PORT, SYNC_INTERVAL")
}
