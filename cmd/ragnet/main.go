// ragnet - versioned game protocol gateway.
//
// ragnet speaks the classic MMO wire protocol across its historical
// revisions: it logs an account in, walks the login/character/map
// server handoff chain, decodes the live packet stream into typed
// events, and exposes the session over a REST API, an interactive CLI,
// and MQTT telemetry. Every decoded event can be persisted to a local
// SQLite journal for later inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/api"
	"github.com/ragnet-project/ragnet/internal/cli"
	"github.com/ragnet-project/ragnet/internal/client"
	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/health"
	"github.com/ragnet-project/ragnet/internal/journal"
	"github.com/ragnet-project/ragnet/internal/scheduler"
	"github.com/ragnet-project/ragnet/internal/session"
	"github.com/ragnet-project/ragnet/internal/telemetry"
	"github.com/ragnet-project/ragnet/internal/util"
)

const (
	AppName    = "ragnet"
	AppVersion = "1.0.0"
	Banner     = `
                                 _
  _ __ __ _  __ _ _ __   ___ __| |_
 | '__/ _' |/ _' | '_ \ / _ \_  __|
 | | | (_| | (_| | | | |  __/ | |_
 |_|  \__,_|\__, |_| |_|\___|  \__|
            |___/              v%s
 Versioned Game Protocol Gateway
`
)

func main() {
	// Print banner
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (will be reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting ragnet")

	// Load configuration
	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Re-initialize logger with config-based settings
	appData := cfg.GetApplicationData()
	logCfg := util.LogConfig{
		Level:      appData.Logging.Level,
		Directory:  appData.Logging.Directory,
		MaxSizeMB:  appData.Logging.MaxSizeMB,
		MaxBackups: appData.Logging.MaxBackups,
		Console:    true,
		Epoch:      cfg.GetGameData().Epoch,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	// Validate configuration
	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}

		if cfg.IsFirstRun() {
			log.Info().Msg("first run detected, launching setup wizard")
			if err := config.RunSetupWizard(cfg); err != nil {
				log.Fatal().Err(err).Msg("setup wizard failed")
			}
		} else {
			log.Fatal().Msg("configuration validation failed, please fix the errors above")
		}
	}

	// Log system info
	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize core components
	eventBus := events.NewBus()

	// Event journal (optional)
	var jnl *journal.Journal
	appData = cfg.GetApplicationData()
	if appData.Journal.Enabled {
		jnl, err = journal.Open(appData.Journal.Path)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open event journal, persistence disabled")
		} else {
			jnl.Attach(eventBus)
			defer jnl.Close()
		}
	}

	// Protocol gateway
	gateway, err := buildGateway(cfg, eventBus)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create protocol gateway")
	}

	// Initialize REST API
	apiServer := api.NewServer(cfg, eventBus, gateway, jnl)

	// Initialize health check manager
	healthMgr := health.NewManager(cfg, eventBus, gateway)

	// Initialize MQTT telemetry
	var mqttHandler *telemetry.MQTTHandler
	if appData.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	// Initialize scheduler
	sched := scheduler.NewScheduler(cfg, eventBus, jnl)

	// Initialize CLI
	cliHandler := cli.NewCLI(cfg, eventBus, gateway, jnl)

	// CLI "quit" and remote shutdown both arrive as a bus event
	shutdownCh := make(chan struct{})
	var shutdownOnce sync.Once
	eventBus.Subscribe(events.EventShutdown, "main.shutdown",
		func(_ context.Context, _ events.Event) error {
			shutdownOnce.Do(func() { close(shutdownCh) })
			return nil
		})

	// ---------------------------------------------------------------
	// Launch all concurrent tasks
	// ---------------------------------------------------------------
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Task 1: Protocol gateway (login -> character -> map session chain)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().
			Str("login_server", cfg.GetGameData().LoginAddress).
			Str("epoch", cfg.GetGameData().Epoch).
			Msg("starting protocol gateway")
		if err := gateway.Run(ctx); err != nil {
			log.Error().Err(err).Msg("protocol gateway failed")
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()

	// Task 2: REST API server (with retry for port binding)
	if appData.API.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Int("port", appData.API.Port).Msg("starting REST API server")
			if err := startWithRetry(ctx, "API server", apiServer.Start, 5); err != nil {
				log.Warn().Err(err).Msg("API server failed after retries (non-fatal)")
			}
		}()
	}

	// Task 3: Health check manager
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting health check manager")
		healthMgr.Start(ctx)
	}()

	// Task 4: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 5: Scheduler (journal pruning, stats)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting task scheduler")
		sched.Start(ctx)
	}()

	// Task 6: Interactive CLI
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive CLI")
		cliHandler.Start(ctx)
	}()

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Cancel the root context to signal all goroutines
	cancel()
	gateway.Close()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	// Stop the event bus last
	eventBus.Stop()

	log.Info().Msg("ragnet stopped")
}

// buildGateway translates the game configuration into gateway options.
func buildGateway(cfg *config.Config, eventBus *events.Bus) (*client.Gateway, error) {
	game := cfg.GetGameData()

	id, err := epoch.Parse(game.Epoch)
	if err != nil {
		return nil, err
	}

	policy, err := session.ParsePolicy(game.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	return client.NewGateway(client.Options{
		Epoch:         id,
		LoginAddr:     game.LoginAddress,
		Username:      game.Username,
		Password:      game.Password,
		ClientVersion: game.ClientVersion,
		ClientType:    game.ClientType,
		RealmIndex:    game.RealmIndex,
		CharSlot:      game.CharSlot,
		Keepalive:     time.Duration(game.KeepaliveSec) * time.Second,
		Policy:        policy,
	}, eventBus)
}

// startWithRetry attempts to start a listener/server with retry on bind
// errors. A fixed 3-second interval gives the OS time to release sockets
// after a previous instance exits.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			time.Sleep(3 * time.Second)
		}
	}
	return lastErr
}
