package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"socket-relay/internal"
	"socket-relay/observability"
	"socket-relay/runtime"
	"socket-relay/runtime/workers"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sys/unix"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay, feeds it until a signal or a fatal runtime error,
// then shuts it down and prints the counters.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// Broken pipes must surface as write errors, not kill the process.
	signal.Ignore(unix.SIGPIPE)

	// 2. Setup Supervision & Orchestration
	stats := observability.NewMonitoringManager()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator, err := runtime.NewOrchestrator(log, sup, stats,
		config.SocketPath, config.MaxPeers, config.BufferLength)
	if err != nil {
		return fmt.Errorf("orchestrator setup failed: %w", err)
	}
	orchestrator.Add(
		workers.NewTickerPublisher(log, orchestrator, config.PublishInterval),
		workers.NewHealthMonitoringWorker(log, orchestrator.Registry(), stats, config.HealthInterval),
	)

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start the relay
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("relay failed to start: %w", err)
	}

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case <-orchestrator.Failed():
		log.Error("Relay core failed, shutting down")
	}

	// 6. Final Cleanup
	stopErr := orchestrator.Stop()
	observability.RenderTable(os.Stdout, stats.GetLatest())
	if stopErr != nil {
		return fmt.Errorf("relay stopped on error: %w", stopErr)
	}
	log.Info("Program stopped cleanly")
	return nil
}
