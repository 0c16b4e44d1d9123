package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"icmp-ping/config"
	"icmp-ping/internal/logger"
	"icmp-ping/internal/models"
	"icmp-ping/internal/pinger"
	"icmp-ping/internal/prober"
	"icmp-ping/internal/reporter"
	"icmp-ping/internal/socket"
	"icmp-ping/pkg/utils"
)

// main is the entry point for the ping tool.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	appLogger, closeLogFile, err := logger.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLogFile()
	slog.SetDefault(appLogger)

	appLogger.Debug("Configuration loaded.", "dest", cfg.Dest, "count", cfg.Count,
		"interval", cfg.Interval, "deadline", cfg.Deadline)

	// The cancellation flag is written exactly once, by the signal handler;
	// the probe loop only reads it.
	var cancelled atomic.Bool
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		signal.Stop(sigChan)
		appLogger.Info("Shutdown signal received. Finishing up...", "signal", sig.String())
		cancelled.Store(true)
	}()

	resultsChan := make(chan models.ProbeResult, 16)
	var reporterWg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporterWg.Add(1)
	go reporter.New(ctx, &reporterWg, resultsChan, cfg.Dest, os.Stdout, cfg.OutputFile, appLogger).Run()

	reporter.PrintPreamble(os.Stdout, cfg.Dest, len(cfg.Payload))

	if !cfg.Unprivileged {
		utils.CheckPrivileges(appLogger)
	}

	var stats models.RunStats
	sock, err := socket.Open(cfg.Deadline)
	switch {
	case err == nil:
		defer sock.Close()
		p := prober.New(sock, cfg.Dest, uint16(os.Getpid()), []byte(cfg.Payload), &cancelled, resultsChan, appLogger)
		p.Interval = cfg.Interval
		p.Deadline = cfg.Deadline
		stats = p.Run(cfg.Count)
	case socket.IsPermissionError(err) && cfg.Unprivileged:
		stats, err = pinger.Run(cfg, &cancelled, resultsChan, appLogger)
		if err != nil {
			appLogger.Error("Unprivileged fallback failed.", "error", err)
			os.Exit(1)
		}
	default:
		appLogger.Error("Failed to open raw ICMP socket.", "error", err,
			"hint", "raw sockets need root or CAP_NET_RAW; see -unprivileged")
		os.Exit(1)
	}

	close(resultsChan)
	reporterWg.Wait()

	reporter.PrintSummary(os.Stdout, cfg.Dest, stats)
}
