package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/normanking/vmcbridge/internal/audio"
	"github.com/normanking/vmcbridge/internal/config"
	"github.com/normanking/vmcbridge/internal/logging"
	"github.com/normanking/vmcbridge/internal/player"
	"github.com/normanking/vmcbridge/internal/server"
	"github.com/normanking/vmcbridge/internal/vmc"
)

func main() {
	var (
		listDevices = flag.Bool("list-devices", false, "list playback devices and exit")
		testTone    = flag.Bool("test", false, "queue a test tone on startup")
		port        = flag.Int("port", 0, "override API server port")
		vmcPort     = flag.Int("vmc-port", 0, "override VMC lip sync port")
		configDir   = flag.String("config-dir", "", "override config directory")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *vmcPort != 0 {
		cfg.LipSync.Port = *vmcPort
	}

	logs, err := logging.New(logging.Config{
		Dir:     cfg.Log.Dir,
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()
	logger := logs.Log

	output, err := audio.NewOutput(cfg.Audio.OutputDevice, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Audio backend unavailable")
		os.Exit(1)
	}
	defer output.Close()

	if *listDevices {
		devices, err := output.Devices()
		if err != nil {
			logger.Error().Err(err).Msg("Device enumeration failed")
			os.Exit(1)
		}
		fmt.Println("Available playback devices:")
		for _, d := range devices {
			marker := ""
			if d.IsDefault {
				marker = " (default)"
			}
			fmt.Printf("  %s%s\n", d.Name, marker)
		}
		return
	}

	tx := vmc.NewClient(cfg.LipSync.Host, cfg.LipSync.Port, cfg.LipSync.Enabled, logger)
	engine := player.NewEngine(cfg, output, tx, tx.Enabled(), tx.Port(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)

	if *testTone {
		engine.PlayTone()
	}

	logger.Info().
		Str("device", output.DeviceName()).
		Int("vmc_port", cfg.LipSync.Port).
		Bool("lipsync", cfg.LipSync.Enabled).
		Msg("VMC bridge starting")

	srv := server.New(engine, cfg.Server, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("API server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}
