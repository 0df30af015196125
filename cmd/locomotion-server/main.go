// locomotion-server serves animation generation over HTTP with live
// progress on a websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-locomotion/internal/config"
	"github.com/teslashibe/go-locomotion/internal/log"
	"github.com/teslashibe/go-locomotion/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	log.Init(cfg.Log.Level)

	model, err := config.NewModel(cfg.Model, log.L())
	if err != nil {
		log.Error("failed to create model client", "error", err)
		os.Exit(1)
	}
	defer model.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := model.Health(ctx); err != nil {
		log.Warn("model server not ready, serving anyway", "url", cfg.Model.URL, "error", err)
	}

	srv := web.NewServer(model, cfg.Controller,
		web.WithPort(cfg.Server.Port),
		web.WithLogger(log.L()),
	)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server shut down")
}
