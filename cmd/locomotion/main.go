// locomotion generates one animation from a scene file.
//
// Usage:
//
//	locomotion -scene walk.json -out walk.anim.json
//	locomotion -scene walk.json -stub            # zero-output model, no server
//	locomotion -watch ws://localhost:8181/ws/progress
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-locomotion/internal/config"
	"github.com/teslashibe/go-locomotion/internal/log"
	"github.com/teslashibe/go-locomotion/pkg/anim"
	"github.com/teslashibe/go-locomotion/pkg/codec"
	"github.com/teslashibe/go-locomotion/pkg/hub"
	"github.com/teslashibe/go-locomotion/pkg/inference"
	"github.com/teslashibe/go-locomotion/pkg/locomotion"
	"github.com/teslashibe/go-locomotion/pkg/web"
)

func main() {
	scenePath := flag.String("scene", "", "Scene file (skeleton, seed animation, control path)")
	configPath := flag.String("config", "", "YAML config file")
	outPath := flag.String("out", "", "Output animation file (default stdout)")
	modelURL := flag.String("model-url", "", "Model server URL (overrides config)")
	modelName := flag.String("model", "", "Model name on the server (overrides config)")
	preset := flag.String("preset", "", "Controller preset for the blend knobs: default, responsive or natural")
	stub := flag.Bool("stub", false, "Use a zero-output model instead of a server")
	watch := flag.String("watch", "", "Stream progress from a server's websocket URL instead of generating")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	if *watch != "" {
		if *debug {
			log.Init("debug")
		}
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := watchProgress(ctx, *watch); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "usage: locomotion -scene <file> [-out <file>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *modelURL != "" {
		cfg.Model.URL = *modelURL
	}
	if *modelName != "" {
		cfg.Model.Name = *modelName
	}
	if *preset != "" {
		if cfg.Controller, err = locomotion.Preset(*preset, cfg.Controller); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(2)
		}
	}

	log.Init(cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *scenePath, *outPath, *stub); err != nil {
		log.Error("generation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.File, scenePath, outPath string, stub bool) error {
	scene, err := anim.LoadScene(scenePath)
	if err != nil {
		return err
	}
	log.Info("scene loaded",
		"bones", scene.Skeleton.NumBones(),
		"seed_frames", scene.Animation.DurationFrames,
		"control_points", scene.ControlPath.Len(),
	)

	var model inference.Model
	if stub {
		model = inference.NewMock(codec.DefaultLayout(scene.Skeleton.NumBones()).OutputSize())
		log.Warn("using stub model, output will not animate joints")
	} else {
		model, err = config.NewModel(cfg.Model, log.L())
		if err != nil {
			return err
		}
	}
	defer model.Close()

	ctrl := locomotion.New(model, cfg.Controller, locomotion.WithLogger(log.L()))
	if err := ctrl.SetSkeleton(scene.Skeleton); err != nil {
		return err
	}
	if err := ctrl.SetAnimation(scene.Animation); err != nil {
		return err
	}
	if err := ctrl.SetControlPath(scene.ControlPath); err != nil {
		return err
	}

	start := time.Now()
	out, err := ctrl.Generate(ctx)
	if err != nil {
		return err
	}

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := anim.WriteAnimation(w, out); err != nil {
		return err
	}

	log.Info("✅ animation written",
		"frames", out.DurationFrames,
		"bones", len(out.Bones),
		"duration", out.Duration(),
		"elapsed", time.Since(start),
		"out", outPath,
	)
	return nil
}

// watchProgress logs every event a server publishes.
func watchProgress(ctx context.Context, url string) error {
	log.Info("watching progress", "url", url)
	return web.WatchProgress(ctx, url, func(ev hub.Event) error {
		switch ev.Type {
		case hub.EventProgress:
			var p locomotion.Progress
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				return err
			}
			log.Debug("progress", "run_id", ev.RunID, "frame", p.Frame+1, "total", p.Total, "root", p.Root.Position)
		case hub.EventFailed:
			log.Warn("run failed", "run_id", ev.RunID, "error", ev.Error)
		default:
			log.Info("run "+string(ev.Type), "run_id", ev.RunID)
		}
		return nil
	})
}
