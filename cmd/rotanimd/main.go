// rotanimd runs animated objects from a model file and serves their state
// over a JSON-RPC/WebSocket telemetry API and a Prometheus endpoint.
//
// Usage:
//
//	rotanimd -config ~/carrier.cfg [options]
//
// Options:
//
//	-config string     Model and daemon configuration file (required)
//	-telemetry string  Telemetry API address (overrides [telemetry] address)
//	-metrics string    Metrics address, "off" to disable (overrides [metrics])
//	-tick duration     Integration step (overrides [host] tick)
//	-logfile string    Also log to a rotating file
//	-loglevel string   DEBUG, INFO, WARN or ERROR
//
// Model sections ([submodel], [animation], [object]) are re-applied when the
// file changes. YAML model files are loaded once.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"rotanim/pkg/config"
	"rotanim/pkg/host"
	"rotanim/pkg/log"
	"rotanim/pkg/metrics"
	"rotanim/pkg/reactor"
	"rotanim/pkg/telemetry"
)

var logger = log.GetLogger("rotanimd")

func main() {
	configFile := flag.String("config", "", "Model and daemon configuration file (required)")
	telemetryAddr := flag.String("telemetry", "", "Telemetry API address")
	metricsAddr := flag.String("metrics", "", "Metrics address, \"off\" to disable")
	tick := flag.Duration("tick", 0, "Integration step")
	logFile := flag.String("logfile", "", "Also log to a rotating file")
	logLevel := flag.String("loglevel", "", "DEBUG, INFO, WARN or ERROR")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	root := log.Default()
	if *logLevel != "" {
		root.SetLevel(log.ParseLevel(*logLevel))
	}
	if *logFile != "" {
		fw, err := log.AttachFile(root, log.RotationConfig{Filename: *logFile, Compress: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer fw.Close()
	}

	if err := run(*configFile, overrides{
		telemetry: *telemetryAddr,
		metrics:   *metricsAddr,
		tick:      *tick,
	}); err != nil {
		logger.WithError(err).Error("rotanimd failed")
		os.Exit(1)
	}
}

// overrides are flag values that win over the config file.
type overrides struct {
	telemetry string
	metrics   string
	tick      time.Duration
}

func (o overrides) apply(s *settings) {
	if o.telemetry != "" {
		s.telemetry.cfg.Addr = o.telemetry
		s.telemetry.enabled = true
	}
	switch {
	case strings.EqualFold(o.metrics, "off"):
		s.metrics.enabled = false
	case o.metrics != "":
		s.metrics.addr = o.metrics
		s.metrics.enabled = true
	}
	if o.tick > 0 {
		s.host.cfg.Tick = o.tick
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func run(path string, ov overrides) error {
	var (
		cfg   *config.Config
		model *config.Model
		err   error
	)
	if isYAML(path) {
		cfg = config.New()
		model, err = config.LoadYAMLFile(path)
	} else {
		cfg, err = config.Load(path)
		if err == nil {
			model, err = config.ModelFromConfig(cfg)
		}
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	registry := newRegistry()
	s, err := loadSettings(registry, cfg)
	if err != nil {
		return err
	}
	ov.apply(s)
	if unused := cfg.GetUnusedSections(); len(unused) > 0 {
		logger.WithField("sections", unused).Warn("ignoring unknown sections")
	}

	r := reactor.New(nil)
	root := log.Default()
	root.SetSimClock(r.Monotonic)

	met := metrics.NewAnimMetrics()
	h, err := host.New(r, model, s.host.cfg, met)
	if err != nil {
		return fmt.Errorf("build objects: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	errCh := make(chan error, 2)

	var api *telemetry.Server
	if s.telemetry.enabled {
		api = telemetry.New(h, s.telemetry.cfg)
		s.telemetry.server = api
		h.AddSink(api)
		go func() {
			if err := api.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var ms *metrics.Server
	if s.metrics.enabled {
		mcfg := metrics.DefaultServerConfig()
		mcfg.Address = s.metrics.addr
		mcfg.Username = s.metrics.username
		mcfg.Password = s.metrics.password
		mcfg.Ready = h.Ready
		ms = metrics.NewServer(met, mcfg)
		go func() {
			if err := <-ms.StartAsync(); err != nil {
				errCh <- err
			}
		}()
	}

	h.Start()
	r.Run()

	if !isYAML(path) {
		rm := config.NewReloadManager(registry, cfg, path)
		rm.SetCallbacks(nil, func(newCfg *config.Config, results []config.ReloadResult) {
			onReload(ctx, h, rm, newCfg, results)
		})
		go rm.Watch(ctx, time.Second, func(err error) {
			logger.WithError(err).Warn("config reload failed")
		})
	}

	logger.WithFields(log.Fields{
		"config":    path,
		"objects":   len(model.Objects),
		"parts":     len(model.Parts),
		"telemetry": s.telemetry.enabled,
		"metrics":   s.metrics.enabled,
	}).Info("rotanimd ready")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}

	h.Stop()
	if api != nil {
		api.Stop()
	}
	if ms != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		ms.Shutdown(sctx)
		scancel()
	}
	r.End()
	r.Wait()
	return runErr
}

func onReload(ctx context.Context, h *host.Host, rm *config.ReloadManager, cfg *config.Config, results []config.ReloadResult) {
	changed := make([]string, 0, len(results))
	for _, res := range results {
		changed = append(changed, res.Section)
		if res.Error != nil {
			logger.WithField("section", res.Section).WithError(res.Error).Warn("section reload failed")
		}
	}
	if stale := rm.HasNonReloadableChanges(changed); len(stale) > 0 {
		logger.WithField("sections", stale).Warn("changes take effect after restart")
	}
	if !config.ModelChanged(results) {
		return
	}
	model, err := config.ModelFromConfig(cfg)
	if err != nil {
		logger.WithError(err).Warn("model reload rejected")
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.ApplyModel(cctx, model); err != nil {
		logger.WithError(err).Warn("model reload rejected")
		return
	}
	logger.WithField("parts", len(model.Parts)).Info("model reloaded")
}
