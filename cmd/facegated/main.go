// facegated is the face gate service for the benefits dashboard. It
// exposes enrollment, verification, template management and the
// presence feed over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nirmaltodwal7/facegate/pkg/api"
	"github.com/nirmaltodwal7/facegate/pkg/camera"
	"github.com/nirmaltodwal7/facegate/pkg/config"
	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/gate"
	"github.com/nirmaltodwal7/facegate/pkg/liveness"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/quota"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

const version = "0.1.0"

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("facegated v%s\n", version)
		return
	}

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize file logging: %v\n", err)
	}

	log := logging.Component("main")
	log.Infof("facegated v%s starting", version)

	detector, cleanup, err := buildDetector(cfg)
	if err != nil {
		return fmt.Errorf("initialize detector: %w", err)
	}
	defer cleanup()

	store, storeClose, err := buildTemplateStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize template store: %w", err)
	}
	defer storeClose()

	counters, err := buildCounterStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize quota store: %w", err)
	}

	tracker := quota.NewTracker(counters, cfg.Quota.DailyLimit)
	evaluator := liveness.NewEvaluator(cfg.Liveness.EARThreshold)

	g := gate.New(store, tracker, evaluator, gate.Options{
		MatchThreshold: cfg.Face.MatchThreshold,
		SampleCount:    cfg.Face.SampleCount,
		SampleInterval: cfg.Face.SampleInterval,
		SampleTimeout:  cfg.Face.SampleTimeout,
		Retention:      gate.RetentionPolicy(cfg.Storage.RetentionPolicy),
	})

	hub := api.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var presence *camera.PushSource
	if cfg.Watcher.Enabled {
		presence = camera.NewPushSource(4)
		watcher := camera.NewWatcher(presence, detector, cfg.Watcher.Interval, hub.SetVisible)
		wg.Add(1)
		go func() {
			defer wg.Done()
			watcher.Run(ctx)
		}()
	}

	server := api.NewServer(g, detector, hub, presence, cfg.Face.SampleCount)
	router := api.NewRouter(server, hub, api.RouterOptions{
		APIKey:   cfg.Server.APIKey,
		AdminKey: cfg.Server.AdminKey,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	wg.Wait()
	log.Info("stopped")
	return nil
}

// buildDetector constructs the configured face backend and returns a
// cleanup releasing it.
func buildDetector(cfg *config.Config) (face.Detector, func(), error) {
	switch cfg.Face.Backend {
	case "onnx":
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, nil, fmt.Errorf("onnxruntime init: %w", err)
		}
		det, err := face.NewOnnxDetector(cfg.Face.ModelPath, 0.5)
		if err != nil {
			ort.DestroyEnvironment()
			return nil, nil, err
		}
		cleanup := func() {
			if err := det.Close(); err != nil {
				logging.WithError(err).Warn("closing onnx detector")
			}
			ort.DestroyEnvironment()
		}
		return det, cleanup, nil
	default:
		det := face.NewDlibDetector()
		if err := det.LoadModels(cfg.Face.ModelPath); err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := det.Close(); err != nil {
				logging.WithError(err).Warn("closing dlib detector")
			}
		}
		return det, cleanup, nil
	}
}

// buildTemplateStore constructs the configured template backend.
func buildTemplateStore(cfg *config.Config) (storage.TemplateStore, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		store, err := storage.NewPostgresStore(cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// buildCounterStore constructs the configured quota backend.
func buildCounterStore(cfg *config.Config) (quota.CounterStore, error) {
	switch cfg.Quota.Backend {
	case "redis":
		return quota.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	default:
		return quota.NewMemoryStore(), nil
	}
}
