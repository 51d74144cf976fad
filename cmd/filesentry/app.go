package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"filesentry/internal/api"
	"filesentry/internal/config"
	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"
	"filesentry/internal/notify"
	"filesentry/internal/pipeline"
	"filesentry/internal/queue"
	"filesentry/internal/scoring"
	"filesentry/internal/watcher"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// app owns every long-running component of one filesentry process.
type app struct {
	logger   *logging.Logger
	registry *metrics.Registry
	queue    *queue.Queue[event.Normalized]
	watcher  *watcher.PathWatcher
	pipeline *pipeline.Pipeline
	manager  *notify.Manager
	bus      *event.Bus[event.Scored]
	server   *http.Server
}

// newApp wires the components described by cfg. Errors here are
// configuration errors: nothing has been started yet.
func newApp(cfg config.Config, roots []string, out io.Writer, logger *logging.Logger) (*app, error) {
	registry := metrics.New()
	engine, err := scoring.NewEngine(cfg.ScoringConfig())
	if err != nil {
		return nil, err
	}
	eventQueue := queue.New[event.Normalized](cfg.Watch.QueueCapacity)

	manager := notify.NewManager(notify.ManagerOptions{
		DefaultLevel: cfg.DefaultLevel(),
		Logger:       logger,
		Metrics:      registry,
	})
	if cfg.Notify.Console.Enabled {
		console := notify.NewConsoleSink(notify.ConsoleOptions{
			Output:      out,
			IncludeJSON: cfg.Notify.Console.IncludeJSON,
			Color:       cfg.Notify.Console.Color && isTerminal(out),
		})
		if err := manager.Register("console", console, cfg.ConsoleLevel()); err != nil {
			return nil, err
		}
	}
	if cfg.Notify.Matrix.Enabled {
		matrix, err := notify.NewMatrixSink(cfg.MatrixSinkConfig())
		if err != nil {
			return nil, err
		}
		if err := manager.Register("matrix", matrix, cfg.MatrixLevel()); err != nil {
			return nil, err
		}
	}

	a := &app{
		logger:   logger,
		registry: registry,
		queue:    eventQueue,
		manager:  manager,
	}
	if cfg.Server.Addr != "" {
		a.bus = event.NewBus[event.Scored](context.Background(), event.BusOptions{
			Name:     "scored_events",
			Registry: registry,
			Logger:   logger,
		})
		if err := manager.Register("stream", notify.NewStreamSink(a.bus), 0); err != nil {
			return nil, err
		}
		a.server = &http.Server{
			Addr: cfg.Server.Addr,
			Handler: api.NewRouter(api.Options{
				Bus:            a.bus,
				Metrics:        registry,
				Logger:         logger,
				AuthToken:      cfg.Server.Token,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}),
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	a.watcher, err = watcher.New(watcher.Options{
		Roots:             roots,
		Recursive:         cfg.Watch.Recursive,
		IgnoreDirectories: cfg.Watch.IgnoreDirectories,
		Debounce:          cfg.Debounce(),
		DebounceCapacity:  cfg.Watch.DebounceCapacity,
		Queue:             eventQueue,
		Logger:            logger,
		Metrics:           registry,
	})
	if err != nil {
		return nil, err
	}
	a.pipeline, err = pipeline.New(pipeline.Options{
		Queue:   eventQueue,
		Engine:  engine,
		Manager: manager,
		Logger:  logger,
		Metrics: registry,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Run starts the watcher, the pipeline and the optional API server and
// blocks until ctx is cancelled or a component fails. Shutdown stops the
// watcher first so the pipeline drains a queue that no longer grows.
func (a *app) Run(ctx context.Context) error {
	if err := a.watcher.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	a.logger.Info("watching", map[string]string{
		"roots": fmt.Sprint(a.watcher.Roots()),
		"sinks": fmt.Sprint(len(a.manager.Registrations())),
	})

	group, groupCtx := errgroup.WithContext(ctx)
	pipelineCtx, stopPipeline := context.WithCancel(context.WithoutCancel(groupCtx))
	defer stopPipeline()
	pipelineDone := make(chan struct{})

	group.Go(func() error {
		defer close(pipelineDone)
		return a.pipeline.Run(pipelineCtx)
	})
	if a.server != nil {
		group.Go(func() error {
			a.logger.Info("api listening", map[string]string{"addr": a.server.Addr})
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.shutdownCoordinator(stopPipeline, pipelineDone).Run(shutdownCtx)
	})
	return group.Wait()
}

func (a *app) shutdownCoordinator(stopPipeline context.CancelFunc, pipelineDone <-chan struct{}) *shutdownCoordinator {
	coordinator := newShutdownCoordinator(a.logger)
	coordinator.Add("watcher", func(context.Context) error {
		return a.watcher.Stop()
	})
	coordinator.Add("pipeline", func(ctx context.Context) error {
		stopPipeline()
		select {
		case <-pipelineDone:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("pipeline drain: %w", ctx.Err())
		}
	})
	if a.server != nil {
		coordinator.Add("api", func(ctx context.Context) error {
			return a.server.Shutdown(ctx)
		})
	}
	if a.bus != nil {
		coordinator.Add("event bus", func(context.Context) error {
			a.bus.Close()
			return nil
		})
	}
	return coordinator
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(file.Fd())
}
