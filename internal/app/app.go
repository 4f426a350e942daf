// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/DLLArchitect/internal/api"
	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/di"
	// registers the "google" provider
	_ "github.com/Corphon/DLLArchitect/internal/llm/providers/google"
	"github.com/Corphon/DLLArchitect/internal/observability"
	"github.com/Corphon/DLLArchitect/internal/services"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

const (
	progressSweepInterval = 5 * time.Minute
	progressMaxAge        = 30 * time.Minute
)

// App owns the wired services and the HTTP server.
type App struct {
	config    *config.Config
	container *di.Container
	handler   *api.Handler
	router    *api.Router
	server    *http.Server

	tracingShutdown func(context.Context) error
	stopChan        chan struct{}
}

// InitServices registers every service in c in dependency order.
func InitServices(cfg *config.Config, c *di.Container) error {
	files, err := storage.NewFileStorage(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("init file storage: %w", err)
	}
	drafts, err := storage.NewDraftStore(files)
	if err != nil {
		return fmt.Errorf("init draft store: %w", err)
	}

	metrics := utils.GetMetricsCollector()
	locks := services.NewLockManager()
	progress := services.NewProgressService()
	llmService := services.NewLLMService(cfg.LLM)

	var exportFiles *storage.FileStorage
	if cfg.Storage.SaveExports {
		exportFiles = files
	}

	c.Register(di.Config, cfg)
	c.Register(di.Files, files)
	c.Register(di.Drafts, drafts)
	c.Register(di.Metrics, metrics)
	c.Register(di.Locks, locks)
	c.Register(di.Progress, progress)
	c.Register(di.LLM, llmService)
	c.Register(di.Form, services.NewFormService(drafts, locks, cfg.Form))
	c.Register(di.Generation, services.NewGenerationService(llmService, drafts, locks, progress, metrics, cfg.LLM.MaxConcurrent))
	c.Register(di.Export, services.NewExportService(exportFiles, metrics))
	return nil
}

// BuildHandler resolves the API handler's dependencies from c.
func BuildHandler(cfg *config.Config, c *di.Container) (*api.Handler, error) {
	if err := c.Require(di.Form, di.Generation, di.Export, di.LLM, di.Progress); err != nil {
		return nil, err
	}
	progress := di.MustResolve[*services.ProgressService](c, di.Progress)
	return api.NewHandler(
		di.MustResolve[*services.FormService](c, di.Form),
		di.MustResolve[*services.GenerationService](c, di.Generation),
		di.MustResolve[*services.ExportService](c, di.Export),
		di.MustResolve[*services.LLMService](c, di.LLM),
		progress,
		api.NewProgressSocket(progress, cfg.CORS.AllowedOrigins),
		cfg.Form.MaxUploadBytes,
	), nil
}

// New wires the services, tracing and routes for cfg. The logger must already
// be initialised.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)

	shutdown, err := observability.InitTracing(ctx, observability.TracingOptions{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	container := di.NewContainer()
	if err := InitServices(cfg, container); err != nil {
		return nil, err
	}
	handler, err := BuildHandler(cfg, container)
	if err != nil {
		return nil, err
	}
	router, err := api.SetupRouter(api.RouterConfig{
		Handler: handler,
		Metrics: di.MustResolve[*utils.MetricsCollector](container, di.Metrics),
		Config:  cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("setup router: %w", err)
	}

	return &App{
		config:    cfg,
		container: container,
		handler:   handler,
		router:    router,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router.Engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracingShutdown: shutdown,
		stopChan:        make(chan struct{}),
	}, nil
}

// Container exposes the wired services.
func (a *App) Container() *di.Container { return a.container }

// Engine is the gin engine, for tests.
func (a *App) Engine() *gin.Engine { return a.router.Engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	go a.sweepProgress()

	errCh := make(chan error, 1)
	go func() {
		utils.GetLogger().Info("server listening", map[string]interface{}{
			"addr":      a.server.Addr,
			"llm_ready": a.handler.LLMService.IsReady(),
		})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.stop()
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
	}

	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the server, the background sweeps and the tracer.
func (a *App) Shutdown(ctx context.Context) error {
	utils.GetLogger().Info("shutting down", nil)
	a.stop()
	a.router.Close(a.handler)

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.tracingShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) stop() {
	select {
	case <-a.stopChan:
	default:
		close(a.stopChan)
	}
}

func (a *App) sweepProgress() {
	progress := di.MustResolve[*services.ProgressService](a.container, di.Progress)
	ticker := time.NewTicker(progressSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := progress.CleanupFinished(progressMaxAge); n > 0 {
				utils.GetLogger().Debug("progress trackers removed", map[string]interface{}{"count": n})
			}
		case <-a.stopChan:
			return
		}
	}
}
