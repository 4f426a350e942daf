// internal/api/router.go
package api

import (
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/utils"
	"github.com/Corphon/DLLArchitect/web"
)

// RouterConfig carries what SetupRouter wires together.
type RouterConfig struct {
	Handler *Handler
	Metrics *utils.MetricsCollector
	Config  *config.Config
}

// Router is the engine plus the resources that need stopping on shutdown.
type Router struct {
	Engine  *gin.Engine
	limiter *RateLimiter
	genRate *RateLimiter
}

// Close stops the rate limiter sweepers and closes progress sockets.
func (r *Router) Close(h *Handler) {
	r.limiter.Stop()
	r.genRate.Stop()
	if h != nil && h.Socket != nil {
		h.Socket.CloseAll()
	}
}

func loadTemplates() (*template.Template, error) {
	return template.New("").ParseFS(web.FS, "templates/*.html")
}

// SetupRouter builds the HTTP routes.
func SetupRouter(rc RouterConfig) (*Router, error) {
	cfg := rc.Config
	h := rc.Handler

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(rc.Metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = cfg.Form.MaxUploadBytes

	limiter := NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
	genRate := NewRateLimiterWithBurst(cfg.RateLimit.GenerationsPerHour, time.Hour, cfg.RateLimit.GenerationBurstSize)

	// Assets, scrapes and debounced autosaves stay outside the per-IP limit.
	r.StaticFS("/static", http.FS(static))
	r.GET("/metrics", rc.Metrics.Handler())
	r.POST("/drafts/:id/fields", h.UpdateFieldsPage)

	limited := r.Group("", limiter.Middleware())

	// pages
	limited.GET("/", h.IndexPage)
	drafts := limited.Group("/drafts/:id")
	{
		drafts.GET("", h.DraftPage)
		drafts.POST("/files/:field", h.UploadFilePage)
		drafts.DELETE("/files/:field", h.RemoveFilePage)
		drafts.POST("/files/:field/delete", h.RemoveFilePage)
		drafts.POST("/generate", genRate.Middleware(), h.GeneratePage)
		drafts.POST("/reset", h.ResetPage)
		drafts.GET("/print", h.PrintPage)
		drafts.GET("/export/doc", h.ExportDocPage)
		drafts.GET("/export/clipboard", h.ExportClipboardPage)
	}

	limited.GET("/ws/drafts/:id", h.DraftProgressSocket)

	api := limited.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/drafts", h.CreateDraft)
		draftAPI := api.Group("/drafts/:id")
		{
			draftAPI.GET("", h.GetDraft)
			draftAPI.PATCH("", h.UpdateDraft)
			draftAPI.POST("/files/:field", h.UploadDraftFile)
			draftAPI.DELETE("/files/:field", h.DeleteDraftFile)
			draftAPI.POST("/generate", genRate.Middleware(), h.GenerateDraft)
			draftAPI.POST("/reset", h.ResetDraft)
			draftAPI.GET("/render", h.RenderDraft)
			draftAPI.GET("/export", h.ExportDraft)
		}

		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", h.GetLLMStatus)
			llmGroup.GET("/models", h.GetLLMModels)
		}

		api.GET("/ws/status", h.GetWebSocketStatus)
	}

	return &Router{Engine: r, limiter: limiter, genRate: genRate}, nil
}
