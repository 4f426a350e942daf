// internal/api/handlers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/DLLArchitect/internal/errors"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/render"
	"github.com/Corphon/DLLArchitect/internal/services"
)

// Handler serves the pages and the JSON API.
type Handler struct {
	FormService       *services.FormService
	GenerationService *services.GenerationService
	ExportService     *services.ExportService
	LLMService        *services.LLMService
	ProgressService   *services.ProgressService
	Socket            *ProgressSocket
	Response          *ResponseHelper

	maxUploadBytes int64
	startedAt      time.Time
}

func NewHandler(
	formService *services.FormService,
	generationService *services.GenerationService,
	exportService *services.ExportService,
	llmService *services.LLMService,
	progressService *services.ProgressService,
	socket *ProgressSocket,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		FormService:       formService,
		GenerationService: generationService,
		ExportService:     exportService,
		LLMService:        llmService,
		ProgressService:   progressService,
		Socket:            socket,
		Response:          NewResponseHelper(),
		maxUploadBytes:    maxUploadBytes,
		startedAt:         time.Now(),
	}
}

// CreateDraft starts a draft with the configured defaults.
func (h *Handler) CreateDraft(c *gin.Context) {
	draft, err := h.FormService.NewDraft()
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, draft)
}

// GetDraft returns a draft.
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.FormService.GetDraft(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft)
}

// UpdateDraft replaces the text fields named in a JSON object.
func (h *Handler) UpdateDraft(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		h.Response.BadRequest(c, "body must be a JSON object of string fields", err.Error())
		return
	}
	if len(values) == 0 {
		h.Response.BadRequest(c, "no fields to update")
		return
	}

	draft, err := h.FormService.SetFields(c.Param("id"), values)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft)
}

// UploadDraftFile attaches a multipart "file" to a file slot.
func (h *Handler) UploadDraftFile(c *gin.Context) {
	draft, err := h.attachUpload(c)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft)
}

// DeleteDraftFile clears a file slot.
func (h *Handler) DeleteDraftFile(c *gin.Context) {
	draft, err := h.FormService.RemoveFile(c.Param("id"), c.Param("field"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft)
}

// GenerateDraft runs the generation synchronously and returns the updated draft.
func (h *Handler) GenerateDraft(c *gin.Context) {
	draft, err := h.GenerationService.GenerateDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft, "Daily Lesson Log generated")
}

// ResetDraft drops the generated plan and keeps the form input.
func (h *Handler) ResetDraft(c *gin.Context) {
	draft, err := h.FormService.Reset(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, draft)
}

// RenderDraft returns the rendered log of a generated draft.
func (h *Handler) RenderDraft(c *gin.Context) {
	draft, err := h.FormService.GetDraft(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	if !draft.HasPlan() {
		h.Response.Error(c, http.StatusConflict, ErrorConflict, "Generate the Daily Lesson Log first.")
		return
	}
	out, err := render.RenderDLL(draft.Plan, draft.Input)
	if err != nil {
		h.Response.InternalError(c, "failed to render the Daily Lesson Log")
		return
	}
	h.Response.Success(c, gin.H{"html": out})
}

// ExportDraft returns one export as JSON; format is doc, clipboard or print.
func (h *Handler) ExportDraft(c *gin.Context) {
	draft, err := h.FormService.GetDraft(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	var result *models.ExportResult
	switch format := strings.ToLower(c.DefaultQuery("format", models.ExportFormatDoc)); format {
	case models.ExportFormatDoc:
		result, err = h.ExportService.ExportDoc(draft)
	case models.ExportFormatClipboard:
		result, err = h.ExportService.ExportClipboard(draft)
	case models.ExportFormatPrint:
		result, err = h.ExportService.PrintView(draft)
	default:
		h.Response.Error(c, http.StatusBadRequest, ErrorExportFormatInvalid,
			"unsupported export format: "+format, "supported formats: doc, clipboard, print")
		return
	}
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// GetLLMStatus reports whether generation can run.
func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()
	status := gin.H{
		"ready":    ready,
		"status":   state,
		"provider": h.LLMService.GetProviderName(),
		"model":    h.LLMService.GetDefaultModel(),
	}
	if !ready {
		status["help"] = services.MissingCredentialHelp
	}
	h.Response.Success(c, status)
}

// GetLLMModels lists the models the configured key can use.
func (h *Handler) GetLLMModels(c *gin.Context) {
	available, err := h.LLMService.ListModels(c.Request.Context())
	if err != nil {
		h.Response.Error(c, http.StatusServiceUnavailable, ErrorLLMServiceUnavailable, "could not list models", err.Error())
		return
	}
	h.Response.Success(c, gin.H{"models": available, "default": h.LLMService.GetDefaultModel()})
}

// Health is the liveness check. A missing API key is reported, not fatal.
func (h *Handler) Health(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": ready,
		"llm":       state,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// GetWebSocketStatus reports progress socket connections.
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.Socket.Status())
}

// DraftProgressSocket streams generation progress for an existing draft.
func (h *Handler) DraftProgressSocket(c *gin.Context) {
	if _, err := h.FormService.GetDraft(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Socket.Serve(c)
}

// attachUpload reads the multipart "file" part into the :field slot.
func (h *Handler) attachUpload(c *gin.Context) (*models.Draft, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		return nil, uploadError(err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, uploadError(err)
	}
	defer f.Close()

	return h.FormService.AttachFile(c.Param("id"), c.Param("field"), header.Filename,
		header.Header.Get("Content-Type"), f)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewValidationError(fmt.Sprintf("upload is larger than %d bytes", tooLarge.Limit), err)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return apperrors.NewValidationError("choose a file to upload", err)
	}
	return apperrors.NewValidationError("could not read the uploaded file", err)
}
