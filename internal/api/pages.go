// internal/api/pages.go
package api

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/DLLArchitect/internal/errors"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/render"
	"github.com/Corphon/DLLArchitect/internal/services"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// formField is one input of the lesson form.
type formField struct {
	Key         string
	Label       string
	Placeholder string
	Value       string
	Rows        int      // > 0 renders a textarea
	Options     []string // non-empty renders a select
}

type formSection struct {
	Title string
	Hint  string
	Class string
	Files []fileSlot
	Rows  [][]formField
}

type fileSlot struct {
	Field  string
	Label  string
	Accept string
	Name   string
}

type draftPage struct {
	Title         string
	Draft         *models.Draft
	Sections      []formSection
	Error         string
	Ready         bool
	ReadyState    string
	PlanHTML      template.HTML
	ContentAreaID string
	Filename      string
}

func gradeOptions() []string {
	opts := make([]string, 0, 13)
	for i := 1; i <= 12; i++ {
		opts = append(opts, "Grade "+strconv.Itoa(i))
	}
	return append(opts, "Kindergarten")
}

func field(in *models.LessonInput, key, label, placeholder string) formField {
	v, _ := in.Get(key)
	return formField{Key: key, Label: label, Placeholder: placeholder, Value: v}
}

func textarea(in *models.LessonInput, key, label, placeholder string, rows int) formField {
	f := field(in, key, label, placeholder)
	f.Rows = rows
	return f
}

func fileName(a *models.Attachment) string {
	if a.IsEmpty() {
		return ""
	}
	return a.Name
}

// formSections lays out the lesson form.
func formSections(in *models.LessonInput) []formSection {
	grade := field(in, "grade_level", "Grade Level", "")
	grade.Options = gradeOptions()

	return []formSection{
		{
			Title: "Lesson Metadata",
			Rows: [][]formField{
				{field(in, "school", "School Name", "Enter school name"), field(in, "teacher", "Teacher Name", "Enter teacher name")},
				{field(in, "teacher_position", "Teacher Position", "e.g. Teacher III")},
				{grade, field(in, "learning_area", "Learning Area", "e.g. Science"),
					field(in, "quarter", "Quarter", "Quarter"), field(in, "week", "Week", "Week")},
				{field(in, "teaching_dates", "Teaching Dates", "e.g. June 23-27, 2025"), field(in, "teaching_time", "Teaching Time", "e.g. 1:00-1:45 PM")},
			},
		},
		{
			Title: "Lesson Exemplar / Reference Material",
			Hint:  "If provided, Gemini will extract the competencies, codes, and activities directly from your exemplar.",
			Class: "exemplar",
			Rows: [][]formField{
				{textarea(in, "lesson_exemplar", "Lesson Exemplar", "Paste exemplar text here...", 4)},
			},
			Files: []fileSlot{{Field: models.FieldExemplarFile, Label: "Attach Lesson Exemplar File", Accept: ".pdf,.txt,image/*", Name: fileName(in.ExemplarFile)}},
		},
		{
			Title: "Competency and Standards",
			Rows: [][]formField{
				{textarea(in, "competency", "Learning Competency", "e.g. Describe the components of a scientific investigation (S7MT-Ia-1)", 3)},
				{textarea(in, "content_standard", "Content Standard (optional)", "Leave blank to derive it from the competency", 2),
					textarea(in, "performance_standard", "Performance Standard (optional)", "Leave blank to derive it from the competency", 2)},
			},
		},
		{
			Title: "Signatures and Resources",
			Rows: [][]formField{
				{field(in, "checker_name", "Designated Checker", "e.g. Maria Clara"), field(in, "checker_designation", "Checker Designation", "e.g. Principal / Dept. Head")},
				{textarea(in, "sources", "Resources / Sources", "Textbooks, references...", 2)},
				{textarea(in, "custom_instructions", "Custom Instructions (AI Feedback)", "e.g. Focus on group work, use localized examples...", 5)},
			},
			Files: []fileSlot{{Field: models.FieldLogoFile, Label: "School Logo", Accept: "image/*", Name: fileName(in.LogoFile)}},
		},
	}
}

func (h *Handler) draftView(d *models.Draft, errMsg string) draftPage {
	ready, state := h.LLMService.GetProviderStatus()
	page := draftPage{
		Title:         "DLL Architect",
		Draft:         d,
		Sections:      formSections(&d.Input),
		Error:         errMsg,
		Ready:         ready,
		ReadyState:    state,
		ContentAreaID: render.ContentAreaID,
		Filename:      services.Filename(d.Input),
	}
	if page.Error == "" && d.Status == models.DraftFailed {
		page.Error = d.Error
	}
	if d.HasPlan() {
		out, err := render.RenderDLL(d.Plan, d.Input)
		if err != nil {
			utils.GetLogger().Error("render failed", map[string]interface{}{"draft_id": d.ID, "error": err.Error()})
			page.Error = "The Daily Lesson Log could not be displayed."
		} else {
			page.PlanHTML = template.HTML(out)
		}
	}
	return page
}

// renderDraftPage shows the form, or the preview when a plan exists.
func (h *Handler) renderDraftPage(c *gin.Context, status int, d *models.Draft, errMsg string) {
	name := "form.html"
	if d.HasPlan() {
		name = "preview.html"
	}
	c.HTML(status, name, h.draftView(d, errMsg))
}

// pageError renders the page matching err. Every path leads back to the form.
func (h *Handler) pageError(c *gin.Context, id string, err error) {
	status, _ := statusFor(err)
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"Title":   "Draft not found",
			"Message": "This draft does not exist or has expired.",
		})
		return
	case apperrors.ErrorTypeMissingCredential:
		ready, state := h.LLMService.GetProviderStatus()
		c.HTML(http.StatusServiceUnavailable, "setup.html", gin.H{
			"Title":   "Setup required",
			"Message": services.MissingCredentialHelp,
			"Ready":   ready,
			"State":   state,
			"DraftID": id,
		})
		return
	}

	d, getErr := h.FormService.GetDraft(id)
	if getErr != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "Something went wrong",
			"Message": publicMessage(err),
		})
		return
	}
	h.renderDraftPage(c, status, d, publicMessage(err))
}

func seeDraft(c *gin.Context, id string) {
	c.Redirect(http.StatusSeeOther, "/drafts/"+id)
}

// IndexPage starts a new draft.
func (h *Handler) IndexPage(c *gin.Context) {
	d, err := h.FormService.NewDraft()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "Something went wrong",
			"Message": "A new draft could not be created.",
		})
		return
	}
	seeDraft(c, d.ID)
}

// DraftPage shows a draft.
func (h *Handler) DraftPage(c *gin.Context) {
	id := c.Param("id")
	d, err := h.FormService.GetDraft(id)
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	h.renderDraftPage(c, http.StatusOK, d, "")
}

// wantsJSON is true for the page script's background requests.
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// UpdateFieldsPage saves one or many form-encoded fields.
func (h *Handler) UpdateFieldsPage(c *gin.Context) {
	id := c.Param("id")
	if err := c.Request.ParseForm(); err != nil {
		h.pageError(c, id, apperrors.NewValidationError("could not read the form", err))
		return
	}
	values := make(map[string]string, len(c.Request.PostForm))
	for key, v := range c.Request.PostForm {
		if len(v) > 0 {
			values[key] = v[0]
		}
	}

	d, err := h.FormService.SetFields(id, values)
	if wantsJSON(c) {
		if err != nil {
			h.Response.FromError(c, err)
			return
		}
		h.Response.Success(c, d)
		return
	}
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	seeDraft(c, id)
}

// UploadFilePage attaches an uploaded file.
func (h *Handler) UploadFilePage(c *gin.Context) {
	id := c.Param("id")
	d, err := h.attachUpload(c)
	if wantsJSON(c) {
		if err != nil {
			h.Response.FromError(c, err)
			return
		}
		h.Response.Success(c, d)
		return
	}
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	seeDraft(c, id)
}

// RemoveFilePage clears a file slot.
func (h *Handler) RemoveFilePage(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.FormService.RemoveFile(id, c.Param("field")); err != nil {
		h.pageError(c, id, err)
		return
	}
	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	seeDraft(c, id)
}

// GeneratePage runs generation and shows the result or the form with the
// error.
func (h *Handler) GeneratePage(c *gin.Context) {
	id := c.Param("id")
	if err := c.Request.ParseForm(); err == nil && len(c.Request.PostForm) > 0 {
		values := make(map[string]string)
		for key, v := range c.Request.PostForm {
			if models.IsTextField(key) && len(v) > 0 {
				values[key] = v[0]
			}
		}
		if len(values) > 0 {
			if _, err := h.FormService.SetFields(id, values); err != nil {
				h.pageError(c, id, err)
				return
			}
		}
	}

	if _, err := h.GenerationService.GenerateDraft(c.Request.Context(), id); err != nil {
		h.pageError(c, id, err)
		return
	}
	seeDraft(c, id)
}

// ResetPage returns to the form for a new draft of the same input.
func (h *Handler) ResetPage(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.FormService.Reset(id); err != nil {
		h.pageError(c, id, err)
		return
	}
	seeDraft(c, id)
}

// PrintPage serves the standalone print view.
func (h *Handler) PrintPage(c *gin.Context) {
	id := c.Param("id")
	d, err := h.FormService.GetDraft(id)
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	res, err := h.ExportService.PrintView(d)
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	c.Data(http.StatusOK, res.ContentType, []byte(res.Content))
}

// ExportDocPage downloads the Word document.
func (h *Handler) ExportDocPage(c *gin.Context) {
	id := c.Param("id")
	d, err := h.FormService.GetDraft(id)
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	res, err := h.ExportService.ExportDoc(d)
	if err != nil {
		h.pageError(c, id, err)
		return
	}
	h.Response.DownloadResponse(c, res.Content, res.Filename, res.ContentType)
}

// ExportClipboardPage returns the clipboard HTML and its plain-text fallback
// for the page script.
func (h *Handler) ExportClipboardPage(c *gin.Context) {
	d, err := h.FormService.GetDraft(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	res, err := h.ExportService.ExportClipboard(d)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"html": res.Content, "text": res.PlainText})
}
