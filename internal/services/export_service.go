// internal/services/export_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	apperrors "github.com/Corphon/DLLArchitect/internal/errors"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/render"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// Export content types.
const (
	ContentTypeMSWord = "application/msword"
	ContentTypeHTML   = "text/html; charset=utf-8"
)

const exportDir = "exports"

// ExportService turns a generated draft into the three export shapes.
type ExportService struct {
	files   *storage.FileStorage // nil disables saved copies
	metrics *utils.MetricsCollector
	now     func() time.Time
}

func NewExportService(files *storage.FileStorage, metrics *utils.MetricsCollector) *ExportService {
	return &ExportService{
		files:   files,
		metrics: metrics,
		now:     time.Now,
	}
}

// Filename is the download name of the Word export. Learning area and week
// are used verbatim.
func Filename(input models.LessonInput) string {
	return fmt.Sprintf("DLL_%s_%s.doc", input.LearningArea, input.Week)
}

// BuildWordDocument wraps the rendered log in the HTML dialect Word opens as
// a landscape document. The result starts with a UTF-8 byte order mark.
func BuildWordDocument(plan *models.WeeklyPlan, input models.LessonInput) (string, error) {
	body, err := render.RenderDLL(plan, input)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("\ufeff")
	b.WriteString(`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>`)
	b.WriteString("\n<head><meta charset='utf-8'><title>Daily Lesson Log</title>\n")
	b.WriteString(render.DocStyles())
	b.WriteString("\n</head><body><div class=\"Section1\">\n")
	b.WriteString(body)
	b.WriteString("\n</div></body></html>")
	return b.String(), nil
}

// BuildClipboardHTML is the rich HTML fragment written to the clipboard.
func BuildClipboardHTML(plan *models.WeeklyPlan, input models.LessonInput) (string, error) {
	body, err := render.RenderDLL(plan, input)
	if err != nil {
		return "", err
	}
	return "<html><head>" + render.DocStyles() + "</head><body>" + body + "</body></html>", nil
}

func (s *ExportService) generatedPlan(draft *models.Draft, format string) error {
	if draft == nil {
		return apperrors.NewNotFoundError("draft not found", nil)
	}
	if !draft.HasPlan() {
		err := apperrors.NewExportError("Generate the Daily Lesson Log before exporting.", nil)
		s.record(format, err)
		return err
	}
	return nil
}

func (s *ExportService) record(format string, err error) {
	if s.metrics != nil {
		s.metrics.RecordExport(format, err)
	}
	if err != nil {
		utils.GetLogger().Warn("export failed", map[string]interface{}{
			"format": format,
			"error":  err.Error(),
		})
	}
}

func (s *ExportService) result(draft *models.Draft, format, filename, contentType, content string) *models.ExportResult {
	return &models.ExportResult{
		DraftID:     draft.ID,
		Format:      format,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		GeneratedAt: s.now(),
		FileSize:    int64(len(content)),
	}
}

// ExportDoc builds the downloadable Word document for a generated draft and,
// when storage is configured, keeps a copy under exports/.
func (s *ExportService) ExportDoc(draft *models.Draft) (*models.ExportResult, error) {
	if err := s.generatedPlan(draft, models.ExportFormatDoc); err != nil {
		return nil, err
	}

	doc, err := BuildWordDocument(draft.Plan, draft.Input)
	if err != nil {
		appErr := apperrors.NewExportError("failed to build document", err)
		s.record(models.ExportFormatDoc, appErr)
		return nil, appErr
	}

	result := s.result(draft, models.ExportFormatDoc, Filename(draft.Input), ContentTypeMSWord, doc)
	s.saveCopy(result)
	s.record(models.ExportFormatDoc, nil)
	return result, nil
}

// saveCopy is best effort; a failed write is logged and the download still succeeds.
func (s *ExportService) saveCopy(result *models.ExportResult) {
	if s.files == nil {
		return
	}
	name := fmt.Sprintf("%s_%s_%s", result.DraftID, result.GeneratedAt.Format("20060102_150405"), safeFileName(result.Filename))
	path, err := s.files.SaveTextFile(exportDir, name, []byte(result.Content))
	if err != nil {
		utils.GetLogger().Warn("failed to save export copy", map[string]interface{}{
			"draft_id": result.DraftID,
			"error":    err.Error(),
		})
		return
	}
	result.FilePath = path
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '-'
		}
		return r
	}, name)
}

// ExportClipboard returns the rich HTML for the clipboard together with a
// tab-separated plain-text rendering for clients without rich clipboard support.
func (s *ExportService) ExportClipboard(draft *models.Draft) (*models.ExportResult, error) {
	if err := s.generatedPlan(draft, models.ExportFormatClipboard); err != nil {
		return nil, err
	}

	content, err := BuildClipboardHTML(draft.Plan, draft.Input)
	if err != nil {
		appErr := apperrors.NewExportError("failed to build clipboard content", err)
		s.record(models.ExportFormatClipboard, appErr)
		return nil, appErr
	}
	plain, err := PlainText(content)
	if err != nil {
		appErr := apperrors.NewExportError("failed to build clipboard text", err)
		s.record(models.ExportFormatClipboard, appErr)
		return nil, appErr
	}

	result := s.result(draft, models.ExportFormatClipboard, "", ContentTypeHTML, content)
	result.PlainText = plain
	s.record(models.ExportFormatClipboard, nil)
	return result, nil
}

// PrintView returns the standalone print page.
func (s *ExportService) PrintView(draft *models.Draft) (*models.ExportResult, error) {
	if err := s.generatedPlan(draft, models.ExportFormatPrint); err != nil {
		return nil, err
	}

	page, err := render.RenderPrintPage(draft.Plan, draft.Input)
	if err != nil {
		appErr := apperrors.NewExportError("failed to build print view", err)
		s.record(models.ExportFormatPrint, appErr)
		return nil, appErr
	}
	s.record(models.ExportFormatPrint, nil)
	return s.result(draft, models.ExportFormatPrint, "", ContentTypeHTML, page), nil
}

// PlainText flattens an HTML table document: cells are tab separated, rows and
// block elements end lines, and style/script bodies are dropped.
func PlainText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style", "script", "head", "img":
				return
			case "br":
				b.WriteString("\n")
				return
			case "li":
				b.WriteString("- ")
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(collapseSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "td", "th":
				b.WriteString("\t")
			case "tr", "p", "li", "div", "table":
				b.WriteString("\n")
			}
		}
	}
	walk(root)

	var lines []string
	text := b.String()
	for strings.Contains(text, " \t") || strings.Contains(text, "\t ") {
		text = strings.ReplaceAll(strings.ReplaceAll(text, " \t", "\t"), "\t ", "\t")
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimRight(strings.TrimLeft(line, " "), " \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// collapseSpace folds whitespace runs to one space, keeping a single space at
// either edge so words split across inline elements stay apart.
func collapseSpace(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(words, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}
