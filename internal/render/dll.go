// internal/render/dll.go
package render

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/Corphon/DLLArchitect/internal/models"
)

// DefaultLogoURL is shown when no school logo was uploaded.
const DefaultLogoURL = "https://upload.wikimedia.org/wikipedia/commons/thumb/c/cc/Department_of_Education_of_the_Philippines.svg/600px-Department_of_Education_of_the_Philippines.svg.png"

// ContentAreaID is the id of the exportable region.
const ContentAreaID = "dll-content-area"

//go:embed templates/*.tmpl
var templateFS embed.FS

var dllTemplate = template.Must(template.New("dll.html.tmpl").ParseFS(templateFS, "templates/*.tmpl"))

// content is a classified field plus the classes it renders with.
type content struct {
	Block
	ListClass string
	TextClass string
}

type cell struct {
	Content   content
	AnswerKey *content
}

type procedureRow struct {
	Label []string
	Note  string
	Cells []cell
}

type dayColumn struct {
	Label          string
	CompetencyDesc string
	CompetencyCode string
	Topic          string
	Objectives     content
	Remarks        content
}

type dllView struct {
	ContentAreaID   string
	LogoSrc         template.URL
	Input           models.LessonInput
	TeacherPosition string
	Plan            *models.WeeklyPlan
	Days            []dayColumn
	Textbook        content
	Additional      content
	Procedures      []procedureRow
	Reflection      []string
}

func textContent(s string) content {
	return content{Block: Classify(s), ListClass: "list-none", TextClass: "cell-text"}
}

func objectivesContent(items []string) content {
	return content{Block: ClassifyList(items), ListClass: "list-disc", TextClass: "cell-text"}
}

func answerKeyContent(s string) *content {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &content{Block: Classify(s), ListClass: "list-none", TextClass: "answer-key-text italic text-slate-600"}
}

// LogoSrc returns a data URI for an uploaded image logo, or DefaultLogoURL.
func LogoSrc(input models.LessonInput) template.URL {
	logo := input.LogoFile
	if logo.IsEmpty() || !strings.HasPrefix(logo.MimeType, "image/") || strings.ContainsAny(logo.MimeType, ";,\"' ") {
		return template.URL(DefaultLogoURL)
	}
	if _, err := base64.StdEncoding.DecodeString(logo.Data); err != nil {
		return template.URL(DefaultLogoURL)
	}
	return template.URL(fmt.Sprintf("data:%s;base64,%s", logo.MimeType, logo.Data))
}

func buildView(plan *models.WeeklyPlan, input models.LessonInput) dllView {
	v := dllView{
		ContentAreaID:   ContentAreaID,
		LogoSrc:         LogoSrc(input),
		Input:           input,
		TeacherPosition: input.TeacherPosition,
		Plan:            plan,
		Textbook:        content{Block: ClassifyList(plan.References.Textbook), ListClass: "list-none", TextClass: "cell-text"},
		Additional:      content{Block: ClassifyList(plan.References.AdditionalResources), ListClass: "list-none", TextClass: "cell-text"},
		Reflection:      models.ReflectionPrompts,
	}
	if strings.TrimSpace(v.TeacherPosition) == "" {
		v.TeacherPosition = "Teacher"
	}

	for _, w := range models.Weekdays {
		d := plan.DailyPlans.Day(w)
		v.Days = append(v.Days, dayColumn{
			Label:          w.Label(),
			CompetencyDesc: d.CompetencyDesc,
			CompetencyCode: d.CompetencyCode,
			Topic:          d.Topic,
			Objectives:     objectivesContent(d.Objectives),
			Remarks:        textContent(d.Remarks),
		})
	}

	for _, step := range models.ProcedureSteps {
		row := procedureRow{Label: step.Label, Note: step.Note}
		for _, w := range models.Weekdays {
			d := plan.DailyPlans.Day(w)
			c := cell{Content: textContent(step.Value(d))}
			if step.Key == "evaluation" {
				c.AnswerKey = answerKeyContent(d.AnswerKey)
			}
			row.Cells = append(row.Cells, c)
		}
		v.Procedures = append(v.Procedures, row)
	}
	return v
}

// RenderDLL renders the Daily Lesson Log region: header block, the main
// table with five day columns and the signature blocks. The output depends
// only on plan and input.
func RenderDLL(plan *models.WeeklyPlan, input models.LessonInput) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("render dll: plan is nil")
	}
	var buf bytes.Buffer
	if err := dllTemplate.ExecuteTemplate(&buf, "dll", buildView(plan, input)); err != nil {
		return "", fmt.Errorf("render dll: %w", err)
	}
	return buf.String(), nil
}

type printView struct {
	Title         string
	ContentAreaID string
	Styles        template.HTML
	Body          template.HTML
}

// RenderPrintPage wraps the rendered log in a standalone page whose print
// stylesheet shows only the exportable region on landscape letter paper.
// The page opens the browser print dialog once loaded.
func RenderPrintPage(plan *models.WeeklyPlan, input models.LessonInput) (string, error) {
	body, err := RenderDLL(plan, input)
	if err != nil {
		return "", err
	}
	view := printView{
		Title:         "Daily Lesson Log",
		ContentAreaID: ContentAreaID,
		Styles:        template.HTML(docStyles),
		Body:          template.HTML(body),
	}
	var buf bytes.Buffer
	if err := dllTemplate.ExecuteTemplate(&buf, "print", view); err != nil {
		return "", fmt.Errorf("render print page: %w", err)
	}
	return buf.String(), nil
}

// DocStyles is the stylesheet inlined into Word and clipboard exports. Word
// ignores external CSS, so every rule the table needs lives here.
func DocStyles() string {
	return docStyles
}

const docStyles = `<style>
@page Section1 {
  size: 11in 8.5in;
  mso-page-orientation: landscape;
  margin: 0.5in 0.5in 0.5in 0.5in;
}
div.Section1 { page: Section1; }
body { font-family: 'Century Gothic', CenturyGothic, AppleGothic, sans-serif !important; }
table { border-collapse: collapse; width: 100%; border: 1pt solid black; mso-table-lspace: 0pt; mso-table-rspace: 0pt; }
td, th { border: 1pt solid black; padding: 4pt; font-family: 'Century Gothic', CenturyGothic, AppleGothic, sans-serif !important; font-size: 8pt; vertical-align: top; }
thead { display: table-header-group; background-color: #5a6b7e; }
thead th { color: white !important; font-weight: bold; text-align: center; text-transform: uppercase; }
.bg-slate-600 { background-color: #5a6b7e; color: white; }
.bg-remarks { background-color: #f59e0b; }
.text-red-600 { color: #dc2626; font-weight: bold; }
.font-bold { font-weight: bold; }
.uppercase { text-transform: uppercase; }
.italic { font-style: italic; }
.text-slate-600 { color: #475569; }
.answer-key { margin-top: 4pt; padding-top: 4pt; border-top: 1pt dotted black; }
.answer-key-label { font-size: 7pt; font-weight: bold; text-transform: uppercase; }
.answer-key-text { font-size: 7pt; }
.list-decimal { list-style-type: decimal; }
.list-disc { list-style-type: disc; }
.list-none { list-style-type: none; }
ul, ol { margin-top: 2pt; margin-bottom: 2pt; padding-left: 12pt; }
p { margin: 0; padding: 0; }
img.dll-logo-img {
  width: 45pt !important;
  height: 45pt !important;
  display: block;
  margin: auto;
}
.flex { display: table; width: 100%; }
.flex > div { display: table-cell; vertical-align: middle; }
.signatures { width: 100%; margin-top: 24pt; border: none; }
.signatures td { border: none; font-size: 9pt; }
</style>`
