package render

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/Corphon/DLLArchitect/internal/models"
)

func testDay(topic string) *models.DayPlan {
	return &models.DayPlan{
		CompetencyDesc: "Describe the components of a scientific investigation",
		CompetencyCode: "S7MT-Ia-1",
		Topic:          topic,
		Objectives:     []string{"Identify the steps", "Explain each step"},
		Review:         "Recall last week's lesson.",
		Purpose:        "Why do scientists investigate?",
		Examples:       "- Boiling water\n- Rusting nail",
		Discussion1:    "Discuss the problem statement",
		Discussion2:    "Discuss hypotheses",
		Mastery:        "Short quiz",
		Application:    "Plan a home experiment",
		Generalization: "Investigations follow steps",
		Evaluation:     "1. What is a hypothesis?\n2. What is a variable?\n3. Q3\n4. Q4\n5. Q5",
		AnswerKey:      "1. A testable guess\n2. A factor",
		Remediation:    "Read pages 1-5",
		Remarks:        topic + " done",
	}
}

func testPlan() *models.WeeklyPlan {
	return &models.WeeklyPlan{
		ContentStandards:     "Scientific ways of acquiring knowledge",
		PerformanceStandards: "Perform guided investigations",
		References: models.References{
			TeacherGuide:    "pp. 1-10",
			LearnerMaterial: "pp. 2-12",
			Textbook:        []string{"Science Links pp. 5-9"},
		},
		DailyPlans: models.DailyPlans{
			Monday:    testDay("Mon topic"),
			Tuesday:   testDay("Tue topic"),
			Wednesday: testDay("Wed topic"),
			Thursday:  testDay("Thu topic"),
			Friday:    testDay("Fri topic"),
		},
	}
}

func testInput() models.LessonInput {
	return models.LessonInput{
		School:        "Villa Kananga Integrated School",
		GradeLevel:    "Grade 7",
		Teacher:       "Juan Dela Cruz",
		LearningArea:  "Science",
		TeachingDates: "June 23-27, 2025",
		TeachingTime:  "1:00-1:45 PM",
		Quarter:       "First",
		Week:          "Week 1",
	}
}

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func element(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func elementWithClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) }
}

func text(n *html.Node) string {
	var b strings.Builder
	for _, t := range findAll(n, func(n *html.Node) bool { return n.Type == html.TextNode }) {
		b.WriteString(t.Data)
	}
	return strings.TrimSpace(b.String())
}

func renderDoc(t *testing.T, plan *models.WeeklyPlan, input models.LessonInput) *html.Node {
	t.Helper()
	out, err := RenderDLL(plan, input)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return parse(t, out)
}

func TestRenderDLLHasFiveDayColumnsInOrder(t *testing.T) {
	doc := renderDoc(t, testPlan(), testInput())

	tables := findAll(doc, elementWithClass("table", "dll-main"))
	if len(tables) != 1 {
		t.Fatalf("main tables = %d", len(tables))
	}
	heads := findAll(tables[0], elementWithClass("th", "day-col"))
	want := []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}
	if len(heads) != len(want) {
		t.Fatalf("day columns = %d, want 5", len(heads))
	}
	for i, th := range heads {
		if text(th) != want[i] {
			t.Errorf("column %d = %q, want %q", i, text(th), want[i])
		}
	}
}

func TestRenderDLLHasTenProcedureRows(t *testing.T) {
	doc := renderDoc(t, testPlan(), testInput())

	rows := findAll(doc, elementWithClass("tr", "procedure-row"))
	if len(rows) != 10 {
		t.Fatalf("procedure rows = %d, want 10", len(rows))
	}
	for i, row := range rows {
		cells := findAll(row, element("td"))
		if len(cells) != 6 {
			t.Fatalf("row %d has %d cells, want 1 label + 5 days", i, len(cells))
		}
	}
	if !strings.HasPrefix(text(findAll(rows[0], element("td"))[0]), "A. Reviewing previous lesson") {
		t.Errorf("first row label = %q", text(findAll(rows[0], element("td"))[0]))
	}
	if !strings.HasPrefix(text(findAll(rows[9], element("td"))[0]), "J. Additional activities") {
		t.Errorf("last row label = %q", text(findAll(rows[9], element("td"))[0]))
	}
	if !strings.Contains(text(findAll(rows[5], element("td"))[0]), "(Leads to Formative Assessment)") {
		t.Error("mastery note missing")
	}
}

func TestRenderDLLCellShapes(t *testing.T) {
	doc := renderDoc(t, testPlan(), testInput())
	rows := findAll(doc, elementWithClass("tr", "procedure-row"))

	// A. review is a one-liner: plain paragraph, no list
	review := findAll(rows[0], element("td"))[1]
	if len(findAll(review, element("li"))) != 0 || len(findAll(review, element("p"))) != 1 {
		t.Errorf("one-line review should be a plain paragraph")
	}
	if text(review) != "Recall last week's lesson." {
		t.Errorf("review text = %q", text(review))
	}

	// I. evaluation: numbered list with markers stripped and an answer key
	eval := findAll(rows[8], element("td"))[1]
	ols := findAll(eval, element("ol"))
	if len(ols) != 2 {
		t.Fatalf("evaluation should have question and answer lists, got %d", len(ols))
	}
	items := findAll(ols[0], element("li"))
	if len(items) != 5 || text(items[0]) != "What is a hypothesis?" {
		t.Errorf("evaluation items = %d, first %q", len(items), text(items[0]))
	}
	if len(findAll(eval, elementWithClass("div", "answer-key"))) != 1 {
		t.Error("answer key block missing")
	}

	// C. examples are bullets in an unstyled list
	examples := findAll(rows[2], element("td"))[1]
	uls := findAll(examples, elementWithClass("ul", "list-none"))
	if len(uls) != 1 || text(findAll(uls[0], element("li"))[0]) != "Boiling water" {
		t.Errorf("examples should be an unstyled bullet list")
	}

	// objectives use disc bullets
	if len(findAll(doc, elementWithClass("ul", "list-disc"))) != 5 {
		t.Error("each day should render a disc objective list")
	}
}

func TestRenderDLLHeaderAndSignatures(t *testing.T) {
	input := testInput()
	doc := renderDoc(t, testPlan(), input)

	out := text(doc)
	for _, want := range []string{
		"GRADES 1 to 12",
		"DAILY LESSON LOG",
		"June 23-27, 2025 | Week 1 | 1:00-1:45 PM",
		"Prepared by:",
		"Teacher",
		"I. OBJECTIVES",
		"VI. REFLECTION",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "Checked by:") {
		t.Error("checked-by block shown without a checker name")
	}
	if n := len(findAll(doc, elementWithClass("tr", "reflection-row"))); n != len(models.ReflectionPrompts) {
		t.Errorf("reflection rows = %d", n)
	}

	imgs := findAll(doc, element("img"))
	if len(imgs) != 1 || attr(imgs[0], "src") != DefaultLogoURL {
		t.Errorf("default logo not used")
	}

	input.CheckerName = "Maria Santos"
	input.LogoFile = &models.Attachment{Data: "iVBORw0KGgo=", MimeType: "image/png", Name: "logo.png"}
	doc = renderDoc(t, testPlan(), input)
	if out := text(doc); !strings.Contains(out, "Checked by:") || !strings.Contains(out, "Maria Santos") {
		t.Error("checked-by block missing")
	}
	if src := attr(findAll(doc, element("img"))[0], "src"); src != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("logo src = %q", src)
	}
}

func TestRenderDLLEscapesInput(t *testing.T) {
	input := testInput()
	input.School = `<script>alert("x")</script>`
	out, err := RenderDLL(testPlan(), input)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatal("input not escaped")
	}
}

func TestLogoSrcRejectsNonImages(t *testing.T) {
	input := testInput()
	input.LogoFile = &models.Attachment{Data: "PHN2Zz4=", MimeType: "text/html"}
	if LogoSrc(input) != DefaultLogoURL {
		t.Fatal("non-image logo should fall back to the default")
	}
}

func TestRenderDLLMissingDayRendersEmptyColumn(t *testing.T) {
	plan := testPlan()
	plan.DailyPlans.Wednesday = nil
	doc := renderDoc(t, plan, testInput())
	if n := len(findAll(doc, elementWithClass("th", "day-col"))); n != 5 {
		t.Fatalf("day columns = %d", n)
	}
}

func TestRenderDLLDeterministic(t *testing.T) {
	a, _ := RenderDLL(testPlan(), testInput())
	b, _ := RenderDLL(testPlan(), testInput())
	if a != b {
		t.Fatal("render output differs between calls")
	}
}
