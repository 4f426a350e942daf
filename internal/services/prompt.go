// internal/services/prompt.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/DLLArchitect/internal/llm"
	"github.com/Corphon/DLLArchitect/internal/models"
)

const (
	ObjectivesPerDay    = 2
	EvaluationQuestions = 5

	noExemplarText      = "No specific text exemplar provided."
	noCustomPromptsText = "No additional specific prompts provided."
)

// BuildPrompt renders the generation instruction for input. The result is a
// pure function of input.
func BuildPrompt(input models.LessonInput) string {
	exemplar := orDefault(input.LessonExemplar, noExemplarText)
	customPrompts := orDefault(input.CustomInstructions, noCustomPromptsText)

	var b strings.Builder
	b.WriteString("Generate a highly detailed DepEd K-12 Daily Lesson Log (DLL) for a full week (Monday to Friday) based on the following input:\n")
	fmt.Fprintf(&b, "- Grade Level: %s\n", input.GradeLevel)
	fmt.Fprintf(&b, "- Learning Area (Subject): %s\n", input.LearningArea)
	fmt.Fprintf(&b, "- Quarter: %s\n", input.Quarter)
	fmt.Fprintf(&b, "- Week: %s\n", input.Week)
	fmt.Fprintf(&b, "- Weekly Competency: %s\n", input.Competency)
	fmt.Fprintf(&b, "- Sources Provided: %s\n", input.Sources)
	fmt.Fprintf(&b, "- TEXT EXEMPLAR: %s\n", exemplar)
	fmt.Fprintf(&b, "- TEACHER'S SPECIFIC PROMPTS: %s\n", customPrompts)
	if !input.ExemplarFile.IsEmpty() {
		fmt.Fprintf(&b, "- ATTACHED FILE: %s (%s) is included with this request.\n",
			orDefault(input.ExemplarFile.Name, "lesson exemplar"), input.ExemplarFile.MimeType)
	}

	b.WriteString("\nCRITICAL FORMATTING RULES:\n")
	rules := []string{
		"DAILY COMPETENCIES: You MUST generate a specific learning competency description and its K-12 competency code for EACH DAY (Monday-Friday).",
		"TOPICS: Provide a specific topic name for EACH DAY.",
		"PROCEDURES: Provide concrete, detailed content for every procedure step (A to J) for every single day.",
		"LISTS & BULLETS: For objectives, steps, or questions, use CLEAR NEWLINES. For example:\n   1. First item\n   2. Second item",
		fmt.Sprintf("OBJECTIVES: Write exactly %d behavioral objectives for each day.", ObjectivesPerDay),
		fmt.Sprintf("EVALUATION & ANSWER KEY: In 'Evaluating Learning', provide exactly %d numbered questions (1. to %d.). You MUST ALSO generate a corresponding 'Answer Key' numbered the same way.", EvaluationQuestions, EvaluationQuestions),
		"PROGRESSION: Monday introduces the competency, each following day builds on the previous one, and Friday consolidates and assesses. Do not repeat a topic within the week.",
		standardsRule(input),
		"REMARKS: Provide a short remark for each day (for example, the lesson's carry-over status).",
		"REFERENCE UTILIZATION: Heavily use the provided LESSON EXEMPLAR or ATTACHED FILE as the primary source of truth for technical depth.",
		"Return valid JSON only.",
	}
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	return b.String()
}

func standardsRule(input models.LessonInput) string {
	content := strings.TrimSpace(input.ContentStandard)
	performance := strings.TrimSpace(input.PerformanceStandard)

	var parts []string
	if content != "" {
		parts = append(parts, fmt.Sprintf("use this CONTENT STANDARD verbatim: %q", content))
	} else {
		parts = append(parts, "derive the CONTENT STANDARD from the competency and sources")
	}
	if performance != "" {
		parts = append(parts, fmt.Sprintf("use this PERFORMANCE STANDARD verbatim: %q", performance))
	} else {
		parts = append(parts, "derive the PERFORMANCE STANDARD from the competency and sources")
	}
	return "STANDARDS: " + strings.Join(parts, "; ") + "."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// RequestParts returns the prompt text followed by the exemplar file, when
// one is attached.
func RequestParts(input models.LessonInput) []llm.Part {
	parts := []llm.Part{llm.TextPart(BuildPrompt(input))}
	if !input.ExemplarFile.IsEmpty() {
		parts = append(parts, llm.Part{InlineData: &llm.InlineData{
			MimeType: input.ExemplarFile.MimeType,
			Data:     input.ExemplarFile.Data,
		}})
	}
	return parts
}

func dayPlanSchema() *llm.Schema {
	return llm.Object(
		llm.Field{Name: "competencyDesc", Schema: llm.String("The specific description of the competency for this day.")},
		llm.Field{Name: "competencyCode", Schema: llm.String("The K-12 competency code (e.g., S7MT-Ia-1).")},
		llm.Field{Name: "topic", Schema: llm.String("The specific topic or lesson title for this day.")},
		llm.Field{Name: "objectives", Schema: llm.StringArray(fmt.Sprintf("Exactly %d behavioral objectives for this day.", ObjectivesPerDay))},
		llm.Field{Name: "review", Schema: llm.String("Review of previous lesson or motivation.")},
		llm.Field{Name: "purpose", Schema: llm.String("Establishing a purpose for the lesson.")},
		llm.Field{Name: "examples", Schema: llm.String("Presenting examples/instances of new lesson.")},
		llm.Field{Name: "discussion1", Schema: llm.String("Discussing new concepts and practicing new skills #1.")},
		llm.Field{Name: "discussion2", Schema: llm.String("Discussing new concepts and practicing new skills #2.")},
		llm.Field{Name: "mastery", Schema: llm.String("Developing mastery (Leads to Formative Assessment).")},
		llm.Field{Name: "application", Schema: llm.String("Finding practical applications of concepts and skills in daily living.")},
		llm.Field{Name: "generalization", Schema: llm.String("Making generalizations and abstractions about the lesson.")},
		llm.Field{Name: "evaluation", Schema: llm.String(fmt.Sprintf("Evaluating Learning: exactly %d numbered quiz questions.", EvaluationQuestions))},
		llm.Field{Name: "answerKey", Schema: llm.String("The answer key for the evaluation questions.")},
		llm.Field{Name: "remediation", Schema: llm.String("Additional activities for application or remediation.")},
		llm.Field{Name: "remarks", Schema: llm.String("Remarks for this day.")},
	)
}

// WeeklyPlanSchema is the response schema matching models.WeeklyPlan.
func WeeklyPlanSchema() *llm.Schema {
	day := dayPlanSchema()
	days := make([]llm.Field, 0, len(models.Weekdays))
	for _, w := range models.Weekdays {
		days = append(days, llm.Field{Name: string(w), Schema: day})
	}

	return llm.Object(
		llm.Field{Name: "contentStandards", Schema: llm.String("")},
		llm.Field{Name: "performanceStandards", Schema: llm.String("")},
		llm.Field{Name: "references", Schema: llm.Object(
			llm.Field{Name: "teacherGuide", Schema: llm.String("Teacher's Guide pages")},
			llm.Field{Name: "learnerMaterial", Schema: llm.String("Learner's Materials pages")},
			llm.Field{Name: "textbook", Schema: llm.StringArray("Textbook pages")},
			llm.Field{Name: "additionalResources", Schema: llm.StringArray("Additional materials from the Learning Resource portal")},
			llm.Field{Name: "otherResources", Schema: llm.String("Other learning resources")},
		)},
		llm.Field{Name: "dailyPlans", Schema: llm.Object(days...)},
	)
}
