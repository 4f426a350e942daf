// internal/models/plan.go
package models

// Weekday identifies one column of the weekly log.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays is the fixed left-to-right column order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Label is the upper-case column heading.
func (w Weekday) Label() string {
	switch w {
	case Monday:
		return "MONDAY"
	case Tuesday:
		return "TUESDAY"
	case Wednesday:
		return "WEDNESDAY"
	case Thursday:
		return "THURSDAY"
	case Friday:
		return "FRIDAY"
	default:
		return string(w)
	}
}

// WeeklyPlan is the AI-generated content for one week.
type WeeklyPlan struct {
	ContentStandards     string     `json:"contentStandards"`
	PerformanceStandards string     `json:"performanceStandards"`
	References           References `json:"references"`
	DailyPlans           DailyPlans `json:"dailyPlans"`
}

// References is the learning resources block.
type References struct {
	TeacherGuide        string   `json:"teacherGuide"`
	LearnerMaterial     string   `json:"learnerMaterial"`
	Textbook            []string `json:"textbook"`
	AdditionalResources []string `json:"additionalResources"`
	OtherResources      string   `json:"otherResources"`
}

// DailyPlans holds one DayPlan per weekday.
type DailyPlans struct {
	Monday    *DayPlan `json:"monday"`
	Tuesday   *DayPlan `json:"tuesday"`
	Wednesday *DayPlan `json:"wednesday"`
	Thursday  *DayPlan `json:"thursday"`
	Friday    *DayPlan `json:"friday"`
}

// Day returns the plan for w, or an empty plan when absent so renderers
// never dereference nil.
func (d DailyPlans) Day(w Weekday) DayPlan {
	var p *DayPlan
	switch w {
	case Monday:
		p = d.Monday
	case Tuesday:
		p = d.Tuesday
	case Wednesday:
		p = d.Wednesday
	case Thursday:
		p = d.Thursday
	case Friday:
		p = d.Friday
	}
	if p == nil {
		return DayPlan{}
	}
	return *p
}

// Missing lists weekdays the model left out.
func (p *WeeklyPlan) Missing() []Weekday {
	var missing []Weekday
	ptrs := map[Weekday]*DayPlan{
		Monday:    p.DailyPlans.Monday,
		Tuesday:   p.DailyPlans.Tuesday,
		Wednesday: p.DailyPlans.Wednesday,
		Thursday:  p.DailyPlans.Thursday,
		Friday:    p.DailyPlans.Friday,
	}
	for _, w := range Weekdays {
		if ptrs[w] == nil {
			missing = append(missing, w)
		}
	}
	return missing
}

// DayPlan is the content of a single weekday column.
type DayPlan struct {
	CompetencyDesc string   `json:"competencyDesc"`
	CompetencyCode string   `json:"competencyCode"`
	Topic          string   `json:"topic"`
	Objectives     []string `json:"objectives"`
	Review         string   `json:"review"`
	Purpose        string   `json:"purpose"`
	Examples       string   `json:"examples"`
	Discussion1    string   `json:"discussion1"`
	Discussion2    string   `json:"discussion2"`
	Mastery        string   `json:"mastery"`
	Application    string   `json:"application"`
	Generalization string   `json:"generalization"`
	Evaluation     string   `json:"evaluation"`
	AnswerKey      string   `json:"answerKey"`
	Remediation    string   `json:"remediation"`
	Remarks        string   `json:"remarks"`
}

// ProcedureStep is one of the ten fixed rows of section IV.
type ProcedureStep struct {
	Key   string
	Label []string // label lines, rendered with line breaks
	Note  string   // red annotation under the label
	Value func(DayPlan) string
}

// ProcedureSteps lists the procedure rows A to J in template order.
var ProcedureSteps = []ProcedureStep{
	{Key: "review", Label: []string{"A. Reviewing previous lesson", "or presenting the new", "lesson"},
		Value: func(d DayPlan) string { return d.Review }},
	{Key: "purpose", Label: []string{"B. Establishing a purpose for", "the lesson"},
		Value: func(d DayPlan) string { return d.Purpose }},
	{Key: "examples", Label: []string{"C. Presenting", "Examples/Instances of", "new lesson"},
		Value: func(d DayPlan) string { return d.Examples }},
	{Key: "discussion1", Label: []string{"D. Discussing new concepts", "and practicing new skills", "#1"},
		Value: func(d DayPlan) string { return d.Discussion1 }},
	{Key: "discussion2", Label: []string{"E. Discussing new concepts", "and practicing new skills", "#2"},
		Value: func(d DayPlan) string { return d.Discussion2 }},
	{Key: "mastery", Label: []string{"F. Developing mastery"}, Note: "(Leads to Formative Assessment)",
		Value: func(d DayPlan) string { return d.Mastery }},
	{Key: "application", Label: []string{"G. Finding practical", "applications of concepts", "and skills in daily living"},
		Value: func(d DayPlan) string { return d.Application }},
	{Key: "generalization", Label: []string{"H. Making generalizations", "and abstractions about", "the lesson"},
		Value: func(d DayPlan) string { return d.Generalization }},
	{Key: "evaluation", Label: []string{"I. Evaluating Learning"},
		Value: func(d DayPlan) string { return d.Evaluation }},
	{Key: "remediation", Label: []string{"J. Additional activities for", "application and", "remediation"},
		Value: func(d DayPlan) string { return d.Remediation }},
}

// ReflectionPrompts are the fixed rows of section VI.
var ReflectionPrompts = []string{
	"A. No. of learners who earned 80% on the formative assessment",
	"B. No. of learners who require additional activities for remediation who scored below 80%",
	"C. Did the remedial lessons work? No. of learners who have caught up with the lesson",
	"D. No. of learners who continue to require remediation",
	"E. Which of my teaching strategies worked well? Why did this work?",
	"F. What difficulties did I encounter which my principal or supervisor can help me solve?",
	"G. What innovation or localized materials did I use/discover which I wish to share with other teachers?",
}
