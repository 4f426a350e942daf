// internal/models/lesson.go
package models

import "strings"

// Attachment is a client-supplied file kept inline as base64.
type Attachment struct {
	Data     string `json:"data" yaml:"data"`
	MimeType string `json:"mimeType" yaml:"mime_type"`
	Name     string `json:"name" yaml:"name"`
}

// IsEmpty reports whether the attachment carries no payload.
func (a *Attachment) IsEmpty() bool {
	return a == nil || a.Data == ""
}

// LessonInput is the metadata collected by the form.
type LessonInput struct {
	School              string `json:"school" yaml:"school"`
	GradeLevel          string `json:"grade_level" yaml:"grade_level"`
	Teacher             string `json:"teacher" yaml:"teacher"`
	TeacherPosition     string `json:"teacher_position" yaml:"teacher_position"`
	LearningArea        string `json:"learning_area" yaml:"learning_area"`
	TeachingDates       string `json:"teaching_dates" yaml:"teaching_dates"`
	TeachingTime        string `json:"teaching_time" yaml:"teaching_time"`
	Quarter             string `json:"quarter" yaml:"quarter"`
	Week                string `json:"week" yaml:"week"`
	CheckerName         string `json:"checker_name" yaml:"checker_name"`
	CheckerDesignation  string `json:"checker_designation" yaml:"checker_designation"`
	Competency          string `json:"competency" yaml:"competency"`
	ContentStandard     string `json:"content_standard" yaml:"content_standard"`
	PerformanceStandard string `json:"performance_standard" yaml:"performance_standard"`
	Sources             string `json:"sources" yaml:"sources"`
	CustomInstructions  string `json:"custom_instructions" yaml:"custom_instructions"`
	LessonExemplar      string `json:"lesson_exemplar" yaml:"lesson_exemplar"`

	LogoFile     *Attachment `json:"logo_file,omitempty" yaml:"logo_file,omitempty"`
	ExemplarFile *Attachment `json:"exemplar_file,omitempty" yaml:"exemplar_file,omitempty"`
}

// File field keys accepted by the form.
const (
	FieldExemplarFile = "exemplar_file"
	FieldLogoFile     = "logo_file"
)

// textFields maps each settable key to its backing string.
func (in *LessonInput) textFields() map[string]*string {
	return map[string]*string{
		"school":               &in.School,
		"grade_level":          &in.GradeLevel,
		"teacher":              &in.Teacher,
		"teacher_position":     &in.TeacherPosition,
		"learning_area":        &in.LearningArea,
		"teaching_dates":       &in.TeachingDates,
		"teaching_time":        &in.TeachingTime,
		"quarter":              &in.Quarter,
		"week":                 &in.Week,
		"checker_name":         &in.CheckerName,
		"checker_designation":  &in.CheckerDesignation,
		"competency":           &in.Competency,
		"content_standard":     &in.ContentStandard,
		"performance_standard": &in.PerformanceStandard,
		"sources":              &in.Sources,
		"custom_instructions":  &in.CustomInstructions,
		"lesson_exemplar":      &in.LessonExemplar,
	}
}

// Set replaces a single text field. It returns false for unknown keys.
func (in *LessonInput) Set(key, value string) bool {
	ptr, ok := in.textFields()[key]
	if !ok {
		return false
	}
	*ptr = value
	return true
}

// Get returns the value of a text field.
func (in *LessonInput) Get(key string) (string, bool) {
	ptr, ok := in.textFields()[key]
	if !ok {
		return "", false
	}
	return *ptr, true
}

// Values returns the non-empty text fields keyed like Set.
func (in *LessonInput) Values() map[string]string {
	out := make(map[string]string)
	for key, ptr := range in.textFields() {
		if *ptr != "" {
			out[key] = *ptr
		}
	}
	return out
}

// IsTextField reports whether key names a settable text field.
func IsTextField(key string) bool {
	var in LessonInput
	_, ok := in.textFields()[key]
	return ok
}

// IsFileField reports whether key names an attachment slot.
func IsFileField(key string) bool {
	return key == FieldExemplarFile || key == FieldLogoFile
}

// SetFile stores or clears (nil) an attachment slot.
func (in *LessonInput) SetFile(field string, a *Attachment) bool {
	switch field {
	case FieldExemplarFile:
		in.ExemplarFile = a
	case FieldLogoFile:
		in.LogoFile = a
	default:
		return false
	}
	return true
}

// HasGroundingSource reports whether generation has something to work from:
// a competency, an exemplar text, or an exemplar file.
func (in *LessonInput) HasGroundingSource() bool {
	return strings.TrimSpace(in.Competency) != "" ||
		strings.TrimSpace(in.LessonExemplar) != "" ||
		!in.ExemplarFile.IsEmpty()
}
