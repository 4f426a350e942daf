package models

import "testing"

func TestLessonInputFields(t *testing.T) {
	var in LessonInput
	if !in.Set("week", "Week 2") || in.Week != "Week 2" {
		t.Fatal("Set did not write the week")
	}
	if in.Set("nope", "x") {
		t.Fatal("unknown key accepted")
	}
	if v, ok := in.Get("week"); !ok || v != "Week 2" {
		t.Fatalf("Get = %q %v", v, ok)
	}
	if got := in.Values(); len(got) != 1 || got["week"] != "Week 2" {
		t.Fatalf("Values = %v", got)
	}
	if IsTextField(FieldLogoFile) || !IsFileField(FieldLogoFile) {
		t.Fatal("logo is a file field, not a text field")
	}
}

func TestHasGroundingSource(t *testing.T) {
	var in LessonInput
	if in.HasGroundingSource() {
		t.Fatal("empty input has no source")
	}
	in.Competency = "   "
	if in.HasGroundingSource() {
		t.Fatal("blank competency is not a source")
	}
	in.SetFile(FieldExemplarFile, &Attachment{Data: "aGk=", MimeType: "text/plain"})
	if !in.HasGroundingSource() {
		t.Fatal("exemplar file is a source")
	}
}

func TestDraftHasPlan(t *testing.T) {
	d := &Draft{Plan: &WeeklyPlan{}, Status: DraftFailed}
	if d.HasPlan() {
		t.Fatal("failed draft should not expose a plan")
	}
	d.Status = DraftGenerated
	if !d.HasPlan() {
		t.Fatal("generated draft should have a plan")
	}
	var nilDraft *Draft
	if nilDraft.HasPlan() {
		t.Fatal("nil draft has no plan")
	}
}
