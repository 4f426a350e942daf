package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/llm"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// fakeProvider records requests and answers with a canned body.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	lastReq llm.GenerateRequest
	text    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeProvider) Initialize(map[string]string) error { return nil }
func (f *fakeProvider) GetName() string                     { return "fake" }
func (f *fakeProvider) GetSupportedModels() []string        { return []string{"fake-model"} }
func (f *fakeProvider) FetchAvailableModels(context.Context) error {
	return nil
}
func (f *fakeProvider) SetCustomModels([]string) {}

func (f *fakeProvider) GenerateContent(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{Text: f.text, FinishReason: "STOP"}, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleDay(topic string) *models.DayPlan {
	return &models.DayPlan{
		CompetencyDesc: "Describe the components of a scientific investigation",
		CompetencyCode: "S7MT-Ia-1",
		Topic:          topic,
		Objectives:     []string{"Identify the steps", "Explain each step"},
		Review:         "Recall last week's lesson",
		Purpose:        "Why do scientists investigate?",
		Examples:       "1. Boiling water\n2. Rusting nail",
		Discussion1:    "Discuss the problem statement",
		Discussion2:    "Discuss hypotheses",
		Mastery:        "- Group work\n- Short quiz",
		Application:    "Plan a home experiment",
		Generalization: "Investigations follow steps",
		Evaluation:     "1. What is a hypothesis?\n2. What is a variable?\n3. Q3\n4. Q4\n5. Q5",
		AnswerKey:      "1. A testable guess\n2. A factor\n3. A\n4. B\n5. C",
		Remediation:    "Read pages 1-5",
		Remarks:        "Lesson carried",
	}
}

func samplePlan() *models.WeeklyPlan {
	return &models.WeeklyPlan{
		ContentStandards:     "The learners demonstrate understanding of scientific ways of acquiring knowledge",
		PerformanceStandards: "The learners shall be able to perform in groups guided investigations",
		References: models.References{
			TeacherGuide:        "pp. 1-10",
			LearnerMaterial:     "pp. 2-12",
			Textbook:            []string{"Science Links pp. 5-9"},
			AdditionalResources: []string{"LR portal video"},
			OtherResources:      "Laboratory apparatus",
		},
		DailyPlans: models.DailyPlans{
			Monday:    sampleDay("Scientific Investigation"),
			Tuesday:   sampleDay("Problem and Hypothesis"),
			Wednesday: sampleDay("Variables"),
			Thursday:  sampleDay("Data Gathering"),
			Friday:    sampleDay("Weekly Assessment"),
		},
	}
}

func samplePlanJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(samplePlan())
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

type testEnv struct {
	store    *storage.DraftStore
	locks    *LockManager
	progress *ProgressService
	metrics  *utils.MetricsCollector
	form     *FormService
	gen      *GenerationService
}

// newTestEnv wires the services with provider; a nil provider models a
// missing credential.
func newTestEnv(t *testing.T, provider llm.Provider) *testEnv {
	t.Helper()
	store, err := storage.NewDraftStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	locks := NewLockManager()
	progress := NewProgressService()
	metrics := utils.NewMetricsCollector()
	cfg := config.FormConfig{
		MaxUploadBytes: 1 << 20,
		Defaults:       map[string]string{"week": "Week 1", "learning_area": "Science"},
	}
	llmCfg := config.LLMConfig{Provider: "fake", Model: "fake-model", ThinkingBudget: 15000}

	var llmService *LLMService
	if provider == nil {
		llmService = NewLLMService(llmCfg)
	} else {
		llmService = NewLLMServiceWithProvider(provider, llmCfg)
	}

	return &testEnv{
		store:    store,
		locks:    locks,
		progress: progress,
		metrics:  metrics,
		form:     NewFormService(store, locks, cfg),
		gen:      NewGenerationService(llmService, store, locks, progress, metrics, 2),
	}
}
