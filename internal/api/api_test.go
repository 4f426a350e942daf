package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/llm"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/render"
	"github.com/Corphon/DLLArchitect/internal/services"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubProvider answers every request with text, optionally blocking until
// release is closed.
type stubProvider struct {
	mu      sync.Mutex
	text    string
	started chan struct{}
	release chan struct{}
}

func (p *stubProvider) Initialize(map[string]string) error       { return nil }
func (p *stubProvider) GetName() string                           { return "stub" }
func (p *stubProvider) GetSupportedModels() []string              { return []string{"stub-model"} }
func (p *stubProvider) FetchAvailableModels(context.Context) error { return nil }
func (p *stubProvider) SetCustomModels([]string)                  {}

func (p *stubProvider) GenerateContent(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	started, release := p.started, p.release
	p.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return &llm.GenerateResponse{Text: p.text, FinishReason: "STOP"}, nil
}

func stubDay(topic string) *models.DayPlan {
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
		Mastery:        "Short quiz",
		Application:    "Plan a home experiment",
		Generalization: "Investigations follow steps",
		Evaluation:     "1. What is a hypothesis?\n2. Q2\n3. Q3\n4. Q4\n5. Q5",
		AnswerKey:      "1. A testable guess",
		Remediation:    "Read pages 1-5",
	}
}

func stubPlanJSON(t *testing.T) string {
	t.Helper()
	plan := &models.WeeklyPlan{
		ContentStandards:     "Scientific ways of acquiring knowledge",
		PerformanceStandards: "Perform guided investigations",
		DailyPlans: models.DailyPlans{
			Monday:    stubDay("Mon"),
			Tuesday:   stubDay("Tue"),
			Wednesday: stubDay("Wed"),
			Thursday:  stubDay("Thu"),
			Friday:    stubDay("Fri"),
		},
	}
	b, err := json.Marshal(plan)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", Mode: gin.TestMode},
		LLM:    config.LLMConfig{Provider: "stub", Model: "stub-model", MaxConcurrent: 2},
		Form: config.FormConfig{
			MaxUploadBytes: 1 << 20,
			Defaults: map[string]string{
				"learning_area": "Science",
				"week":          "Week 1",
				"competency":    "Describe the components of a scientific investigation",
			},
		},
		Tracing:   config.TracingConfig{ServiceName: "dll-architect-test"},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 1000, GenerationsPerHour: 1000, GenerationBurstSize: 100},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}},
	}
}

type testServer struct {
	router  *Router
	handler *Handler
	metrics *utils.MetricsCollector
}

// newTestServer wires the API over an in-memory draft store. A nil provider
// models a missing API key.
func newTestServer(t *testing.T, provider llm.Provider) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, provider, testConfig())
}

func newTestServerWithConfig(t *testing.T, provider llm.Provider, cfg *config.Config) *testServer {
	t.Helper()

	store, err := storage.NewDraftStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	locks := services.NewLockManager()
	progress := services.NewProgressService()
	metrics := utils.NewMetricsCollector()

	var llmService *services.LLMService
	if provider == nil {
		llmService = services.NewLLMService(cfg.LLM)
	} else {
		llmService = services.NewLLMServiceWithProvider(provider, cfg.LLM)
	}

	h := NewHandler(
		services.NewFormService(store, locks, cfg.Form),
		services.NewGenerationService(llmService, store, locks, progress, metrics, cfg.LLM.MaxConcurrent),
		services.NewExportService(nil, metrics),
		llmService,
		progress,
		NewProgressSocket(progress, cfg.CORS.AllowedOrigins),
		cfg.Form.MaxUploadBytes,
	)
	r, err := SetupRouter(RouterConfig{Handler: h, Metrics: metrics, Config: cfg})
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}
	t.Cleanup(func() { r.Close(h) })
	return &testServer{router: r, handler: h, metrics: metrics}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) newDraft(t *testing.T) string {
	t.Helper()
	d, err := s.handler.FormService.NewDraft()
	if err != nil {
		t.Fatal(err)
	}
	return d.ID
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestHealthReportsMissingKey(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Status   string `json:"status"`
		LLMReady bool   `json:"llm_ready"`
	}
	json.Unmarshal(decode(t, w).Data, &data)
	if data.Status != "ok" || data.LLMReady {
		t.Errorf("health = %+v", data)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("request id header missing")
	}
}

func TestCreateAndUpdateDraft(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodPost, "/api/drafts", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var d models.Draft
	json.Unmarshal(decode(t, w).Data, &d)
	if d.ID == "" || d.Input.Week != "Week 1" {
		t.Fatalf("draft = %+v", d)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/drafts/"+d.ID, strings.NewReader(`{"school":"Rizal High"}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}
	json.Unmarshal(decode(t, w).Data, &d)
	if d.Input.School != "Rizal High" || d.Input.Week != "Week 1" {
		t.Errorf("update should replace one field only: %+v", d.Input)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/drafts/"+d.ID, strings.NewReader(`{"bogus":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	if w.Code != http.StatusUnprocessableEntity || decode(t, w).Error.Code != ErrorValidation {
		t.Errorf("unknown field: status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestUnknownDraft(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/drafts/nope", nil))
	if w.Code != http.StatusNotFound || decode(t, w).Error.Code != ErrorDraftNotFound {
		t.Errorf("api: status = %d body=%s", w.Code, w.Body.String())
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/drafts/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Draft not found") {
		t.Errorf("page: status = %d", w.Code)
	}
}

func TestIndexRedirectsToNewDraft(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusSeeOther || !strings.HasPrefix(w.Header().Get("Location"), "/drafts/") {
		t.Fatalf("status = %d location = %q", w.Code, w.Header().Get("Location"))
	}

	w = s.do(httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("form status = %d", w.Code)
	}
	for _, want := range []string{"Lesson Metadata", "Science", "Week 1", "Generate"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("form missing %q", want)
		}
	}
}

func TestUpdateFieldsPage(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.newDraft(t)

	form := url.Values{"teacher": {"Ana Reyes"}}
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/fields", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/fields", strings.NewReader(url.Values{"quarter": {"Second"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w = s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("json autosave status = %d", w.Code)
	}

	d, _ := s.handler.FormService.GetDraft(id)
	if d.Input.Teacher != "Ana Reyes" || d.Input.Quarter != "Second" {
		t.Errorf("input = %+v", d.Input)
	}
}

func TestGenerateWithoutKeyShowsSetup(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.newDraft(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/generate", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "GEMINI_API_KEY") {
		t.Errorf("page: status = %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/generate", nil))
	if w.Code != http.StatusServiceUnavailable || decode(t, w).Error.Code != ErrorAPIKeyMissing {
		t.Errorf("api: status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestGenerateThenExport(t *testing.T) {
	s := newTestServer(t, &stubProvider{text: stubPlanJSON(t)})
	id := s.newDraft(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/generate", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("generate status = %d body=%s", w.Code, w.Body.String())
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/drafts/"+id, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `id="`+render.ContentAreaID+`"`) {
		t.Errorf("preview missing the rendered log")
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/drafts/"+id+"/export/doc", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("doc status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != services.ContentTypeMSWord {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="DLL_Science_Week 1.doc"`) {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "\ufeff<html") {
		t.Error("document should start with a BOM")
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/drafts/"+id+"/export/clipboard", nil))
	var clip struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	}
	json.Unmarshal(decode(t, w).Data, &clip)
	if !strings.HasPrefix(clip.HTML, "<html><head>") || !strings.Contains(clip.Text, "MONDAY") {
		t.Errorf("clipboard = %+v", clip)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/drafts/"+id+"/print", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "window.print()") {
		t.Errorf("print status = %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/drafts/"+id+"/export?format=pdf", nil))
	if w.Code != http.StatusBadRequest || decode(t, w).Error.Code != ErrorExportFormatInvalid {
		t.Errorf("bad format: status = %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/reset", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("reset status = %d", w.Code)
	}
	d, _ := s.handler.FormService.GetDraft(id)
	if d.HasPlan() || d.Input.LearningArea != "Science" {
		t.Errorf("reset should drop the plan and keep the input: %+v", d)
	}
}

func TestExportBeforeGenerate(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.newDraft(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/drafts/"+id+"/export?format=doc", nil))
	if w.Code != http.StatusUnprocessableEntity || decode(t, w).Error.Code != ErrorExportFailed {
		t.Errorf("status = %d body=%s", w.Code, w.Body.String())
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/drafts/"+id+"/render", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("render status = %d", w.Code)
	}
}

func TestGenerateConflict(t *testing.T) {
	provider := &stubProvider{
		text:    stubPlanJSON(t),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(t, provider)
	id := s.newDraft(t)

	done := make(chan int, 1)
	go func() {
		done <- s.do(httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/generate", nil)).Code
	}()
	select {
	case <-provider.started:
	case <-time.After(5 * time.Second):
		t.Fatal("generation never reached the provider")
	}

	w := s.do(httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/generate", nil))
	if w.Code != http.StatusConflict || decode(t, w).Error.Code != ErrorGenerationInFlight {
		t.Errorf("second generate: status = %d", w.Code)
	}

	close(provider.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first generate status = %d", code)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestUploadAndRemoveLogo(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.newDraft(t)

	body, ct := multipartBody(t, "logo.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/files/"+models.FieldLogoFile, body)
	req.Header.Set("Content-Type", ct)
	w := s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", w.Code, w.Body.String())
	}
	d, _ := s.handler.FormService.GetDraft(id)
	if d.Input.LogoFile.IsEmpty() || d.Input.LogoFile.Name != "logo.png" {
		t.Fatalf("logo = %+v", d.Input.LogoFile)
	}

	body, ct = multipartBody(t, "notes.txt", []byte("plain text"))
	req = httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/files/"+models.FieldLogoFile, body)
	req.Header.Set("Content-Type", ct)
	if w := s.do(req); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("text logo: status = %d", w.Code)
	}

	body, ct = multipartBody(t, "logo.png", pngBytes(t))
	req = httptest.NewRequest(http.MethodPost, "/api/drafts/"+id+"/files/avatar", body)
	req.Header.Set("Content-Type", ct)
	if w := s.do(req); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown slot: status = %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/drafts/"+id+"/files/"+models.FieldLogoFile, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	d, _ = s.handler.FormService.GetDraft(id)
	if !d.Input.LogoFile.IsEmpty() {
		t.Error("logo not removed")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("metrics status = %d", w.Code)
	}
}
