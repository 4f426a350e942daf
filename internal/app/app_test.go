package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/di"
	"github.com/Corphon/DLLArchitect/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	dir := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Server.Mode = "test"
	cfg.Tracing.Enabled = false
	return cfg
}

func TestInitServicesRegistersEverything(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	c := di.NewContainer()
	if err := InitServices(cfg, c); err != nil {
		t.Fatalf("InitServices: %v", err)
	}
	if err := c.Require(di.Config, di.Files, di.Drafts, di.Metrics, di.Locks,
		di.Progress, di.LLM, di.Form, di.Generation, di.Export); err != nil {
		t.Fatal(err)
	}
	if _, err := di.Resolve[*services.FormService](c, di.Form); err != nil {
		t.Fatal(err)
	}
}

func TestNewServesHealthWithoutAPIKey(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.router.Close(a.handler)

	w := httptest.NewRecorder()
	a.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status   string `json:"status"`
			LLMReady bool   `json:"llm_ready"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Data.Status != "ok" || body.Data.LLMReady {
		t.Errorf("unexpected health: %+v", body)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = "0"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	select {
	case <-a.stopChan:
	default:
		t.Fatal("stop channel not closed")
	}
}
