package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/config"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	result    *pipeline.Result
	err       error
	runs      []history.Run
	calls     int
	lastLimit int
}

func (f *fakeRunner) Run(_ context.Context, _ history.Trigger) (*pipeline.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeRunner) Recent(_ context.Context, limit int) ([]history.Run, error) {
	f.lastLimit = limit
	return f.runs, nil
}

type fakeAutomation struct {
	running bool
	specs   []string
}

func (f *fakeAutomation) Start() (bool, error) {
	was := f.running
	f.running = true
	return was, nil
}

func (f *fakeAutomation) Stop() bool {
	was := f.running
	f.running = false
	return was
}

func (f *fakeAutomation) Status() scheduler.Status {
	st := scheduler.Status{Running: f.running, Schedule: f.specs, NextRuns: []time.Time{}}
	if f.running {
		st.NextRuns = append(st.NextRuns, time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local))
	}
	return st
}

type mockProvider struct {
	response   string
	err        error
	configured bool
	prompt     string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return m.configured }

func (m *mockProvider) Name() string { return "huggingface" }

var dailySchedule = []string{"0 9 * * *", "0 13 * * *", "0 17 * * *", "0 21 * * *"}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.AllowedOrigin = "*"
	cfg.LLM.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	cfg.TTS.Provider = "google"
	cfg.TTS.Language = "te"
	cfg.TTS.OutputDir = t.TempDir()
	cfg.Automation.Schedule = dailySchedule
	cfg.Secrets.ChannelID = "UC123"
	cfg.Secrets.LLMAPIKey = "secret-llm-key"
	return cfg
}

type fixture struct {
	srv        *Server
	cfg        *config.Config
	runner     *fakeRunner
	automation *fakeAutomation
	provider   *mockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cfg:        testConfig(t),
		runner:     &fakeRunner{},
		automation: &fakeAutomation{specs: dailySchedule},
		provider:   &mockProvider{configured: true},
	}
	f.srv = New(f.cfg, f.runner, f.automation, f.provider)
	return f
}

func (f *fixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return rec, body
}

func TestIndexRoute(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, "GET", "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "running" {
		t.Errorf("expected status running, got %v", body["status"])
	}
	if body["videosPerDay"] != float64(4) {
		t.Errorf("expected 4 videos per day, got %v", body["videosPerDay"])
	}
	if body["aiProvider"] != "huggingface" {
		t.Errorf("unexpected aiProvider %v", body["aiProvider"])
	}
}

func TestGenerateVideoSuccess(t *testing.T) {
	f := newFixture(t)
	f.runner.result = &pipeline.Result{Success: true, RunID: "r1", AudioPath: "output/audio_1.mp3", Message: "Video processing complete!"}

	rec, body := f.do(t, "POST", "/api/generate-video")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["success"] != true || body["audioPath"] != "output/audio_1.mp3" {
		t.Errorf("unexpected body %v", body)
	}
	if body["message"] != "Video processing complete!" {
		t.Errorf("unexpected message %v", body["message"])
	}
}

func TestGenerateVideoFailureIsStill200(t *testing.T) {
	f := newFixture(t)
	f.runner.result = &pipeline.Result{Success: false, Error: "huggingface API error (500)", Details: "UpstreamError: huggingface API error (500)"}

	rec, body := f.do(t, "POST", "/api/generate-video")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("expected failure body, got %v", body)
	}
	if _, ok := body["audioPath"]; ok {
		t.Error("expected no audioPath on failure")
	}
}

func TestGenerateVideoConflict(t *testing.T) {
	f := newFixture(t)
	f.runner.err = scheduler.ErrRunInProgress

	rec, body := f.do(t, "POST", "/api/generate-video")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body)
	}
}

func TestStartAutomation(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, "POST", "/api/start-automation")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["success"] != true || body["alreadyRunning"] != false {
		t.Errorf("unexpected body %v", body)
	}
	if body["message"] != "Automation scheduled for 9AM, 1PM, 5PM, 9PM daily!" {
		t.Errorf("unexpected message %v", body["message"])
	}

	_, body = f.do(t, "POST", "/api/start-automation")
	if body["alreadyRunning"] != true {
		t.Error("expected second start to report alreadyRunning")
	}
}

func TestStopAutomationAndStatus(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/start-automation")

	_, body := f.do(t, "GET", "/api/automation")
	if body["running"] != true {
		t.Errorf("expected running, got %v", body)
	}
	if runs, _ := body["nextRuns"].([]any); len(runs) != 1 {
		t.Errorf("expected next runs, got %v", body["nextRuns"])
	}

	_, body = f.do(t, "POST", "/api/stop-automation")
	if body["success"] != true || body["message"] != "Automation stopped." {
		t.Errorf("unexpected stop body %v", body)
	}
	_, body = f.do(t, "POST", "/api/stop-automation")
	if body["message"] != "Automation was not running." {
		t.Errorf("unexpected second stop message %v", body["message"])
	}
}

func TestRunsRoute(t *testing.T) {
	f := newFixture(t)
	f.runner.runs = []history.Run{{ID: "r1", Trigger: history.TriggerScheduled, Result: &pipeline.Result{Success: true, RunID: "r1"}}}

	rec, body := f.do(t, "GET", "/api/runs?limit=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.runner.lastLimit != 3 {
		t.Errorf("expected limit 3, got %d", f.runner.lastLimit)
	}
	runs, _ := body["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %v", body["runs"])
	}
	if runs[0].(map[string]any)["trigger"] != "scheduled" {
		t.Errorf("unexpected run %v", runs[0])
	}

	f.do(t, "GET", "/api/runs")
	if f.runner.lastLimit != defaultRunsLimit {
		t.Errorf("expected default limit, got %d", f.runner.lastLimit)
	}

	rec, _ = f.do(t, "GET", "/api/runs?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestRunsRouteEmpty(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, "GET", "/api/runs")
	if !strings.Contains(rec.Body.String(), `"runs":[]`) {
		t.Errorf("expected empty runs array, got %s", rec.Body.String())
	}
}

func TestConfigRouteHidesSecrets(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, "GET", "/api/config")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-llm-key") {
		t.Error("credential value leaked into /api/config")
	}
	if body["hasAIKey"] != true || body["hasYouTubeKeys"] != false || body["configured"] != false {
		t.Errorf("unexpected presence flags %v", body)
	}
	if body["channelId"] != "UC123" || body["language"] != "te" {
		t.Errorf("unexpected body %v", body)
	}

	f.cfg.Secrets.YouTubeClientID = "id"
	f.cfg.Secrets.YouTubeClientSecret = "secret"
	_, body = f.do(t, "GET", "/api/config")
	if body["configured"] != true || body["hasYouTubeKeys"] != true {
		t.Errorf("expected configured with YouTube keys, got %v", body)
	}
}

func TestTestProviderRoute(t *testing.T) {
	f := newFixture(t)
	f.provider.response = "నమస్కారం"

	_, body := f.do(t, "GET", "/api/test-provider")
	if body["success"] != true || body["response"] != "నమస్కారం" {
		t.Errorf("unexpected body %v", body)
	}
	if f.provider.prompt != testPrompt {
		t.Errorf("expected prompt %q, got %q", testPrompt, f.provider.prompt)
	}

	f.provider.err = errors.New("401 unauthorized")
	rec, body := f.do(t, "GET", "/api/test-provider")
	if rec.Code != http.StatusOK || body["success"] != false || body["error"] != "401 unauthorized" {
		t.Errorf("unexpected failure response %d %v", rec.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, "OPTIONS", "/api/generate-video")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected origin header %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if f.runner.calls != 0 {
		t.Error("preflight must not trigger a run")
	}
}

func TestAudioServed(t *testing.T) {
	f := newFixture(t)
	os.WriteFile(filepath.Join(f.cfg.TTS.OutputDir, "audio_1.mp3"), []byte("mp3"), 0o644)

	rec, _ := f.do(t, "GET", "/audio/audio_1.mp3")
	if rec.Code != http.StatusOK || rec.Body.String() != "mp3" {
		t.Errorf("expected audio file, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestScheduleMessage(t *testing.T) {
	if got := scheduleMessage([]string{"0 8 * * *", "30 20 * * *"}); got != "Automation scheduled for 2 runs daily!" {
		t.Errorf("unexpected message %q", got)
	}
	if got := scheduleMessage([]string{"0 0 * * *"}); got != "Automation scheduled for 12AM daily!" {
		t.Errorf("unexpected message %q", got)
	}
}
