package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ordenaclinic/ordenaclinic/internal/config"
	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/intake"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/middleware"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type namedPatient struct {
	Name string `json:"name"`
}

type reportNames struct {
	Arrival []namedPatient `json:"arrival"`
	Sorted  []namedPatient `json:"sorted"`
	Metrics struct {
		Algorithm   string `json:"algorithm"`
		Comparisons int    `json:"comparisons"`
		Stable      bool   `json:"stable"`
	} `json:"metrics"`
}

func sortedNames(r reportNames) string {
	names := make([]string, len(r.Sorted))
	for i, p := range r.Sorted {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

func TestDemoCmd_JSON(t *testing.T) {
	out, err := runCLI(t, "demo", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var r reportNames
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(r.Arrival) != 10 || r.Arrival[0].Name != "Ana" {
		t.Errorf("expected the example queue in arrival order, got %+v", r.Arrival)
	}
	want := "Caio,Ana,Duda,Fábio,João,Beto,Eva,Heitor,Gabi,Iara"
	if got := sortedNames(r); got != want {
		t.Errorf("sorted order = %s, want %s", got, want)
	}
	if r.Metrics.Algorithm != triage.AlgorithmMergeSort || !r.Metrics.Stable {
		t.Errorf("unexpected metrics: %+v", r.Metrics)
	}
}

func TestDemoCmd_Text(t *testing.T) {
	out, err := runCLI(t, "demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Arrival order", "Attendance order", "Caio", triage.AlgorithmMergeSort} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDemoCmd_UnknownFormat(t *testing.T) {
	if _, err := runCLI(t, "demo", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func writeDataset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSortCmd_File(t *testing.T) {
	path := writeDataset(t, `patients:
  - name: Ana
    age_years: 70
    triage: 1
  - name: Beto
    age_years: 30
    triage: 1
  - name: Caio
    age_years: 50
    triage: 0
`)

	out, err := runCLI(t, "sort", "--file", path, "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var r reportNames
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got := sortedNames(r); got != "Caio,Ana,Beto" {
		t.Errorf("sorted order = %s, want Caio,Ana,Beto", got)
	}
}

func TestSortCmd_InvalidPatient(t *testing.T) {
	path := writeDataset(t, `patients:
  - name: Ana
    age_years: 70
    triage: 1
  - name: ""
    age_years: 30
    triage: 1
`)

	_, err := runCLI(t, "sort", "--file", path)
	if err == nil {
		t.Fatal("expected error for a patient without a name")
	}
	if !strings.Contains(err.Error(), "patient 2") {
		t.Errorf("expected the error to name the patient position, got %v", err)
	}
}

func TestSortCmd_RequiresFile(t *testing.T) {
	if _, err := runCLI(t, "sort"); err == nil {
		t.Fatal("expected error when --file is missing")
	}
}

func TestApplyAction(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	opts := intake.Options{Out: &out}
	svc := triage.NewService(triage.NewMemoryRepo(), zerolog.Nop())

	if err := applyAction(ctx, svc, intake.ActionList, opts); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "Queue is empty") {
		t.Errorf("expected empty queue message, got %q", out.String())
	}

	out.Reset()
	if err := applyAction(ctx, svc, intake.ActionExample, opts); err != nil {
		t.Fatalf("example: %v", err)
	}
	if !strings.Contains(out.String(), "Loaded 10 example patients") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := applyAction(ctx, svc, intake.ActionSort, opts); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if !strings.Contains(out.String(), "Attendance order") {
		t.Errorf("expected sorted report, got %q", out.String())
	}

	out.Reset()
	if err := applyAction(ctx, svc, intake.ActionClear, opts); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if queue, _ := svc.CurrentQueue(ctx); len(queue) != 0 {
		t.Errorf("expected empty queue after clear, got %d", len(queue))
	}

	if err := applyAction(ctx, svc, "bogus", opts); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestSweepInterval(t *testing.T) {
	if got := sweepInterval(30 * time.Minute); got != time.Minute {
		t.Errorf("expected 1m, got %s", got)
	}
	if got := sweepInterval(time.Minute); got != 30*time.Second {
		t.Errorf("expected 30s, got %s", got)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		BodyLimit:      "1M",
		SessionTTL:     time.Minute,
		MaxSessions:    10,
	}
}

func serve(t *testing.T, srv *server, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set(triage.SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestServer_QueueFlow(t *testing.T) {
	srv, err := newServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	rec := serve(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id on every response")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	rec = serve(t, srv, http.MethodPost, "/api/v1/queue/patients", "", `{"name":"Ana","age_years":70,"triage_level":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	session := rec.Header().Get(triage.SessionHeader)
	if session == "" {
		t.Fatal("expected a session id to be assigned")
	}

	for _, body := range []string{
		`{"name":"Beto","age_years":30,"triage_level":1}`,
		`{"name":"Caio","age_years":50,"triage_level":0}`,
	} {
		if rec := serve(t, srv, http.MethodPost, "/api/v1/queue/patients", session, body); rec.Code != http.StatusCreated {
			t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec = serve(t, srv, http.MethodPost, "/api/v1/queue/sort", session, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sort: expected 200, got %d", rec.Code)
	}
	var sorted struct {
		Patients []namedPatient `json:"patients"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sorted); err != nil {
		t.Fatalf("decode sort response: %v", err)
	}
	if got := sortedNames(reportNames{Sorted: sorted.Patients}); got != "Caio,Ana,Beto" {
		t.Errorf("sorted order = %s, want Caio,Ana,Beto", got)
	}

	// a different session sees its own empty queue
	other := serve(t, srv, http.MethodGet, "/api/v1/queue", "", "")
	if other.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", other.Code)
	}
	if !strings.Contains(other.Body.String(), `"total":0`) {
		t.Errorf("expected an empty queue for a new session, got %s", other.Body.String())
	}
	if srv.sessions.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", srv.sessions.Len())
	}
}

func TestServer_ValidationError(t *testing.T) {
	srv, err := newServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	rec := serve(t, srv, http.MethodPost, "/api/v1/queue/patients", "", `{"name":"","age_years":30,"triage_level":1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"missing_name"`) {
		t.Errorf("expected the error code in the body, got %s", rec.Body.String())
	}
}

func TestServer_ExampleFileOverride(t *testing.T) {
	cfg := testConfig()
	cfg.ExampleFile = writeDataset(t, `patients:
  - name: Zeca
    age_years: 40
    triage: 2
`)
	srv, err := newServer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	rec := serve(t, srv, http.MethodPost, "/api/v1/queue/example", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Zeca") {
		t.Errorf("expected the override dataset, got %s", rec.Body.String())
	}
}

func TestServer_BadExampleFile(t *testing.T) {
	cfg := testConfig()
	cfg.ExampleFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newServer(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for a missing example file")
	}
}
