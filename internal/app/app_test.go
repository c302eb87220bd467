package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/voxtutor/voxtutor/internal/app"
	"github.com/voxtutor/voxtutor/internal/config"
	"github.com/voxtutor/voxtutor/internal/gateway"
	"github.com/voxtutor/voxtutor/internal/session"
)

// fakeBackend is a scriptable in-memory app.Backend.
type fakeBackend struct {
	mu sync.Mutex

	files   []gateway.FileInfo
	listErr error

	askResp *gateway.AskResponse
	askErr  error

	uploadResult *gateway.UploadResult
	uploadErr    error

	deleteResult *gateway.DeleteResult
	deleteErr    error

	healthyErr error

	askCalls    []gateway.AskRequest
	uploadCalls []string
	deleteCalls []string
}

func (b *fakeBackend) ListFiles(context.Context, string) ([]gateway.FileInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files, b.listErr
}

func (b *fakeBackend) Ask(_ context.Context, req gateway.AskRequest) (*gateway.AskResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.askCalls = append(b.askCalls, req)
	return b.askResp, b.askErr
}

func (b *fakeBackend) Upload(_ context.Context, _, filename string, content io.Reader) (*gateway.UploadResult, error) {
	io.Copy(io.Discard, content)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadCalls = append(b.uploadCalls, filename)
	return b.uploadResult, b.uploadErr
}

func (b *fakeBackend) DeleteFile(_ context.Context, _, filename string) (*gateway.DeleteResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls = append(b.deleteCalls, filename)
	return b.deleteResult, b.deleteErr
}

func (b *fakeBackend) Healthy(context.Context) error { return b.healthyErr }

// runApp builds an App around the fake backend, feeds it the given input
// lines, runs it to input exhaustion, and returns the produced output.
func runApp(t *testing.T, backend *fakeBackend, cfg *config.Config, input string) (string, *app.App) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}

	var out bytes.Buffer
	a, err := app.New(context.Background(), cfg, nil,
		app.WithBackend(backend),
		app.WithUserID("user_abc123def_1700000000000"),
		app.WithInput(strings.NewReader(input)),
		app.WithOutput(&out),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), a
}

func TestRunSeedsOnboardingMessage(t *testing.T) {
	t.Parallel()

	out, _ := runApp(t, &fakeBackend{}, nil, "")
	if !strings.Contains(out, "No notes uploaded yet. Upload a PDF or text file first!") {
		t.Errorf("output missing onboarding message:\n%s", out)
	}
}

func TestRunWelcomesReturningUser(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{files: []gateway.FileInfo{{Filename: "a.pdf"}, {Filename: "b.md"}}}
	out, _ := runApp(t, backend, nil, "")
	if !strings.Contains(out, "Welcome back! You have 2 note(s) ready.") {
		t.Errorf("output missing welcome message:\n%s", out)
	}
}

func TestAskRendersAnswerWithSources(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{askResp: &gateway.AskResponse{
		Answer: "A deadlock is a circular wait.",
		Sources: []gateway.SourceRef{
			{Source: "os-notes.pdf"},
			{Source: "os-notes.pdf"},
			{Source: ""},
		},
	}}
	out, _ := runApp(t, backend, nil, "what is a deadlock\n")

	if !strings.Contains(out, "> what is a deadlock") {
		t.Errorf("output missing user message:\n%s", out)
	}
	if !strings.Contains(out, "A deadlock is a circular wait.") {
		t.Errorf("output missing answer:\n%s", out)
	}
	if !strings.Contains(out, "Sources: os-notes.pdf, Note") {
		t.Errorf("output missing deduplicated sources:\n%s", out)
	}
}

func TestAskRendersRecommendedVideos(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{askResp: &gateway.AskResponse{
		Answer: "Watch these.\n**Recommended Videos:**\nhttps://www.youtube.com/watch?v=dQw4w9WgXcQ\n",
	}}
	out, _ := runApp(t, backend, nil, "show videos\n")

	if !strings.Contains(out, "https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		t.Errorf("output missing video link:\n%s", out)
	}
	if strings.Contains(out, "**Recommended Videos:**") {
		t.Errorf("marker leaked into output:\n%s", out)
	}
}

func TestUploadCommand(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("some notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := &fakeBackend{uploadResult: &gateway.UploadResult{Filename: "notes.txt", Action: "added"}}
	out, _ := runApp(t, backend, nil, "/upload "+path+"\n")

	if len(backend.uploadCalls) != 1 || backend.uploadCalls[0] != "notes.txt" {
		t.Errorf("upload calls: %v", backend.uploadCalls)
	}
	if !strings.Contains(out, "Added: notes.txt") {
		t.Errorf("output missing upload confirmation:\n%s", out)
	}
}

func TestUploadRejectsBadExtensionWithoutBackendCall(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	out, _ := runApp(t, backend, nil, "/upload notes.docx\n")

	if len(backend.uploadCalls) != 0 {
		t.Errorf("backend called for rejected upload: %v", backend.uploadCalls)
	}
	if !strings.Contains(out, "unsupported file type") {
		t.Errorf("output missing rejection:\n%s", out)
	}
}

func TestDeleteConfirmFlow(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		files:        []gateway.FileInfo{{Filename: "a.pdf"}},
		deleteResult: &gateway.DeleteResult{Success: true},
	}
	out, _ := runApp(t, backend, nil, "/delete a.pdf\ny\n")

	if len(backend.deleteCalls) != 1 || backend.deleteCalls[0] != "a.pdf" {
		t.Errorf("delete calls: %v", backend.deleteCalls)
	}
	if !strings.Contains(out, "Delete a.pdf permanently?") {
		t.Errorf("output missing confirmation prompt:\n%s", out)
	}
	if !strings.Contains(out, "Deleted: a.pdf") {
		t.Errorf("output missing delete confirmation:\n%s", out)
	}
}

func TestDeleteCancelFlow(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{files: []gateway.FileInfo{{Filename: "a.pdf"}}}
	out, _ := runApp(t, backend, nil, "/delete a.pdf\nn\n")

	if len(backend.deleteCalls) != 0 {
		t.Errorf("delete fired without confirmation: %v", backend.deleteCalls)
	}
	if !strings.Contains(out, "Delete cancelled.") {
		t.Errorf("output missing cancellation:\n%s", out)
	}
}

func TestModeCommandSwitchesAskMode(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{askResp: &gateway.AskResponse{Answer: "ok"}}
	out, _ := runApp(t, backend, nil, "/mode quiz\nquiz me\n")

	if !strings.Contains(out, "Active Mode: Quiz Master") {
		t.Errorf("output missing mode switch:\n%s", out)
	}
	if len(backend.askCalls) != 1 || backend.askCalls[0].Mode != "quiz" {
		t.Errorf("ask calls: %+v", backend.askCalls)
	}
}

func TestFilesCommandFilters(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{files: []gateway.FileInfo{
		{Filename: "algorithms.pdf", UploadedAt: "2026-08-01"},
		{Filename: "calculus.txt"},
	}}
	out, _ := runApp(t, backend, nil, "/files algo\n")

	if !strings.Contains(out, "Your Notes (1):") {
		t.Errorf("output missing filtered header:\n%s", out)
	}
	if !strings.Contains(out, "algorithms.pdf (uploaded 2026-08-01)") {
		t.Errorf("output missing file entry:\n%s", out)
	}
	if strings.Contains(out, "calculus.txt") {
		t.Errorf("filter leaked non-matching file:\n%s", out)
	}
}

func TestSpeakToggle(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	out, a := runApp(t, backend, nil, "/speak on\n")

	if !strings.Contains(out, "Spoken answers on.") {
		t.Errorf("output missing toggle confirmation:\n%s", out)
	}
	if !a.Store().AutoSpeak() {
		t.Error("auto-speak not enabled")
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	out, _ := runApp(t, &fakeBackend{}, nil, "/frobnicate\n")
	if !strings.Contains(out, "Unknown command /frobnicate") {
		t.Errorf("output missing unknown-command notice:\n%s", out)
	}
}

func TestListenWithoutProvider(t *testing.T) {
	t.Parallel()

	out, _ := runApp(t, &fakeBackend{}, nil, "/listen\n")
	if !strings.Contains(out, "Voice capture is not configured.") {
		t.Errorf("output missing degradation notice:\n%s", out)
	}
}

func TestAskFailurePrintsGenericMessage(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{askErr: errors.New("status 500: stack trace here")}
	out, _ := runApp(t, backend, nil, "anything\n")

	if !strings.Contains(out, "Sorry, something went wrong. Please try again.") {
		t.Errorf("output missing generic failure:\n%s", out)
	}
	if strings.Contains(out, "stack trace here") {
		t.Errorf("raw error leaked to transcript:\n%s", out)
	}
}

func TestApplyConfigHotReload(t *testing.T) {
	t.Parallel()

	oldCfg := &config.Config{}
	oldCfg.Server.LogLevel = config.LogInfo
	oldCfg.Session.DefaultMode = "study"

	var out bytes.Buffer
	level := new(slog.LevelVar)
	a, err := app.New(context.Background(), oldCfg, nil,
		app.WithBackend(&fakeBackend{}),
		app.WithUserID("user_abc123def_1700000000000"),
		app.WithInput(strings.NewReader("")),
		app.WithOutput(&out),
		app.WithLogLevelVar(level),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	newCfg := &config.Config{}
	newCfg.Server.LogLevel = config.LogDebug
	newCfg.Session.DefaultMode = "doubt"
	newCfg.Playback.AutoSpeak = true
	newCfg.Playback.Rate = 1.2

	a.ApplyConfig(newCfg)

	if level.Level() != slog.LevelDebug {
		t.Errorf("log level: got %v, want debug", level.Level())
	}
	if got := a.Store().Mode(); got != session.ModeDoubt {
		t.Errorf("mode: got %v, want doubt", got)
	}
	if !a.Store().AutoSpeak() {
		t.Error("auto-speak not enabled by reload")
	}
}
