// Package session holds the conversation state of one study session and
// serialises user intents into backend calls.
//
// The Store owns the transcript (an append-only message sequence), the file
// inventory, the active answering mode and the auto-speak flag. It enforces
// the single-outstanding-question rule, validates uploads before they reach
// the network, and gates destructive deletes behind a two-step confirm.
// Backend failures never surface raw error detail in the transcript; they
// become short curated messages and the session returns to a ready state.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voxtutor/voxtutor/internal/gateway"
	"github.com/voxtutor/voxtutor/internal/observe"
)

// MaxUploadSize is the per-file upload ceiling.
const MaxUploadSize = 100 * 1024 * 1024

// Transcript message strings. Kept short and free of internal error detail.
const (
	msgOnboarding = "No notes uploaded yet. Upload a PDF or text file first!"
	msgAskFailed  = "Sorry, something went wrong. Please try again."
	msgDeleteFail = "Delete failed."
)

// Store errors returned before any network round-trip.
var (
	// ErrEmptyQuestion is returned by Ask for blank input.
	ErrEmptyQuestion = errors.New("session: question is empty")

	// ErrAskInFlight is returned by Ask while a previous question is still
	// being answered.
	ErrAskInFlight = errors.New("session: a question is already in flight")

	// ErrUnsupportedFileType is returned by Upload for files that are not
	// PDF, plain text or markdown.
	ErrUnsupportedFileType = errors.New("session: unsupported file type")

	// ErrFileTooLarge is returned by Upload when the file exceeds
	// MaxUploadSize.
	ErrFileTooLarge = errors.New("session: file exceeds size limit")

	// ErrUnknownFile is returned by RequestDelete for a filename that is
	// not in the inventory.
	ErrUnknownFile = errors.New("session: no such file")

	// ErrNoDeleteCandidate is returned by ConfirmDelete when no delete was
	// requested.
	ErrNoDeleteCandidate = errors.New("session: no delete pending")
)

var allowedExtensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

// Role identifies the author of a transcript message.
type Role string

// Transcript roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one immutable transcript entry.
type Message struct {
	Role    Role
	Text    string
	Sources []gateway.SourceRef
}

// Gateway is the backend surface the Store depends on.
type Gateway interface {
	ListFiles(ctx context.Context, userID string) ([]gateway.FileInfo, error)
	Upload(ctx context.Context, userID, filename string, content io.Reader) (*gateway.UploadResult, error)
	Ask(ctx context.Context, req gateway.AskRequest) (*gateway.AskResponse, error)
	DeleteFile(ctx context.Context, userID, filename string) (*gateway.DeleteResult, error)
}

// Speaker voices assistant answers. The playback Controller satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Inventory receives the current filename list whenever it changes. The
// transcript corrector uses it to keep its vocabulary in sync.
type Inventory interface {
	SetFilenames(names []string)
}

// Config carries the dependencies for a Store.
type Config struct {
	// Gateway performs the backend calls. Required.
	Gateway Gateway

	// UserID scopes all backend calls to one user's data. Required.
	UserID string

	// Speaker voices answers when auto-speak is on. Optional.
	Speaker Speaker

	// Inventory is notified of filename changes. Optional.
	Inventory Inventory

	// OnNotice receives blocking user notices (e.g. a failed delete).
	// Optional.
	OnNotice func(text string)

	// Mode is the initial answering mode. Defaults to ModeStudy.
	Mode Mode

	// AutoSpeak enables voicing answers from the start.
	AutoSpeak bool

	// Logger receives diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics records question/upload/delete counts. Optional.
	Metrics *observe.Metrics
}

// Store is the conversation state machine. Safe for concurrent use.
type Store struct {
	gw        Gateway
	userID    string
	speaker   Speaker
	inventory Inventory
	onNotice  func(string)
	logger    *slog.Logger
	metrics   *observe.Metrics

	mu        sync.Mutex
	messages  []Message
	files     []gateway.FileInfo
	mode      Mode
	autoSpeak bool
	asking    bool
	candidate *gateway.FileInfo
}

// New builds a Store from cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("session: user id is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStudy
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("session: unknown mode %q", cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		gw:        cfg.Gateway,
		userID:    cfg.UserID,
		speaker:   cfg.Speaker,
		inventory: cfg.Inventory,
		onNotice:  cfg.OnNotice,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		mode:      cfg.Mode,
		autoSpeak: cfg.AutoSpeak,
	}, nil
}

// Init fetches the file inventory and seeds the transcript with exactly one
// opening message: onboarding when the user has no notes yet (or the
// inventory could not be fetched), a welcome-back count otherwise. Called
// once at session start.
func (s *Store) Init(ctx context.Context) {
	files, err := s.gw.ListFiles(ctx, s.userID)
	if err != nil {
		s.logger.Debug("no files yet for this user", "error", err)
		s.append(Message{Role: RoleSystem, Text: msgOnboarding})
		return
	}
	s.setFiles(files)
	if len(files) == 0 {
		s.append(Message{Role: RoleSystem, Text: msgOnboarding})
		return
	}
	s.append(Message{Role: RoleSystem, Text: fmt.Sprintf("Welcome back! You have %d note(s) ready.", len(files))})
}

// Ask submits a question in the current mode. Blank questions and questions
// asked while another is in flight are rejected before any state changes.
// The user message is appended immediately; the assistant (or failure)
// message is appended when the backend responds. Ask blocks until then.
func (s *Store) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.asking {
		s.mu.Unlock()
		return ErrAskInFlight
	}
	s.asking = true
	mode := s.mode
	autoSpeak := s.autoSpeak
	s.messages = append(s.messages, Message{Role: RoleUser, Text: question})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.asking = false
		s.mu.Unlock()
	}()

	start := time.Now()
	resp, err := s.gw.Ask(ctx, gateway.AskRequest{
		Question: question,
		UserID:   s.userID,
		Mode:     string(mode),
	})
	if s.metrics != nil {
		s.metrics.AskDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Warn("ask failed", "mode", mode, "error", err)
		if s.metrics != nil {
			s.metrics.RecordQuestion(ctx, string(mode), "error")
			s.metrics.RecordBackendError(ctx, "ask")
		}
		s.append(Message{Role: RoleAssistant, Text: msgAskFailed})
		return nil
	}

	s.append(Message{Role: RoleAssistant, Text: resp.Answer, Sources: resp.Sources})
	if s.metrics != nil {
		s.metrics.RecordQuestion(ctx, string(mode), "ok")
	}
	if autoSpeak && s.speaker != nil {
		s.speaker.Speak(ctx, resp.Answer)
	}
	return nil
}

// Asking reports whether a question is currently in flight.
func (s *Store) Asking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asking
}

// Upload validates and uploads one file, then refreshes the inventory from
// the backend. Type and size violations are rejected before any network
// traffic.
func (s *Store) Upload(ctx context.Context, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("session: upload: %w", err)
	}
	if info.Size() > MaxUploadSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("session: upload: %w", err)
	}
	defer f.Close()

	start := time.Now()
	result, err := s.gw.Upload(ctx, s.userID, filepath.Base(path), f)
	if s.metrics != nil {
		s.metrics.UploadDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Warn("upload failed", "file", filepath.Base(path), "error", err)
		if s.metrics != nil {
			s.metrics.RecordUpload(ctx, "error")
			s.metrics.RecordBackendError(ctx, "upload")
		}
		s.append(Message{Role: RoleSystem, Text: fmt.Sprintf("Upload failed: %s", shortReason(err))})
		return nil
	}

	action := "Added"
	if result.Action == "replaced" {
		action = "Updated"
	}
	s.append(Message{Role: RoleSystem, Text: fmt.Sprintf("%s: %s", action, result.Filename)})
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, "ok")
	}
	s.refreshFiles(ctx)
	return nil
}

// RequestDelete marks filename as the delete candidate. The delete only
// fires on a subsequent ConfirmDelete.
func (s *Store) RequestDelete(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].Filename == filename {
			f := s.files[i]
			s.candidate = &f
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownFile, filename)
}

// DeleteCandidate returns the file awaiting confirmation, or nil.
func (s *Store) DeleteCandidate() *gateway.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate == nil {
		return nil
	}
	f := *s.candidate
	return &f
}

// CancelDelete discards the pending delete candidate.
func (s *Store) CancelDelete() {
	s.mu.Lock()
	s.candidate = nil
	s.mu.Unlock()
}

// ConfirmDelete performs the pending delete. On success the transcript gets
// a system message and the inventory is refreshed; on failure a blocking
// notice is raised and the inventory is left untouched. The candidate is
// cleared either way.
func (s *Store) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	candidate := s.candidate
	s.candidate = nil
	s.mu.Unlock()
	if candidate == nil {
		return ErrNoDeleteCandidate
	}

	result, err := s.gw.DeleteFile(ctx, s.userID, candidate.Filename)
	if err != nil {
		s.logger.Warn("delete failed", "file", candidate.Filename, "error", err)
		if s.metrics != nil {
			s.metrics.RecordBackendError(ctx, "delete")
		}
		s.notify(msgDeleteFail)
		return nil
	}

	s.append(Message{Role: RoleSystem, Text: fmt.Sprintf("Deleted: %s", candidate.Filename)})
	if s.metrics != nil {
		s.metrics.RecordDelete(ctx)
	}
	if result != nil && result.Files != nil {
		s.setFiles(result.Files)
	} else {
		s.refreshFiles(ctx)
	}
	return nil
}

// SetMode switches the answering mode for subsequent questions.
func (s *Store) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("session: unknown mode %q", mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

// Mode returns the active answering mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetAutoSpeak toggles voicing of assistant answers.
func (s *Store) SetAutoSpeak(on bool) {
	s.mu.Lock()
	s.autoSpeak = on
	s.mu.Unlock()
}

// AutoSpeak reports whether answers are voiced.
func (s *Store) AutoSpeak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSpeak
}

// Messages returns a copy of the transcript.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Files returns a copy of the current file inventory.
func (s *Store) Files() []gateway.FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gateway.FileInfo, len(s.files))
	copy(out, s.files)
	return out
}

// FilterFiles returns the inventory entries whose filename contains query,
// case-insensitively. An empty query returns everything.
func (s *Store) FilterFiles(query string) []gateway.FileInfo {
	query = strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []gateway.FileInfo
	for _, f := range s.files {
		if strings.Contains(strings.ToLower(f.Filename), query) {
			out = append(out, f)
		}
	}
	return out
}

// RefreshFiles re-fetches the inventory from the backend.
func (s *Store) RefreshFiles(ctx context.Context) {
	s.refreshFiles(ctx)
}

func (s *Store) refreshFiles(ctx context.Context) {
	files, err := s.gw.ListFiles(ctx, s.userID)
	if err != nil {
		s.logger.Warn("file list refresh failed", "error", err)
		return
	}
	s.setFiles(files)
}

func (s *Store) setFiles(files []gateway.FileInfo) {
	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	if s.inventory != nil {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Filename
		}
		s.inventory.SetFilenames(names)
	}
}

func (s *Store) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Store) notify(text string) {
	if s.onNotice != nil {
		s.onNotice(text)
	}
}

// shortReason trims an error chain down to a single displayable line.
func shortReason(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
