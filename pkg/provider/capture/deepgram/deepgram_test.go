package deepgram

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/voxtutor/voxtutor/pkg/provider/capture"
)

func testSource(data []byte) AudioSource {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key", testSource(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.StreamConfig{Language: "en", SampleRate: 16000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "true", q.Get("interim_results"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURL_CustomOptions(t *testing.T) {
	p, err := New("key", testSource(nil), WithModel("base"), WithLanguage("de-DE"), WithSampleRate(48000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.StreamConfig{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "sample_rate", "48000", q.Get("sample_rate"))
}

func TestBuildURL_LanguageOverriddenByCfg(t *testing.T) {
	// cfg.Language takes precedence over the provider-level default.
	p, err := New("key", testSource(nil), WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.StreamConfig{Language: "fr-FR", SampleRate: 16000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "fr-FR", u.Query().Get("language"))
}

func TestBuildURL_Keywords(t *testing.T) {
	p, err := New("key", testSource(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.StreamConfig{Keywords: []string{"thermodynamics.pdf", "biology notes"}})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	kws := u.Query()["keywords"]
	if len(kws) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(kws), kws)
	}
	assertEqual(t, "keywords[0]", "thermodynamics.pdf", kws[0])
	assertEqual(t, "keywords[1]", "biology notes", kws[1])
}

// ---- constructor tests ----

func TestNew_Validation(t *testing.T) {
	if _, err := New("", testSource(nil)); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("key", nil); err == nil {
		t.Error("expected error for nil source")
	}
}

// ---- response parsing tests ----

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOK    bool
		wantText  string
		wantFinal bool
	}{
		{
			name:      "final result",
			input:     `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"explain photosynthesis","confidence":0.98}]}}`,
			wantOK:    true,
			wantText:  "explain photosynthesis",
			wantFinal: true,
		},
		{
			name:      "interim result",
			input:     `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"explain photo","confidence":0.6}]}}`,
			wantOK:    true,
			wantText:  "explain photo",
			wantFinal: false,
		},
		{
			name:   "metadata message ignored",
			input:  `{"type":"Metadata","duration":1.5}`,
			wantOK: false,
		},
		{
			name:   "empty transcript ignored",
			input:  `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":""}]}}`,
			wantOK: false,
		},
		{
			name:   "no alternatives ignored",
			input:  `{"type":"Results","is_final":true,"channel":{"alternatives":[]}}`,
			wantOK: false,
		},
		{
			name:   "invalid JSON ignored",
			input:  `{not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := parseResponse([]byte(tt.input))
			if ok != tt.wantOK {
				t.Fatalf("parseResponse ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(ev.Segments) != 1 {
				t.Fatalf("expected 1 segment, got %d", len(ev.Segments))
			}
			if ev.Segments[0].Text != tt.wantText {
				t.Errorf("text = %q, want %q", ev.Segments[0].Text, tt.wantText)
			}
			if ev.Segments[0].IsFinal != tt.wantFinal {
				t.Errorf("IsFinal = %v, want %v", ev.Segments[0].IsFinal, tt.wantFinal)
			}
		})
	}
}

// ---- helpers ----

func assertEqual(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}
