package elevenlabs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/voxtutor/voxtutor/pkg/provider/synth"
)

func assertEqual[T comparable](t *testing.T, got, want T, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty apiKey")
	}
	p, err := New("key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, p.model, defaultModel, "default model")
	assertEqual(t, p.outputFormat, defaultOutputFmt, "default output format")
}

func TestNew_Options(t *testing.T) {
	p, err := New("key", WithModel("eleven_turbo_v2"), WithOutputFormat("pcm_24000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, p.model, "eleven_turbo_v2", "model option")
	assertEqual(t, p.outputFormat, "pcm_24000", "output format option")
}

func TestResolveVoiceID_DefaultsForZeroVoice(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, p.resolveVoiceID(synth.Voice{}), defaultVoiceID, "zero voice")
	assertEqual(t, p.resolveVoiceID(synth.Voice{ID: "v1"}), "v1", "explicit voice")

	p, err = New("key", WithDefaultVoice("custom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, p.resolveVoiceID(synth.Voice{}), "custom", "configured default")
}

func TestBuildURLForVoice(t *testing.T) {
	url := buildURLForVoice("voice123", "eleven_flash_v2_5")
	if !strings.HasPrefix(url, "wss://api.elevenlabs.io/v1/text-to-speech/voice123/") {
		t.Errorf("unexpected URL prefix: %s", url)
	}
	if !strings.Contains(url, "model_id=eleven_flash_v2_5") {
		t.Errorf("URL missing model_id: %s", url)
	}
}

func TestBuildWSMessage(t *testing.T) {
	payload, err := buildWSMessage("hello world", &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	assertEqual(t, got["text"].(string), "hello world", "text field")
	if _, ok := got["voice_settings"]; !ok {
		t.Error("expected voice_settings in payload")
	}

	flush, err := buildWSMessage("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var flushGot map[string]any
	if err := json.Unmarshal(flush, &flushGot); err != nil {
		t.Fatalf("flush payload is not valid JSON: %v", err)
	}
	assertEqual(t, flushGot["text"].(string), "", "flush text field")
	if _, ok := flushGot["voice_settings"]; ok {
		t.Error("flush payload must not carry voice_settings")
	}
}

func TestSettingsForParams(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		wantSpeed float64
	}{
		{name: "default rate omitted", rate: 1.0, wantSpeed: 0},
		{name: "zero rate omitted", rate: 0, wantSpeed: 0},
		{name: "slower rate kept", rate: 0.95, wantSpeed: 0.95},
		{name: "faster rate kept", rate: 1.3, wantSpeed: 1.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := settingsForParams(synth.Params{Rate: tt.rate})
			assertEqual(t, vs.Speed, tt.wantSpeed, "speed")
			assertEqual(t, vs.Stability, 0.5, "stability")
			assertEqual(t, vs.SimilarityBoost, 0.75, "similarity boost")
		})
	}
}

func TestParseVoicesResponse(t *testing.T) {
	raw := []byte(`{
		"voices": [
			{"voice_id": "v1", "name": "Rachel", "category": "premade", "labels": {"accent": "american"}},
			{"voice_id": "v2", "name": "Clyde", "category": "premade", "labels": {}}
		]
	}`)
	voices, err := parseVoicesResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEqual(t, len(voices), 2, "voice count")
	assertEqual(t, voices[0].ID, "v1", "first voice ID")
	assertEqual(t, voices[0].Name, "Rachel", "first voice name")
	assertEqual(t, voices[0].Provider, "elevenlabs", "provider tag")
	assertEqual(t, voices[0].Metadata["accent"], "american", "label carried into metadata")
	assertEqual(t, voices[0].Metadata["category"], "premade", "category in metadata")
	assertEqual(t, voices[1].ID, "v2", "second voice ID")
}

func TestParseVoicesResponse_Invalid(t *testing.T) {
	if _, err := parseVoicesResponse([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
