package phonetic

import "testing"

func TestMatch_PhoneticHit(t *testing.T) {
	t.Parallel()
	m := New()
	entities := []string{"operating systems", "database notes", "algorithms"}

	corrected, conf, ok := m.Match("algorythms", entities)
	if !ok {
		t.Fatal("expected a match for a phonetically identical word")
	}
	if corrected != "algorithms" {
		t.Errorf("corrected: got %q, want %q", corrected, "algorithms")
	}
	if conf <= 0 {
		t.Errorf("confidence: got %f, want > 0", conf)
	}
}

func TestMatch_NoMatchLeavesWordUnchanged(t *testing.T) {
	t.Parallel()
	m := New()
	entities := []string{"operating systems", "database notes"}

	corrected, conf, ok := m.Match("photosynthesis", entities)
	if ok {
		t.Fatalf("expected no match, got %q", corrected)
	}
	if corrected != "photosynthesis" || conf != 0 {
		t.Errorf("unmatched word must be returned unchanged with zero confidence, got %q/%f", corrected, conf)
	}
}

func TestMatch_MultiWordEntity(t *testing.T) {
	t.Parallel()
	m := New()
	entities := []string{"operating systems", "computer networks"}

	corrected, _, ok := m.Match("operating sistems", entities)
	if !ok {
		t.Fatal("expected a match for a multi-word phrase")
	}
	if corrected != "operating systems" {
		t.Errorf("corrected: got %q, want %q", corrected, "operating systems")
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	t.Parallel()
	m := New()

	if _, _, ok := m.Match("", []string{"notes"}); ok {
		t.Error("empty word must not match")
	}
	if _, _, ok := m.Match("notes", nil); ok {
		t.Error("empty entity list must not match")
	}
}

func TestMatch_ThresholdRejectsWeakCandidates(t *testing.T) {
	t.Parallel()
	// With an impossibly high threshold, nothing should match.
	m := New(WithPhoneticThreshold(0.999), WithFuzzyThreshold(0.999))

	if _, _, ok := m.Match("algorythms", []string{"algorithms"}); ok {
		t.Error("threshold of 0.999 should reject a near-but-not-exact match")
	}
}

func TestMatch_ExactStringAlwaysWins(t *testing.T) {
	t.Parallel()
	m := New()
	entities := []string{"databases", "database notes"}

	corrected, conf, ok := m.Match("databases", entities)
	if !ok || corrected != "databases" {
		t.Fatalf("exact entity should match itself, got %q ok=%v", corrected, ok)
	}
	if conf < 0.99 {
		t.Errorf("exact match confidence: got %f, want ~1.0", conf)
	}
}

func TestMaxEntityWords(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		entities []string
		want     int
	}{
		{name: "empty", entities: nil, want: 1},
		{name: "single words", entities: []string{"algorithms", "databases"}, want: 1},
		{name: "multi word", entities: []string{"algorithms", "operating systems notes"}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxEntityWords(tt.entities); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
