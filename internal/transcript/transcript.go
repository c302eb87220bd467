// Package transcript corrects misheard note filenames in committed voice
// utterances.
//
// Raw speech recognition output rarely gets filenames right: "os-notes.pdf"
// comes back as "oh es notes" and "dbms.md" as "dee bee em es". The
// [Corrector] scans an utterance with n-gram windows and replaces spans that
// phonetically match a known note filename with the actual filename, so the
// backend's retrieval filter sees the exact name it has indexed.
//
// Each [Correction] records the original span, the substituted filename, and
// the match confidence, so callers can display or log what changed.
//
// Corrector is safe for concurrent use.
package transcript

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/voxtutor/voxtutor/internal/transcript/phonetic"
)

// Correction captures a single span substitution made by the corrector.
type Correction struct {
	// Original is the span as heard by the capture engine.
	Original string

	// Corrected is the note filename substituted for the span.
	Corrected string

	// Confidence is the match confidence (0.0–1.0).
	Confidence float64
}

// Corrector replaces misheard filename spans in utterances with known note
// filenames. The known set is swapped wholesale on every inventory refresh
// via [Corrector.SetFilenames].
type Corrector struct {
	matcher *phonetic.Matcher

	mu sync.RWMutex
	// spoken forms ("os notes") to display filenames ("os-notes.pdf")
	display map[string]string
	spoken  []string
}

// NewCorrector returns a Corrector using the given phonetic matcher.
// A nil matcher gets the package defaults.
func NewCorrector(matcher *phonetic.Matcher) *Corrector {
	if matcher == nil {
		matcher = phonetic.New()
	}
	return &Corrector{
		matcher: matcher,
		display: make(map[string]string),
	}
}

// SetFilenames replaces the known filename set. Call it whenever the note
// inventory changes.
func (c *Corrector) SetFilenames(filenames []string) {
	display := make(map[string]string, len(filenames))
	spoken := make([]string, 0, len(filenames))
	for _, f := range filenames {
		s := spokenForm(f)
		if s == "" {
			continue
		}
		if _, dup := display[s]; !dup {
			spoken = append(spoken, s)
		}
		display[s] = f
	}

	c.mu.Lock()
	c.display = display
	c.spoken = spoken
	c.mu.Unlock()
}

// Correct scans text with n-gram windows and substitutes spans that match a
// known filename. Longer windows are tried first so multi-word filenames take
// precedence over partial single-word matches. The corrected text and the
// list of substitutions are returned; without matches the text comes back
// unchanged.
func (c *Corrector) Correct(text string) (string, []Correction) {
	c.mu.RLock()
	spoken := c.spoken
	display := c.display
	c.mu.RUnlock()

	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(spoken) == 0 {
		return text, nil
	}

	maxWindow := phonetic.MaxEntityWords(spoken)

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := maxWindow
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			entity, conf, ok := c.matcher.Match(window, spoken)
			if !ok {
				continue
			}
			filename, known := display[strings.ToLower(entity)]
			if !known {
				continue
			}

			output = append(output, filename)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  filename,
				Confidence: conf,
			})
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(output, " "), corrections
}

// spokenForm normalises a filename into the form a user would say it:
// extension stripped, separators replaced with spaces, lowercased.
func spokenForm(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	return strings.ToLower(strings.Join(strings.Fields(base), " "))
}
