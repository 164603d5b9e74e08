package inference

import "strings"

// Phrase is one crisis indicator with its severity grade (1..10).
type Phrase struct {
	Text     string
	Severity int
}

// CrisisMatcher performs deterministic, case-insensitive substring matching
// against a reviewed phrase list. It runs on every message independently of
// the model backend, so crisis detection keeps working when the model is down.
// Substring semantics are the accepted baseline; "hopeless" inside a longer
// word still matches.
type CrisisMatcher struct {
	phrases []Phrase
}

func NewCrisisMatcher(phrases []Phrase) *CrisisMatcher {
	folded := make([]Phrase, 0, len(phrases))
	for _, p := range phrases {
		text := strings.ToLower(strings.TrimSpace(p.Text))
		if text == "" {
			continue
		}
		folded = append(folded, Phrase{Text: text, Severity: p.Severity})
	}
	return &CrisisMatcher{phrases: folded}
}

// Match returns the phrases found in text, in list order, and the highest
// severity among them. A detection mentioning suicide grades higher than one
// that only sounds hopeless.
func (m *CrisisMatcher) Match(text string) ([]string, int) {
	folded := strings.ToLower(text)
	var matched []string
	severity := 0
	for _, p := range m.phrases {
		if strings.Contains(folded, p.Text) {
			matched = append(matched, p.Text)
			if p.Severity > severity {
				severity = p.Severity
			}
		}
	}
	return matched, severity
}
