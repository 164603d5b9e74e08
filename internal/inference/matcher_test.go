package inference

import "testing"

func TestMatcherDetectsReviewedPhrases(t *testing.T) {
	m := NewCrisisMatcher([]Phrase{
		{Text: "suicide", Severity: 10},
		{Text: "want to die", Severity: 9},
		{Text: "end my life", Severity: 10},
	})

	matched, severity := m.Match("I want to end my life")
	if len(matched) != 1 || matched[0] != "end my life" {
		t.Fatalf("expected [end my life], got %v", matched)
	}
	if severity != 10 {
		t.Fatalf("expected severity 10, got %d", severity)
	}

	if got, _ := m.Match("I am happy today"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestMatcherIsCaseInsensitive(t *testing.T) {
	m := NewCrisisMatcher([]Phrase{{Text: "hurt myself", Severity: 7}})

	if got, _ := m.Match("I might HURT Myself tonight"); len(got) != 1 {
		t.Fatalf("expected case-folded match, got %v", got)
	}
}

func TestMatcherGradesBySeverestPhrase(t *testing.T) {
	m := NewCrisisMatcher([]Phrase{
		{Text: "hopeless", Severity: 6},
		{Text: "suicide", Severity: 10},
	})

	matched, severity := m.Match("feeling hopeless, thinking about suicide")
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %v", matched)
	}
	if severity != 10 {
		t.Fatalf("suicide mention must outrank hopeless, got severity %d", severity)
	}

	_, severity = m.Match("everything feels hopeless")
	if severity != 6 {
		t.Fatalf("expected severity 6 for hopeless alone, got %d", severity)
	}
}

func TestMatcherSkipsEmptyPhrases(t *testing.T) {
	m := NewCrisisMatcher([]Phrase{{Text: ""}, {Text: "  "}, {Text: "suicide", Severity: 10}})

	if got, _ := m.Match("anything at all"); len(got) != 0 {
		t.Fatalf("empty phrases must not match everything, got %v", got)
	}
}
