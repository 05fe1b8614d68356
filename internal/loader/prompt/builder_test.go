package prompt

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewBuilder_RejectsTinyLimit(t *testing.T) {
	if _, err := NewBuilder(utf8.RuneCountInString(TruncationMarker)); !errors.Is(err, ErrLimitTooSmall) {
		t.Errorf("expected ErrLimitTooSmall, got %v", err)
	}
	if _, err := NewBuilder(100); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	b, _ := NewBuilder(1000)
	a := "Agreement between A and B.\nSMS-MO rate 0.01"
	s := "Standard IOT form.\nField: SMS MO rate"

	first := b.Build(a, s)
	for i := 0; i < 5; i++ {
		if got := b.Build(a, s); got != first {
			t.Fatal("Build returned a different prompt for identical input")
		}
	}
}

func TestBuild_LabelsRolesAndGrammar(t *testing.T) {
	b, _ := NewBuilder(1000)
	p := b.Build("AGREEMENT-BODY", "STANDARD-BODY")

	for _, want := range []string{AgreementLabel, StandardLabel, BeginMarker, EndMarker, "source field | target field | note"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	ai := strings.Index(p, AgreementLabel)
	si := strings.Index(p, StandardLabel)
	if !(ai < strings.Index(p, "AGREEMENT-BODY") && strings.Index(p, "AGREEMENT-BODY") < si && si < strings.Index(p, "STANDARD-BODY")) {
		t.Error("document bodies are not placed under their own labels")
	}
}

func TestBuild_NormalizesInput(t *testing.T) {
	b, _ := NewBuilder(1000)
	p := b.Build("  \x00agreement\x00 text \n", "standard")
	if strings.Contains(p, "\x00") {
		t.Error("NUL bytes should be removed")
	}
	if !strings.Contains(p, AgreementLabel+"\nagreement text\n") {
		t.Errorf("agreement text not trimmed: %q", p)
	}
}

func TestTruncate(t *testing.T) {
	const limit = 40
	b, _ := NewBuilder(limit)

	tests := []struct {
		name      string
		in        string
		truncated bool
	}{
		{"short", "short text", false},
		{"exact", strings.Repeat("x", limit), false},
		{"long ascii", strings.Repeat("abcdef ", 20), true},
		{"long multibyte", strings.Repeat("é漢", 50), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := b.Truncate(tt.in)
			if cut != tt.truncated {
				t.Fatalf("truncated = %v, want %v", cut, tt.truncated)
			}
			if !cut {
				if got != tt.in {
					t.Errorf("untruncated text changed")
				}
				return
			}
			if !strings.HasSuffix(got, TruncationMarker) {
				t.Errorf("missing marker: %q", got)
			}
			if n := utf8.RuneCountInString(got); n != limit {
				t.Errorf("rune count = %d, want %d", n, limit)
			}
			if !utf8.ValidString(got) {
				t.Error("truncation split a rune")
			}
			again, cutAgain := b.Truncate(got)
			if cutAgain || again != got {
				t.Error("truncating twice is not a no-op")
			}
		})
	}
}

func TestBuild_TruncatesEachDocument(t *testing.T) {
	b, _ := NewBuilder(50)
	p := b.Build(strings.Repeat("a", 500), strings.Repeat("s", 500))

	if strings.Count(p, TruncationMarker) != 2 {
		t.Errorf("expected both documents to carry the truncation marker")
	}
	if strings.Contains(p, strings.Repeat("a", 50)) {
		t.Error("agreement text exceeds the limit")
	}
}

func TestBuildRepair(t *testing.T) {
	b, _ := NewBuilder(1000)
	p := b.BuildRepair("Sure! Here is the mapping: foo -> bar")
	if !strings.Contains(p, BeginMarker) || !strings.Contains(p, "foo -> bar") {
		t.Errorf("repair prompt incomplete: %q", p)
	}
}
