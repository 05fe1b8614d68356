// Package prompt assembles the loader instruction sent to the model.
//
// The reply grammar is shared with package parse:
//
//	BEGIN_LOADER
//	source field | target field | note
//	END_LOADER
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	BeginMarker      = "BEGIN_LOADER"
	EndMarker        = "END_LOADER"
	FieldSeparator   = " | "
	TruncationMarker = "\n[...truncated]"

	AgreementLabel = "=== AGREEMENT DOCUMENT ==="
	StandardLabel  = "=== STANDARD DOCUMENT ==="
)

// HeaderFields is the optional header row the parser skips.
var HeaderFields = [3]string{"source field", "target field", "note"}

var ErrLimitTooSmall = errors.New("prompt limit must exceed the truncation marker")

const instructions = `You are generating a loader: a field mapping between an agreement document and a standard (IOT) document.
For every field the standard document defines, identify the agreement field or clause that supplies its value.

Output format (mandatory):
- Write a line containing only ` + BeginMarker + `.
- Then write one mapping per line as: source field | target field | note
- source field is the field or clause in the AGREEMENT DOCUMENT.
- target field is the field in the STANDARD DOCUMENT.
- note describes the transform, condition or value; leave it empty if there is none but keep both separators.
- Never use the | character inside a field. Do not number the rows or add bullets.
- Keep the rows in the order the fields appear in the standard document.
- Finish with a line containing only ` + EndMarker + `.`

const repairInstructions = `Your previous reply did not contain a usable loader block.
Return ONLY the corrected block, starting with a line containing only ` + BeginMarker + ` and ending with a line containing only ` + EndMarker + `.
Each line between them must be: source field | target field | note`

type Builder struct {
	maxChars int
}

// NewBuilder returns a Builder that truncates each input to maxChars runes.
func NewBuilder(maxChars int) (*Builder, error) {
	if maxChars <= utf8.RuneCountInString(TruncationMarker) {
		return nil, fmt.Errorf("%w: %d", ErrLimitTooSmall, maxChars)
	}
	return &Builder{maxChars: maxChars}, nil
}

func (b *Builder) MaxChars() int {
	return b.maxChars
}

// Build is pure: the same inputs always produce the same prompt.
func (b *Builder) Build(agreementText, standardText string) string {
	agreement, _ := b.Truncate(Normalize(agreementText))
	standard, _ := b.Truncate(Normalize(standardText))

	var sb strings.Builder
	sb.Grow(len(instructions) + len(agreement) + len(standard) + 256)
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	writeSection(&sb, AgreementLabel, agreement)
	sb.WriteString("\n")
	writeSection(&sb, StandardLabel, standard)
	return sb.String()
}

// BuildRepair asks the model to restate a reply that did not parse.
func (b *Builder) BuildRepair(previousReply string) string {
	previous, _ := b.Truncate(Normalize(previousReply))
	return repairInstructions + "\n\nPrevious reply:\n" + previous + "\n"
}

// Truncate cuts text to the limit, ending with TruncationMarker. Applying it to
// its own output is a no-op.
func (b *Builder) Truncate(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= b.maxChars {
		return text, false
	}
	keep := b.maxChars - utf8.RuneCountInString(TruncationMarker)
	cut := 0
	for i := range text {
		if keep == 0 {
			cut = i
			break
		}
		keep--
	}
	return text[:cut] + TruncationMarker, true
}

// Normalize drops NUL bytes and surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
}

func writeSection(sb *strings.Builder, label, body string) {
	end := strings.Replace(label, "=== ", "=== END ", 1)
	sb.WriteString(label)
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(end)
	sb.WriteString("\n")
}
