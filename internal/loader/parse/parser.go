// Package parse turns a model reply into ordered mapping rows.
//
// The reply is expected to follow the loader grammar from package prompt.
// When the start marker is missing the parser falls back to scanning every
// delimited line and tags the result LowConfidence.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/prompt"
)

type Outcome int

const (
	Parsed Outcome = iota
	LowConfidence
)

func (o Outcome) String() string {
	if o == Parsed {
		return "parsed"
	}
	return "low-confidence"
}

type Result struct {
	Outcome  Outcome
	Rows     []documentModel.MappingRow
	Warnings []string
}

func (r Result) Confidence() documentModel.Confidence {
	if r.Outcome == Parsed {
		return documentModel.ConfidenceHigh
	}
	return documentModel.ConfidenceLow
}

var (
	separatorLine = regexp.MustCompile(`^\|?\s*:?-{2,}:?\s*(\|\s*:?-{2,}:?\s*)*\|?$`)
	leadingMarker = regexp.MustCompile(`^(?:[-*•·]+|\d{1,3}[.)])\s+`)
	fenceLine     = regexp.MustCompile("^```")
)

const fieldCount = 3

// Parse never fails; an empty or unusable reply yields no rows and LowConfidence.
func Parse(raw string) Result {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if isMarker(line, prompt.BeginMarker) {
			start = i
			break
		}
	}

	var res Result
	if start < 0 {
		res = scan(lines, false)
		res.Outcome = LowConfidence
		if len(res.Rows) > 0 {
			res.Warnings = append([]string{"start marker " + prompt.BeginMarker + " not found; rows recovered by fallback scan"}, res.Warnings...)
		}
		return res
	}

	block := lines[start+1:]
	for i, line := range block {
		if isMarker(line, prompt.EndMarker) {
			block = block[:i]
			break
		}
	}

	res = scan(block, true)
	res.Outcome = Parsed
	if len(res.Rows) == 0 || len(res.Warnings) > 0 {
		res.Outcome = LowConfidence
	}
	return res
}

// scan walks candidate lines. Inside a marked block every non-blank line is a
// row; outside one only lines carrying the delimiter are considered.
func scan(lines []string, strict bool) Result {
	var res Result
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || fenceLine.MatchString(trimmed) || separatorLine.MatchString(trimmed) {
			continue
		}
		if !strings.Contains(trimmed, "|") {
			if strict {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d dropped: no field delimiter", n+1))
			}
			continue
		}

		fields := splitFields(trimmed)
		if isHeader(fields) {
			continue
		}

		switch {
		case len(fields) == fieldCount:
		case len(fields) > fieldCount:
			note := cleanField(strings.Join(fields[fieldCount-1:], prompt.FieldSeparator))
			fields = append(fields[:fieldCount-1], note)
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d repaired: extra fields joined into note", n+1))
		default:
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d dropped: %d fields instead of %d", n+1, len(fields), fieldCount))
			continue
		}

		row := documentModel.MappingRow{
			SourceField: fields[0],
			TargetField: fields[1],
			Note:        fields[2],
		}
		if row.SourceField == "" && row.TargetField == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d dropped: empty source and target", n+1))
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func splitFields(line string) []string {
	line = leadingMarker.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)
	// markdown table rows carry outer pipes; a bare trailing pipe is an empty note
	if strings.HasPrefix(line, "|") {
		line = strings.TrimPrefix(line, "|")
		line = strings.TrimSuffix(line, "|")
	}

	parts := strings.Split(line, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = cleanField(p)
	}
	// a closing pipe without an opening one leaves empty trailing fields
	for len(fields) > fieldCount && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func cleanField(field string) string {
	f := strings.TrimSpace(field)
	f = leadingMarker.ReplaceAllString(f, "")
	for {
		before := f
		f = strings.TrimSpace(f)
		f = trimPair(f, `"`, `"`)
		f = trimPair(f, "'", "'")
		f = trimPair(f, "`", "`")
		f = trimPair(f, "“", "”")
		f = trimPair(f, "**", "**")
		if f == before {
			return f
		}
	}
}

func trimPair(s, open, close string) string {
	if len(s) >= len(open)+len(close) && strings.HasPrefix(s, open) && strings.HasSuffix(s, close) {
		return s[len(open) : len(s)-len(close)]
	}
	return s
}

func isHeader(fields []string) bool {
	if len(fields) != fieldCount {
		return false
	}
	for i, f := range fields {
		if !strings.EqualFold(f, prompt.HeaderFields[i]) {
			return false
		}
	}
	return true
}

func isMarker(line, marker string) bool {
	l := strings.TrimSpace(line)
	l = strings.Trim(l, "`*#: ")
	return strings.EqualFold(l, marker)
}
