package ingest

import "strings"

const byteOrderMark = "\uFEFF"

// ParseRow splits one CSV line in a single pass. A double quote toggles
// the in-quote state and is not copied; commas split only outside
// quotes. Fields are trimmed and lose one layer of surrounding quotes.
// Doubled-quote escapes are not supported.
func ParseRow(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(current.String()))

	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// SplitLines strips a UTF-8 byte order mark, splits on LF or CRLF and
// drops blank lines.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, byteOrderMark)

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
