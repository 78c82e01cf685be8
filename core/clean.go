package core

import "strings"

// CleanBlock normalizes the body of an extracted block.  Line endings
// become \n, blank lines at either edge are dropped, the longest common
// leading-whitespace run is stripped, and every line is right-trimmed.
// Relative indentation between lines survives; only the shared prefix
// goes away.
func CleanBlock(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")

	// trim blank lines from both edges
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]
	if len(lines) == 0 {
		return ""
	}

	// shortest leading run of spaces or tabs among non-blank lines
	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := 0
		for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
			n++
		}
		if minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if minIndent > 0 && len(line) >= minIndent {
			line = line[minIndent:]
		}
		out[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(out, "\n")
}
