package core

// CallSite is one complete, balanced call to a named function found in
// source text.  Offsets are byte offsets into the scanned buffer.
type CallSite struct {
	// Start is the offset of the first byte of the call name.
	Start int
	// End is the offset just past the matching closing paren.
	End int
	// RawArgs is the argument text between the parens, verbatim.
	RawArgs string
	// Prompt is the unescaped text of a string literal appearing first
	// in the argument list, when there is one.
	Prompt    string
	HasPrompt bool
}

// FindCalls returns every complete call to name in src, in source order.
// A call counts only when the name starts in code mode as a whole token;
// names inside strings or comments, or embedded in longer identifiers,
// are ignored.  Parens inside nested strings do not affect the depth
// count, and a call still open at the end of the buffer is dropped.
// Matching is left to right and non-overlapping, so a call appearing
// inside another call's argument list is covered by the outer span.
func FindCalls(src, name string) (calls []CallSite) {
	if name == "" {
		return
	}
	modes := ScanModes(src)
	for i := 0; i+len(name) <= len(src); i++ {
		if modes[i] != Code || src[i:i+len(name)] != name {
			continue
		}
		// whole-token check: reject matches like "rawinput("
		if i > 0 && isIdentChar(src[i-1]) {
			continue
		}
		// optional whitespace, then the opening paren
		j := i + len(name)
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		if j >= len(src) || src[j] != '(' || modes[j] != Code {
			continue
		}
		// walk to the matching close, counting parens only in code mode
		depth := 1
		k := j + 1
		for ; k < len(src); k++ {
			if modes[k] != Code {
				continue
			}
			if src[k] == '(' {
				depth++
			} else if src[k] == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if depth != 0 {
			// unterminated call; not an error, just not a call site
			continue
		}
		call := CallSite{
			Start:   i,
			End:     k + 1,
			RawArgs: src[j+1 : k],
		}
		call.Prompt, call.HasPrompt = leadingStringArg(call.RawArgs)
		calls = append(calls, call)
		// resume after the call so its arguments are not rescanned
		i = k
	}
	return
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// leadingStringArg parses an optional string literal at the start of an
// argument list and returns its unescaped text.  An f prefix is allowed
// the same way the scanner allows it.  Anything other than a leading
// literal, including an unterminated one, reports no prompt.
func leadingStringArg(args string) (prompt string, ok bool) {
	i := 0
	for i < len(args) && isSpace(args[i]) {
		i++
	}
	if i < len(args) && (args[i] == 'f' || args[i] == 'F') &&
		i+1 < len(args) && (args[i+1] == '\'' || args[i+1] == '"') {
		i++
	}
	if i >= len(args) || (args[i] != '\'' && args[i] != '"') {
		return "", false
	}
	q := args[i]
	// triple form first, same priority rule as the scanner
	if i+2 < len(args) && args[i+1] == q && args[i+2] == q {
		body := args[i+3:]
		end := indexTriple(body, q)
		if end < 0 {
			return "", false
		}
		return body[:end], true
	}
	var out []byte
	for j := i + 1; j < len(args); j++ {
		c := args[j]
		if c == '\\' {
			if j+1 >= len(args) {
				return "", false
			}
			out = append(out, args[j+1])
			j++
			continue
		}
		if c == q {
			return string(out), true
		}
		out = append(out, c)
	}
	// ran off the end without a closing quote
	return "", false
}

// indexTriple returns the offset of the first run of three q bytes in s,
// or -1 if there is none.
func indexTriple(s string, q byte) int {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == q && s[i+1] == q && s[i+2] == q {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
