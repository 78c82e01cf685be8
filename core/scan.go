package core

// Lexical scanning for Python-style source.  The scanner's only job is
// to decide, for every byte of a buffer, whether that byte is code, part
// of a string literal, or part of a line comment.  That is enough for
// the call matcher to find call boundaries safely; it is nowhere near a
// grammar and is not meant to be.

// LexMode classifies one position of a source buffer.
type LexMode int

const (
	Code LexMode = iota
	LineComment
	StringSingle
	StringDouble
	StringTripleSingle
	StringTripleDouble
)

func (m LexMode) String() string {
	switch m {
	case Code:
		return "code"
	case LineComment:
		return "comment"
	case StringSingle:
		return "string-single"
	case StringDouble:
		return "string-double"
	case StringTripleSingle:
		return "string-triple-single"
	case StringTripleDouble:
		return "string-triple-double"
	}
	return "unknown"
}

// InString reports whether the mode is inside any string literal form.
func (m LexMode) InString() bool {
	return m != Code && m != LineComment
}

// ScanModes walks src once and returns the lexical mode of every byte.
// A quote or comment mark that opens or closes a construct is classified
// as part of that construct, so the byte after a closing quote is the
// first one back in Code mode.  Unterminated strings and comments simply
// run to the end of the buffer.
func ScanModes(src string) []LexMode {
	modes := make([]LexMode, len(src))
	mode := Code
	escaped := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch mode {
		case Code:
			switch {
			case c == '#':
				mode = LineComment
				modes[i] = LineComment
			case c == '\'' || c == '"':
				// three adjacent quotes win over a lone quote;
				// checking the single-quote case first would split
				// every triple string into an empty string plus a
				// dangling opener
				if i+2 < len(src) && src[i+1] == c && src[i+2] == c {
					if c == '\'' {
						mode = StringTripleSingle
					} else {
						mode = StringTripleDouble
					}
					modes[i], modes[i+1], modes[i+2] = mode, mode, mode
					i += 2
				} else {
					if c == '\'' {
						mode = StringSingle
					} else {
						mode = StringDouble
					}
					modes[i] = mode
				}
			default:
				// a format-string prefix letter is ordinary code; the
				// quote that follows it opens the string on its own
				modes[i] = Code
			}
		case LineComment:
			if c == '\n' {
				// the newline ends the comment but is not part of it
				mode = Code
				modes[i] = Code
			} else {
				modes[i] = LineComment
			}
		case StringSingle, StringDouble:
			modes[i] = mode
			if escaped {
				escaped = false
				break
			}
			if c == '\\' {
				escaped = true
				break
			}
			if (mode == StringSingle && c == '\'') ||
				(mode == StringDouble && c == '"') {
				mode = Code
			}
		case StringTripleSingle, StringTripleDouble:
			q := byte('\'')
			if mode == StringTripleDouble {
				q = '"'
			}
			if c == q && i+2 < len(src) && src[i+1] == q && src[i+2] == q {
				modes[i], modes[i+1], modes[i+2] = mode, mode, mode
				i += 2
				mode = Code
			} else {
				modes[i] = mode
			}
		}
	}
	return modes
}
