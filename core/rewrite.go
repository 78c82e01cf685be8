package core

import (
	"strings"

	. "github.com/stevegt/goadapt"
)

// DetectInputs returns one human-facing prompt per call to name in src,
// in source order.  A call with a leading string-literal argument
// contributes that literal's text; any other call contributes a default
// of the form "Input N" where N is the call's 1-based position.  The
// numbering here and the value consumption in InjectInputs walk the same
// call list, so prompt i always describes the call that value i fills.
func DetectInputs(src, name string) (prompts []string) {
	calls := FindCalls(src, name)
	for n, call := range calls {
		if call.HasPrompt {
			prompts = append(prompts, call.Prompt)
		} else {
			prompts = append(prompts, Spf("Input %d", n+1))
		}
	}
	return
}

// InjectInputs replaces each call to name in src with a double-quoted
// literal built from the value at the same position.  Backslashes and
// double quotes in a value are escaped.  When values runs out before the
// calls do, the remaining calls are copied through verbatim, and a
// buffer with no calls at all comes back unchanged.
func InjectInputs(src, name string, values []string) string {
	calls := FindCalls(src, name)
	if len(calls) == 0 || len(values) == 0 {
		return src
	}
	var buf strings.Builder
	last := 0
	for i, call := range calls {
		if i >= len(values) {
			break
		}
		buf.WriteString(src[last:call.Start])
		buf.WriteString(quoteValue(values[i]))
		last = call.End
	}
	buf.WriteString(src[last:])
	return buf.String()
}

// quoteValue renders v as a double-quoted source literal.
func quoteValue(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
