package core

import (
	"regexp"

	. "github.com/stevegt/goadapt"
)

// DefaultLanguage is what Classify falls back to when nothing matches.
// The transcripts this tool grew up on are overwhelmingly Python, so
// Python it is.
const DefaultLanguage = "python"

// classifyRules is a priority list: Classify walks it top to bottom and
// the first hit wins.  Order matters and is part of the contract --
// several rules can match the same ambiguous snippet, and ties are
// broken by position here, never by any kind of scoring.  Keep the
// Python rules ahead of the generic C-family brace rule.
var classifyRules = []struct {
	re   *regexp.Regexp
	lang string
}{
	{regexp.MustCompile(`(?m)^#!.*\bpython`), "python"},
	{regexp.MustCompile(`(?m)^#!.*/(ba)?sh\b`), "bash"},
	{regexp.MustCompile(`(?m)^\s*(def|class)\s+\w+.*:\s*$`), "python"},
	{regexp.MustCompile(`(?m)^\s*(import\s+\w+|from\s+[\w.]+\s+import\b)`), "python"},
	{regexp.MustCompile(`\bprint\s*\(`), "python"},
	{regexp.MustCompile(`#include\s*<(iostream|vector|string|map)`), "cpp"},
	{regexp.MustCompile(`\bstd::|cout\s*<<`), "cpp"},
	{regexp.MustCompile(`#include\s*<`), "c"},
	{regexp.MustCompile(`\bpublic\s+(static\s+void\s+main|class)\b`), "java"},
	{regexp.MustCompile(`\bSystem\.out\.print`), "java"},
	{regexp.MustCompile(`(?m)^package\s+\w+\s*$`), "go"},
	{regexp.MustCompile(`\bfunc\s+\w+\s*\(`), "go"},
	{regexp.MustCompile(`\bfn\s+main\s*\(|\blet\s+mut\b|\bprintln!`), "rust"},
	{regexp.MustCompile(`<!DOCTYPE\s+html|<html\b`), "html"},
	{regexp.MustCompile(`\bconsole\.log\b|\bdocument\.`), "javascript"},
	{regexp.MustCompile(`(?m)^\s*(function\s+\w+\s*\(|const\s+\w+\s*=|let\s+\w+\s*=)`), "javascript"},
	{regexp.MustCompile(`(?i)\b(select\s+.+\s+from|insert\s+into|create\s+table)\b`), "sql"},
	// generic C-family catchall: a brace-terminated function header
	{regexp.MustCompile(`(?m)^\s*\w[\w\s\*]*\s+\w+\s*\([^)]*\)\s*\{`), "c"},
}

// Classify guesses the language of a block that carried no fence tag.
// Same content, same answer, every time.
func Classify(content string) string {
	for _, rule := range classifyRules {
		if rule.re.MatchString(content) {
			return rule.lang
		}
	}
	return DefaultLanguage
}

// langNames holds the default filename sequence per language.  The list
// wraps, so a transcript with five Python blocks reuses main.py for the
// fifth.
var langNames = map[string][]string{
	"python":     {"main.py", "app.py", "script.py", "utils.py"},
	"javascript": {"index.js", "app.js", "script.js"},
	"go":         {"main.go"},
	"c":          {"main.c"},
	"cpp":        {"main.cpp"},
	"java":       {"Main.java"},
	"rust":       {"main.rs"},
	"html":       {"index.html"},
	"css":        {"style.css"},
	"bash":       {"run.sh"},
	"sql":        {"schema.sql"},
}

// langExts maps a language to its file extension.  Tags arriving on a
// fence can be anything, so this is broader than the classifier's own
// vocabulary.
var langExts = map[string]string{
	"python":     "py",
	"javascript": "js",
	"typescript": "ts",
	"go":         "go",
	"c":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"java":       "java",
	"rust":       "rs",
	"html":       "html",
	"css":        "css",
	"bash":       "sh",
	"sh":         "sh",
	"shell":      "sh",
	"sql":        "sql",
	"json":       "json",
	"yaml":       "yaml",
	"toml":       "toml",
	"ruby":       "rb",
	"php":        "php",
	"markdown":   "md",
}

// Ext returns the file extension for a language, or "txt" when the
// language is unknown.
func Ext(language string) string {
	if ext, ok := langExts[language]; ok {
		return ext
	}
	return "txt"
}

// AssignName returns the default filename for the block at the given
// 0-based position among all blocks of one extraction.  Languages with
// a name sequence index into it modulo its length; everything else gets
// a numbered fallback.
func AssignName(language string, ordinal int) string {
	Assert(ordinal >= 0, "negative ordinal %d", ordinal)
	names, ok := langNames[language]
	if ok && len(names) > 0 {
		return names[ordinal%len(names)]
	}
	return Spf("file%d.%s", ordinal, Ext(language))
}
