package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	gitignore "github.com/sabhiram/go-gitignore"
	. "github.com/stevegt/goadapt"
)

// IgnoreName is the per-workspace ignore file consulted when In paths
// name directories.
var IgnoreName = ".decantignore"

// Prompt is a parsed prompt file: message headers, a blank line, then
// the prompt text.  Recognized headers are Sysmsg, Model, and In.
type Prompt struct {
	// Sysmsg overrides the default system message for this prompt.
	Sysmsg string
	// Model overrides the session model for this prompt.
	Model string
	// In lists input files whose contents get attached to the prompt.
	// Paths in the header are space-separated and relative to the
	// prompt file's directory; directories are expanded to the
	// regular files beneath them.
	In []string
	// Txt is the prompt text itself.
	Txt string
}

// ReadPrompt parses the prompt file at path.
func ReadPrompt(path string) (p *Prompt, err error) {
	defer Return(&err)
	fh, err := os.Open(path)
	Ck(err)
	defer fh.Close()
	entity, err := message.Read(fh)
	Ck(err, "parsing %s", path)
	body, err := io.ReadAll(entity.Body)
	Ck(err)
	p = &Prompt{
		Sysmsg: strings.TrimSpace(entity.Header.Get("Sysmsg")),
		Model:  strings.TrimSpace(entity.Header.Get("Model")),
		Txt:    strings.TrimSpace(string(body)),
	}
	if p.Txt == "" {
		err = fmt.Errorf("prompt file %s has no prompt text", path)
		return
	}
	abs, err := filepath.Abs(path)
	Ck(err)
	base := filepath.Dir(abs)
	err = p.resolveIn(entity.Header.Get("In"), base)
	Ck(err)
	return
}

// resolveIn converts the In header to absolute paths, replacing any
// directory with the list of files in that directory.
func (p *Prompt) resolveIn(inStr, base string) (err error) {
	defer Return(&err)
	for _, f := range strings.Fields(inStr) {
		if !filepath.IsAbs(f) {
			f = filepath.Join(base, f)
		}
		fi, err := os.Stat(f)
		Ck(err, "reading %s", f)
		if fi.IsDir() {
			files, err := FilesInDir(f, filepath.Join(base, IgnoreName))
			Ck(err)
			p.In = append(p.In, files...)
			continue
		}
		p.In = append(p.In, f)
	}
	return
}

// AttachIn returns the prompt text with the contents of the In files
// appended, each introduced by its filename.
func (p *Prompt) AttachIn() (txt string, err error) {
	defer Return(&err)
	txt = p.Txt
	for _, f := range p.In {
		buf, err := os.ReadFile(f)
		Ck(err, "reading %s", f)
		txt += Spf("\n\n--- %s ---\n%s", filepath.Base(f), string(buf))
	}
	return
}

// FilesInDir returns a list of the regular files under dir, skipping
// anything matched by the ignore file at ignoreFn.  A missing ignore
// file means nothing is skipped.
func FilesInDir(dir, ignoreFn string) (files []string, err error) {
	defer Return(&err)

	// Get ignore list
	var ig *gitignore.GitIgnore
	if _, serr := os.Stat(ignoreFn); serr == nil {
		ig, err = gitignore.CompileIgnoreFile(ignoreFn)
		Ck(err)
	} else {
		ig = gitignore.CompileIgnoreLines()
	}

	files = []string{}
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// If path is a directory, skip it
		if info.IsDir() {
			return nil
		}
		// Check if the file is in the ignore list
		if ig.MatchesPath(path) {
			return nil
		}
		// Only include regular files
		if !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	Ck(err)
	return
}

// EnsureIgnoreFile creates an ignore file with default patterns if it
// doesn't exist.
func EnsureIgnoreFile(fn string) (err error) {
	defer Return(&err)
	_, err = os.Stat(fn)
	if os.IsNotExist(err) {
		err = nil
		fh, err := os.Create(fn)
		Ck(err)
		defer fh.Close()
		_, err = fh.WriteString(".git\n.decant*\n")
		Ck(err)
	} else {
		Ck(err)
	}
	return
}
