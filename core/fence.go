package core

import (
	"crypto/rand"
	"strings"

	. "github.com/stevegt/goadapt"
)

// minBlockLen is the shortest cleaned block worth keeping.  Anything
// below this is fence noise, not a file.
const minBlockLen = 5

// FenceMatch is one fenced block found in free-form text.  Tag is the
// bare token that followed the opening fence, or empty when the fence
// carried none.  Content is the raw body between the fence lines.
type FenceMatch struct {
	Tag     string
	Content string
}

// CodeFile is one extracted, cleaned, classified block ready to hand to
// an editor or a runner.  Id is opaque and unique within the extraction
// that produced it.  A CodeFile is never modified after extraction.
type CodeFile struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ExtractBlocks finds fenced blocks in text.  A fence opens on a line
// of three or more backticks or tildes, optionally followed at once by
// a bare tag token, and closes on the nearest later line made of three
// or more of the same character.  Pairing is left to right and blocks
// never overlap.  An opener with no closer is skipped, and scanning
// picks up on the line after it.  Blocks whose cleaned body would be
// shorter than five characters are dropped.
func ExtractBlocks(text string) (blocks []FenceMatch) {
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		marker, tag, ok := openFence(strings.TrimSuffix(lines[i], "\r"))
		if !ok {
			continue
		}
		closed := false
		for j := i + 1; j < len(lines); j++ {
			if !closeFence(strings.TrimSuffix(lines[j], "\r"), marker) {
				continue
			}
			content := strings.Join(lines[i+1:j], "\n")
			if len(CleanBlock(content)) >= minBlockLen {
				blocks = append(blocks, FenceMatch{Tag: tag, Content: content})
			}
			i = j
			closed = true
			break
		}
		if !closed {
			// dangling opener; treat it as prose and move on
			continue
		}
	}
	return
}

// openFence reports whether line opens a fenced block, and if so with
// which marker character and language tag.
func openFence(line string) (marker byte, tag string, ok bool) {
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return 0, "", false
	}
	marker = line[0]
	n := 0
	for n < len(line) && line[n] == marker {
		n++
	}
	if n < 3 {
		return 0, "", false
	}
	rest := line[n:]
	if rest != "" && !strings.ContainsAny(rest, " \t") {
		// a tag counts only when it hugs the fence with no gap
		tag = rest
	}
	return marker, tag, true
}

// closeFence reports whether line closes a block opened with marker.
// Only a line made entirely of three or more marker characters counts.
func closeFence(line string, marker byte) bool {
	if len(line) < 3 {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != marker {
			return false
		}
	}
	return true
}

// ExtractCode runs the whole extraction pipeline on a chat reply: find
// fenced blocks, clean each body, classify untagged blocks, and assign
// filenames.  Files come back in order of appearance.
func ExtractCode(text string) (files []CodeFile) {
	blocks := ExtractBlocks(text)
	for n, block := range blocks {
		content := CleanBlock(block.Content)
		language := strings.ToLower(block.Tag)
		if language == "" {
			language = Classify(content)
		}
		files = append(files, CodeFile{
			Id:       newFileId(),
			Name:     AssignName(language, n),
			Language: language,
			Content:  content,
		})
	}
	return
}

// newFileId returns a random 16-hex-digit identifier.
func newFileId() string {
	buf := make([]byte, 8)
	_, err := rand.Read(buf)
	// rand.Read only fails when the platform entropy source is broken
	Ck(err)
	return Spf("%x", buf)
}
