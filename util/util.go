package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	. "github.com/stevegt/goadapt"
)

// CopyFile copies a file from src to dst.  It refuses to overwrite an
// existing destination.
func CopyFile(src, dst string) (err error) {
	defer Return(&err)
	srcfh, err := os.Open(src)
	Ck(err)
	defer srcfh.Close()
	if _, statErr := os.Stat(dst); statErr == nil {
		return fmt.Errorf("%s already exists", dst)
	}
	// keep the source file's mode
	fi, err := srcfh.Stat()
	Ck(err)
	dstfh, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode())
	Ck(err)
	defer dstfh.Close()
	_, err = io.Copy(dstfh, srcfh)
	Ck(err)
	return
}

// StringInSlice returns true if str is in list.
func StringInSlice(str string, list []string) bool {
	for _, v := range list {
		if v == str {
			return true
		}
	}
	return false
}

// Ext2Lang derives a language name from a file extension.
func Ext2Lang(fn string) (lang string, known bool, err error) {
	parts := strings.Split(fn, ".")
	if len(parts) < 2 {
		err = fmt.Errorf("file %s missing language or extension", fn)
		return
	}
	known = true
	switch parts[len(parts)-1] {
	case "py":
		lang = "python"
	case "js":
		lang = "javascript"
	case "ts":
		lang = "typescript"
	case "go":
		lang = "go"
	case "c", "h":
		lang = "c"
	case "cpp", "cc", "hpp":
		lang = "cpp"
	case "java":
		lang = "java"
	case "rs":
		lang = "rust"
	case "sh":
		lang = "bash"
	case "html":
		lang = "html"
	case "css":
		lang = "css"
	case "sql":
		lang = "sql"
	case "rb":
		lang = "ruby"
	case "md":
		lang = "markdown"
	default:
		lang = parts[len(parts)-1]
		known = false
	}
	return
}
