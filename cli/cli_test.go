package cli

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"

	. "github.com/stevegt/goadapt"

	"github.com/stevegt/decant/core"
)

// decant runs the decant cli with the given arguments and returns
// stdout, stderr, and err
func decant(stdin bytes.Buffer, args ...string) (stdout, stderr bytes.Buffer, err error) {
	defer Return(&err)

	// pass stdio to the CLI
	config := NewCliConfig()
	config.Stdin = &stdin
	config.Stdout = &stdout
	config.Stderr = &stderr

	// get the caller's filename and line number
	_, fn, line, _ := runtime.Caller(1)

	var exitRc int
	// replace the kong exit function with one that doesn't exit
	config.Exit = func(rc int) {
		if rc != 0 {
			msg := Spf("%s:%d rc: %v\nstderr:\n%s", fn, line, rc, stderr.String())
			fmt.Println(msg)
			exitRc = rc
		}
	}

	// run the CLI
	rc, err := Cli(args, config)
	if err == nil && (exitRc != 0 || rc != 0) {
		err = fmt.Errorf("rc: %v exitRc: %v", rc, exitRc)
	}
	return
}

// cd changes the current working directory to the given directory.
func cd(t *testing.T, dir string) {
	err := os.Chdir(dir)
	Tassert(t, err == nil, "error changing to directory %s: %v", dir, err)
}

// mkFile creates a file with the given name and content.
func mkFile(t *testing.T, name, content string) {
	f, err := os.Create(name)
	Tassert(t, err == nil, "error creating file: %v", err)
	_, err = f.WriteString(content)
	Tassert(t, err == nil, "error writing to file: %v", err)
	err = f.Close()
	Tassert(t, err == nil, "error closing file: %v", err)
}

// cimatch returns true if the given string contains the given
// substring, ignoring case.
func cimatch(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func TestCli(t *testing.T) {

	var stdout, stderr bytes.Buffer
	var emptyStdin bytes.Buffer
	var match bool
	var err error

	// get current working directory
	cwd, err := os.Getwd()
	Tassert(t, err == nil, "error getting current working directory: %v", err)
	// create a temporary directory
	dir, err := os.MkdirTemp("", "decant")
	Ck(err)
	defer os.RemoveAll(dir)
	// cd into the temporary directory
	cd(t, dir)
	defer cd(t, cwd)

	// test TokenCount -- tc works without a db
	stdinTokenCount := bytes.Buffer{}
	stdinTokenCount.WriteString("token count test")
	stdout, stderr, err = decant(stdinTokenCount, "tc")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	// check that the stdout buffer contains the expected output
	match = cimatch(stdout.String(), "3")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// commands that need the db should fail before init
	stdout, stderr, err = decant(emptyStdin, "ls")
	Tassert(t, err != nil, "CLI returned no error when it should have")
	match = cimatch(err.Error(), "decant init")
	Tassert(t, match, "CLI did not return expected error: %v", err)

	// initialize a decant workspace
	stdout, stderr, err = decant(emptyStdin, "init")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	// init seeds the ignore file used by detect -r
	_, err = os.Stat(core.IgnoreName)
	Tassert(t, err == nil, "init did not create %s: %v", core.IgnoreName, err)

	// try initializing a workspace in a directory that already has one
	stdout, stderr, err = decant(emptyStdin, "init")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// list the available models
	stdout, stderr, err = decant(emptyStdin, "models")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	// check that the stdout buffer contains the expected output
	match = strings.Contains(stdout.String(), "gpt-4")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	// the default model is marked active
	match = strings.Contains(stdout.String(), "* o3-mini")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	// check that the stderr buffer is empty
	Tassert(t, stderr.String() == "", "CLI returned unexpected error: %s", stderr.String())

	// switch to the offline model so chat needs no API key
	stdout, stderr, err = decant(emptyStdin, "model", "mock")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "Switched model from o3-mini to mock")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// test version
	stdout, stderr, err = decant(emptyStdin, "version")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), Spf("decant version %s", core.CodeVersion()))
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	match = strings.Contains(stdout.String(), Spf("db version %s", core.CodeVersion()))
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// extract code blocks from a transcript file
	transcript := "Here are the files:\n\n```python\nprint('extracted')\n```\n\nAnd a page:\n\n```html\n<html><body>hi</body></html>\n```\n"
	mkFile(t, "chat.md", transcript)
	stdout, stderr, err = decant(emptyStdin, "extract", "chat.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "main.py") && strings.Contains(stdout.String(), "index.html")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// extract -O prints blocks instead of storing them
	stdout, stderr, err = decant(emptyStdin, "extract", "-O", "chat.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "print('extracted')")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// extract with no blocks stores nothing
	mkFile(t, "prose.md", "There is no code in this transcript at all.\n")
	stdout, stderr, err = decant(emptyStdin, "extract", "prose.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = cimatch(stderr.String(), "no code blocks")
	Tassert(t, match, "CLI did not return expected output: %s", stderr.String())

	// list the stored files
	stdout, stderr, err = decant(emptyStdin, "ls")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "main.py") && strings.Contains(stdout.String(), "index.html")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// long listing shows languages
	stdout, stderr, err = decant(emptyStdin, "ls", "-l")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "python") && strings.Contains(stdout.String(), "html")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// cat a stored file
	stdout, stderr, err = decant(emptyStdin, "cat", "main.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "print('extracted')")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// cat a file that doesn't exist
	stdout, stderr, err = decant(emptyStdin, "cat", "nope.py")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// detect input calls in a source file
	pySrc := "name = input(\"What is your name? \")\nage = input()\n"
	mkFile(t, "script.py", pySrc)
	stdout, stderr, err = decant(emptyStdin, "detect", "script.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "What is your name? ")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	// the bare call gets a numbered placeholder
	match = strings.Contains(stdout.String(), "Input 2")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// detect reads stdin when no paths are given
	stdinDetect := bytes.Buffer{}
	stdinDetect.WriteString(pySrc)
	stdout, stderr, err = decant(stdinDetect, "detect")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "What is your name? ")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// detect descends into directories with -r
	err = os.MkdirAll("srcdir", 0755)
	Tassert(t, err == nil, "error creating directory: %v", err)
	mkFile(t, "srcdir/a.py", "x = input(\"A? \")\n")
	stdout, stderr, err = decant(emptyStdin, "detect", "-r", "srcdir")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "A? ")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// a directory without -r is an error
	stdout, stderr, err = decant(emptyStdin, "detect", "srcdir")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// inject values into input calls
	stdout, stderr, err = decant(emptyStdin, "inject", "-n", "Alice", "-n", "42", "script.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "name = \"Alice\"") && strings.Contains(stdout.String(), "age = \"42\"")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// under-supplied values leave the later calls alone
	stdout, stderr, err = decant(emptyStdin, "inject", "-n", "Alice", "script.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "name = \"Alice\"") && strings.Contains(stdout.String(), "age = input()")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// diff mode shows the replacement
	stdout, stderr, err = decant(emptyStdin, "inject", "-d", "-n", "Alice", "-n", "42", "script.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "Alice")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// -o writes the rewritten source to a file
	stdout, stderr, err = decant(emptyStdin, "inject", "-n", "Alice", "-n", "42", "-o", "filled.py", "script.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	buf, err := os.ReadFile("filled.py")
	Tassert(t, err == nil, "error reading file: %v", err)
	match = strings.Contains(string(buf), "name = \"Alice\"")
	Tassert(t, match, "file did not contain expected output: %s", string(buf))

	// -w needs a file argument
	stdinInject := bytes.Buffer{}
	stdinInject.WriteString(pySrc)
	stdout, stderr, err = decant(stdinInject, "inject", "-w", "-n", "Alice")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// -w rewrites in place
	mkFile(t, "inplace.py", pySrc)
	stdout, stderr, err = decant(emptyStdin, "inject", "-w", "-n", "Bob", "-n", "7", "inplace.py")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	buf, err = os.ReadFile("inplace.py")
	Tassert(t, err == nil, "error reading file: %v", err)
	match = strings.Contains(string(buf), "name = \"Bob\"")
	Tassert(t, match, "file did not contain expected output: %s", string(buf))

	// chat through the offline model
	stdout, stderr, err = decant(emptyStdin, "chat", "-m", "say hi")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = cimatch(stdout.String(), "default mock response")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// chat reads the prompt from stdin when -m is missing
	stdinChat := bytes.Buffer{}
	stdinChat.WriteString("hello there")
	stdout, stderr, err = decant(stdinChat, "chat")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = cimatch(stdout.String(), "default mock response")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// chat with a prompt file
	mkFile(t, "prompt.md", "Model: mock\n\nSay something.\n")
	stdout, stderr, err = decant(emptyStdin, "chat", "-i", "prompt.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = cimatch(stdout.String(), "default mock response")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// run a file from disk
	mkFile(t, "hello.sh", "echo hello from decant\n")
	stdout, stderr, err = decant(emptyStdin, "run", "-f", "hello.sh")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "hello from decant")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// run a stored file by name
	mkFile(t, "chat2.md", "```bash\necho stored script output\n```\n")
	stdout, stderr, err = decant(emptyStdin, "extract", "chat2.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "run.sh")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	stdout, stderr, err = decant(emptyStdin, "run", "run.sh")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "stored script output")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// feed the program stdin with -s
	mkFile(t, "echoin.sh", "read x\necho \"got $x\"\n")
	stdout, stderr, err = decant(emptyStdin, "run", "-f", "echoin.sh", "-s", "ping")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "got ping")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// a failing program is reported, not swallowed
	mkFile(t, "fail.sh", "echo oops >&2\nexit 3\n")
	stdout, stderr, err = decant(emptyStdin, "run", "-f", "fail.sh")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// run without a name or -f is an error
	stdout, stderr, err = decant(emptyStdin, "run")
	Tassert(t, err != nil, "CLI returned no error when it should have")

	// test backup
	stdout, stderr, err = decant(emptyStdin, "backup")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "backup of decant db saved to")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// --model overrides the stored model for one run
	stdout, stderr, err = decant(emptyStdin, "--model", "gpt-4", "models")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "* gpt-4")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// the override doesn't stick
	stdout, stderr, err = decant(emptyStdin, "models")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "* mock")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
}

func TestCliMigration(t *testing.T) {

	var stdout, stderr bytes.Buffer
	var emptyStdin bytes.Buffer
	var match bool
	var err error

	cwd, err := os.Getwd()
	Tassert(t, err == nil, "error getting current working directory: %v", err)
	dir, err := os.MkdirTemp("", "decant-migration")
	Ck(err)
	defer os.RemoveAll(dir)
	cd(t, dir)
	defer cd(t, cwd)

	// write a db in the oldest format by hand
	mkFile(t, core.SessionName, `{"Version":"0.9.0","Model":"gpt-4"}`)

	// the first read-write command migrates and saves the db
	mkFile(t, "chat.md", "```python\nprint('migrated')\n```\n")
	stdout, stderr, err = decant(emptyStdin, "extract", "chat.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stderr.String(), Spf("migrated decant db from version 0.9.0 to %s", core.CodeVersion()))
	Tassert(t, match, "CLI did not return expected output: %s", stderr.String())
	match = strings.Contains(stderr.String(), "backup of old db saved to")
	Tassert(t, match, "CLI did not return expected output: %s", stderr.String())

	// the saved db carries the current version
	buf, err := os.ReadFile(core.SessionName)
	Tassert(t, err == nil, "error reading db: %v", err)
	match = strings.Contains(string(buf), Spf(`"Version":%q`, core.CodeVersion()))
	Tassert(t, match, "db was not saved with the current version: %s", string(buf))

	// the migration filled in the default call name
	match = strings.Contains(string(buf), `"CallName":"input"`)
	Tassert(t, match, "db was not saved with the default call name: %s", string(buf))

	// a second command finds nothing to migrate
	stdout, stderr, err = decant(emptyStdin, "ls")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stderr.String(), "migrated")
	Tassert(t, !match, "CLI migrated twice: %s", stderr.String())
	match = strings.Contains(stdout.String(), "main.py")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
}

func TestCliEdit(t *testing.T) {

	var emptyStdin bytes.Buffer

	cwd, err := os.Getwd()
	Tassert(t, err == nil, "error getting current working directory: %v", err)
	dir, err := os.MkdirTemp("", "decant-edit")
	Ck(err)
	defer os.RemoveAll(dir)
	cd(t, dir)
	defer cd(t, cwd)

	// use an editor that exits without touching the file
	t.Setenv("DECANT_EDITOR", "true")

	// edit seeds a missing prompt file with a template
	_, _, err = decant(emptyStdin, "edit", "prompt.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	buf, err := os.ReadFile("prompt.md")
	Tassert(t, err == nil, "error reading file: %v", err)
	match := strings.Contains(string(buf), "Type your prompt here")
	Tassert(t, match, "prompt file missing template: %s", string(buf))

	// an existing file is left alone
	mkFile(t, "notes.md", "keep me\n")
	_, _, err = decant(emptyStdin, "edit", "notes.md")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	buf, err = os.ReadFile("notes.md")
	Tassert(t, err == nil, "error reading file: %v", err)
	Tassert(t, string(buf) == "keep me\n", "edit clobbered the file: %s", string(buf))
}
