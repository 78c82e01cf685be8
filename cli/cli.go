package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/anmitsu/go-shlex"
	"github.com/gofrs/flock"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stevegt/decant/core"
	"github.com/stevegt/decant/kv"
	"github.com/stevegt/decant/runner"
	"github.com/stevegt/decant/util"
	"github.com/stevegt/envi"
	. "github.com/stevegt/goadapt"
)

type cmdBackup struct{}

type cmdCat struct {
	Id   bool   `short:"i" help:"Treat the argument as a file id instead of a name."`
	Name string `arg:"" help:"Name or id of a stored file.  Names resolve to the newest match."`
}

type cmdChat struct {
	Sysmsg     string `name:"sysmsg" short:"s" default:"" help:"System message to control the model's behavior."`
	Prompt     string `short:"m" help:"Prompt message to use instead of stdin."`
	PromptFile string `short:"i" help:"Prompt file with Sysmsg, Model, and In headers."`
	Extract    bool   `short:"x" help:"Extract code blocks from the response into the workspace store."`
}

type cmdDetect struct {
	Recursive bool     `short:"r" help:"Descend into directories, honoring the workspace ignore file."`
	Call      string   `help:"Call name to look for, overriding the workspace setting."`
	Paths     []string `arg:"" optional:"" type:"string" help:"Source files to scan; stdin when omitted."`
}

type cmdEdit struct {
	File string `arg:"" help:"Prompt file to edit; created with a template when missing."`
}

type cmdExtract struct {
	Stdout bool   `short:"O" help:"Print extracted files instead of storing them."`
	File   string `arg:"" optional:"" help:"Text file to extract fenced code blocks from; stdin when omitted."`
}

type cmdInit struct{}

type cmdInject struct {
	Values  []string `short:"n" help:"Replacement values, one per input call, in order."`
	Diff    bool     `short:"d" help:"Show a diff between the original and rewritten source."`
	Output  string   `short:"o" help:"Write the rewritten source to this file instead of stdout."`
	InPlace bool     `short:"w" help:"Rewrite the file in place."`
	File    string   `arg:"" optional:"" help:"Source file to rewrite; stdin when omitted."`
}

type cmdLs struct {
	Long bool `short:"l" help:"Show ids and languages as well as names."`
}

type cmdModel struct {
	Model string `arg:"" help:"Model to switch to."`
}

type cmdModels struct{}

type cmdRun struct {
	File     string `short:"f" help:"Run a file from disk instead of the store."`
	Language string `short:"L" help:"Override the language."`
	Stdin    string `short:"s" help:"Text to supply on the program's stdin."`
	Id       bool   `short:"i" help:"Treat the argument as a file id instead of a name."`
	Name     string `arg:"" optional:"" help:"Stored file name or id to run."`
}

type cmdTc struct{}

type cmdVersion struct{}

type cmdWatch struct {
	File string `arg:"" help:"Chat transcript file to watch; changes get extracted as they land."`
}

var cli struct {
	Backup   cmdBackup  `cmd:"" help:"Backup the session db."`
	Cat      cmdCat     `cmd:"" help:"Print a stored file's content on stdout."`
	Chat     cmdChat    `cmd:"" help:"Send a prompt to the chat model; accepts prompt on stdin."`
	Detect   cmdDetect  `cmd:"" help:"List the input calls found in source files."`
	Edit     cmdEdit    `cmd:"" help:"Open a prompt file in the editor."`
	Extract  cmdExtract `cmd:"" help:"Extract fenced code blocks from chat text into the workspace store."`
	Init     cmdInit    `cmd:"" help:"Initialize a new .decant db in the current directory."`
	Inject   cmdInject  `cmd:"" help:"Replace input calls in source with literal values."`
	Ls       cmdLs      `cmd:"" help:"List the files in the workspace store."`
	Model    cmdModel   `cmd:"" help:"Switch the model used by this workspace (persistent)."`
	Models   cmdModels  `cmd:"" help:"List all available models."`
	NewModel string     `name:"model" help:"Model to use during this execution."`
	Run      cmdRun     `cmd:"" help:"Run a stored or local file through the configured runner."`
	Tc       cmdTc      `cmd:"" help:"Calculate the token count of stdin."`
	Verbose  bool       `short:"v" help:"Show debug and progress information on stderr."`
	Version  cmdVersion `cmd:"" help:"Show version of decant and its db."`
	Watch    cmdWatch   `cmd:"" help:"Watch a chat transcript and extract code blocks as it changes."`
}

// CliConfig contains the configuration for decant's cli
type CliConfig struct {
	// Name is the name of the program
	Name string
	// Description is a short description of the program
	Description string
	// Version is the version of the program
	Version string
	// Exit is the function to call to exit the program
	Exit   func(int)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewCliConfig returns a new Config struct with default values populated
func NewCliConfig() *CliConfig {
	return &CliConfig{
		Name:        "decant",
		Description: "A command-line tool for pulling runnable code out of chat transcripts.",
		Version:     core.CodeVersion(),
		Exit:        func(i int) { os.Exit(i) },
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// cmdInSlice returns true if cmd is in cmds. This function only looks
// at the first word in cmd.
func cmdInSlice(cmd string, cmds []string) bool {
	first := strings.Split(cmd, " ")[0]
	return util.StringInSlice(first, cmds)
}

// Cli parses the given arguments and then executes the appropriate
// subcommand.
//
// We use this function instead of kong.Parse() so that we can pass in
// the arguments to parse.  This allows us to more easily test the
// cli subcommands.
func Cli(args []string, config *CliConfig) (rc int, err error) {
	defer Return(&err)

	// capture goadapt stdio
	SetStdio(
		config.Stdin,
		config.Stdout,
		config.Stderr,
	)
	defer SetStdio(nil, nil, nil)

	options := []kong.Option{
		kong.Name(config.Name),
		kong.Description(config.Description),
		kong.Exit(config.Exit),
		kong.Writers(config.Stdout, config.Stderr),
		kong.Vars{
			"version": config.Version,
		},
	}

	var parser *kong.Kong
	parser, err = kong.New(&cli, options...)
	Ck(err)
	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	Debug("ctx: %+v", ctx)

	if cli.Verbose {
		os.Setenv("DEBUG", "1")
	}

	cmd := ctx.Command()
	Debug("cmd: %s", cmd)

	// list of commands that don't require an existing database
	noDbCmds := []string{"init", "tc", "edit"}
	needsDb := true
	if cmdInSlice(cmd, noDbCmds) {
		Debug("command %s does not require a decant db", cmd)
		needsDb = false
	}

	// list of commands that can use a read-only db
	roCmds := []string{"ls", "cat", "detect", "inject", "run", "models", "version", "backup"}
	readonly := false
	if cmdInSlice(cmd, roCmds) {
		Debug("command %s can use a read-only decant db", cmd)
		readonly = true
	}

	var s *core.Session
	var save bool
	modelName := cli.NewModel
	// initialize Tokenizer
	err = core.InitTokenizer()
	Ck(err)
	// initialize Session object if needed
	if needsDb {
		var migrated bool
		var was, now string
		var lock *flock.Flock
		s, migrated, was, now, lock, err = core.Load(modelName, readonly)
		Ck(err)
		defer func() {
			// unlock the db
			Debug("unlocking db")
			lock.Unlock()
		}()
		if migrated {
			// backup the old db
			var fn string
			fn, err = s.Backup()
			Ck(err)
			Fpf(config.Stderr, "migrated decant db from version %s to %s\n", was, now)
			Fpf(config.Stderr, "backup of old db saved to %s\n", fn)
			save = true
		}
		modelName = s.Model
	}

	// the blob store opens lazily; most commands never touch it
	var store kv.KVStore
	openStore := func() {
		if store == nil {
			store, err = s.OpenStore()
			Ck(err)
		}
	}
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	switch cmd {
	case "init":
		// initialize a new .decant db in the current directory
		_, err = core.Init(".", "")
		Ck(err)
		err = core.EnsureIgnoreFile(core.IgnoreName)
		Ck(err)
		Pl("Initialized a new .decant db in the current directory.")
		// Init calls Save() for us
		return
	case "extract":
		fallthrough
	case "extract <file>":
		var text string
		text, err = readTextArg(cli.Extract.File, config.Stdin)
		Ck(err)
		if cli.Extract.Stdout {
			for _, f := range core.ExtractCode(text) {
				Pf("### %s\n%s\n", f.Name, f.Content)
			}
			return
		}
		source := cli.Extract.File
		if source == "" {
			source = "stdin"
		}
		openStore()
		var files []core.CodeFile
		files, _, err = s.ExtractToStore(store, source, text)
		Ck(err)
		if len(files) == 0 {
			Fpf(config.Stderr, "no code blocks found\n")
			return
		}
		for _, f := range files {
			Pf("%s %s %s\n", f.Id, f.Language, f.Name)
		}
		save = true
	case "ls":
		openStore()
		var metas []core.FileMeta
		metas, err = core.ListFiles(store)
		Ck(err)
		for _, m := range metas {
			if cli.Ls.Long {
				Pf("%s %-10s %s\n", m.Id, m.Language, m.Name)
			} else {
				Pl(m.Name)
			}
		}
	case "cat <name>":
		openStore()
		id := cli.Cat.Name
		if !cli.Cat.Id {
			id, err = s.FindFileByName(cli.Cat.Name)
			Ck(err)
		}
		var f core.CodeFile
		f, err = core.LoadFile(store, id)
		Ck(err)
		Pl(f.Content)
	case "detect":
		fallthrough
	case "detect <paths>":
		callName := s.CallName
		if cli.Detect.Call != "" {
			callName = cli.Detect.Call
		}
		var paths []string
		paths, err = expandPaths(cli.Detect.Paths, cli.Detect.Recursive, s.Root)
		Ck(err)
		if len(paths) == 0 {
			var buf []byte
			buf, err = io.ReadAll(config.Stdin)
			Ck(err)
			for _, prompt := range core.DetectInputs(string(buf), callName) {
				Pl(prompt)
			}
			return
		}
		multi := len(paths) > 1
		for _, path := range paths {
			var buf []byte
			buf, err = os.ReadFile(path)
			Ck(err)
			for _, prompt := range core.DetectInputs(string(buf), callName) {
				if multi {
					Pf("%s: %s\n", path, prompt)
				} else {
					Pl(prompt)
				}
			}
		}
	case "inject":
		fallthrough
	case "inject <file>":
		var src string
		src, err = readTextArg(cli.Inject.File, config.Stdin)
		Ck(err)
		out := core.InjectInputs(src, s.CallName, cli.Inject.Values)
		switch {
		case cli.Inject.Diff:
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(src, out, false)
			Pf("%s", dmp.DiffPrettyText(diffs))
		case cli.Inject.InPlace:
			if cli.Inject.File == "" {
				Fpf(config.Stderr, "Error: -w requires a file argument\n")
				rc = 1
				return
			}
			err = os.WriteFile(cli.Inject.File, []byte(out), 0644)
			Ck(err)
		case cli.Inject.Output != "":
			err = os.WriteFile(cli.Inject.Output, []byte(out), 0644)
			Ck(err)
		default:
			Pf("%s", out)
		}
	case "chat":
		var resp string
		var source string
		if cli.Chat.PromptFile != "" {
			var p *core.Prompt
			p, err = core.ReadPrompt(cli.Chat.PromptFile)
			Ck(err)
			if cli.Chat.Sysmsg != "" {
				p.Sysmsg = cli.Chat.Sysmsg
			}
			resp, err = s.AnswerPrompt(p)
			Ck(err)
			source = cli.Chat.PromptFile
		} else {
			prompt := cli.Chat.Prompt
			if prompt == "" {
				var buf []byte
				buf, err = io.ReadAll(config.Stdin)
				Ck(err)
				prompt = strings.TrimSpace(string(buf))
			}
			resp, err = s.Answer(cli.Chat.Sysmsg, prompt)
			Ck(err)
			source = "chat"
		}
		Pl(resp)
		if cli.Chat.Extract {
			openStore()
			var files []core.CodeFile
			files, _, err = s.ExtractToStore(store, source, resp)
			Ck(err)
			for _, f := range files {
				Fpf(config.Stderr, "stored %s as %s\n", f.Name, f.Id)
			}
			save = true
		}
	case "run":
		fallthrough
	case "run <name>":
		var code, language string
		switch {
		case cli.Run.File != "":
			var buf []byte
			buf, err = os.ReadFile(cli.Run.File)
			Ck(err)
			code = string(buf)
			language, _, err = util.Ext2Lang(cli.Run.File)
			Ck(err)
		case cli.Run.Name != "":
			openStore()
			id := cli.Run.Name
			if !cli.Run.Id {
				id, err = s.FindFileByName(cli.Run.Name)
				Ck(err)
			}
			var f core.CodeFile
			f, err = core.LoadFile(store, id)
			Ck(err)
			code = f.Content
			language = f.Language
		default:
			Fpf(config.Stderr, "Error: run command requires a stored name or -f file\n")
			rc = 1
			return
		}
		if cli.Run.Language != "" {
			language = cli.Run.Language
		}
		r := runner.FromEnv()
		var eresp runner.ExecResponse
		eresp, err = r.Exec(context.Background(), runner.ExecRequest{
			Code:     code,
			Language: language,
			Stdin:    cli.Run.Stdin,
		})
		Ck(err)
		Pf("%s", eresp.Output)
		Debug("execution time: %.3fs", eresp.ExecutionTime)
		if !eresp.Success {
			Fpf(config.Stderr, "run failed: %s\n", eresp.Error)
			rc = 1
			return
		}
		if eresp.Error != "" {
			Fpf(config.Stderr, "%s", eresp.Error)
		}
	case "watch <file>":
		openStore()
		err = WatchFile(cli.Watch.File, func(text string) error {
			files, _, werr := s.ExtractToStore(store, cli.Watch.File, text)
			if werr != nil {
				return werr
			}
			for _, f := range files {
				Fpf(config.Stderr, "stored %s as %s\n", f.Name, f.Id)
			}
			if len(files) > 0 {
				return s.Save()
			}
			return nil
		}, nil)
		Ck(err)
	case "models":
		// list all available models
		var models []*core.Model
		models, err = s.ListModels()
		Ck(err)
		for _, model := range models {
			Pl(model)
		}
	case "model <model>":
		// switch the model used by the workspace
		var oldModel string
		oldModel, err = s.SetModel(cli.Model.Model)
		Ck(err)
		Pf("Switched model from %s to %s\n", oldModel, cli.Model.Model)
		save = true
	case "tc":
		// get content from stdin and emit token count on stdout
		var buf []byte
		buf, err = io.ReadAll(config.Stdin)
		Ck(err)
		in := strings.TrimSpace(string(buf))
		var count int
		count, err = core.TokenCount(in)
		Ck(err)
		Pf("%d\n", count)
	case "edit <file>":
		err = EditFile(cli.Edit.File)
		Ck(err)
	case "version":
		// print the version of decant and its db
		Pf("decant version %s\n", core.CodeVersion())
		Pf("decant db version %s\n", s.DBVersion())
	case "backup":
		// backup the decant db
		var fn string
		fn, err = s.Backup()
		Ck(err)
		Pf("backup of decant db saved to %s\n", fn)
	default:
		Fpf(config.Stderr, "Error: unrecognized command: %s\n", ctx.Command())
		rc = 1
		return
	}

	if save && !readonly {
		// save the session file
		err = s.Save()
		Ck(err)
	}

	return
}

// readTextArg returns the content of path, or of stdin when path is
// empty.
func readTextArg(path string, stdin io.Reader) (text string, err error) {
	defer Return(&err)
	if path == "" {
		var buf []byte
		buf, err = io.ReadAll(stdin)
		Ck(err)
		return string(buf), nil
	}
	var buf []byte
	buf, err = os.ReadFile(path)
	Ck(err)
	return string(buf), nil
}

// expandPaths replaces directories with the python sources under them
// when recursive is set.
func expandPaths(paths []string, recursive bool, root string) (out []string, err error) {
	defer Return(&err)
	ignoreFn := filepath.Join(root, core.IgnoreName)
	for _, path := range paths {
		fi, err := os.Stat(path)
		Ck(err, "reading %s", path)
		if !fi.IsDir() {
			out = append(out, path)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("%s is a directory -- use -r to descend into it", path)
		}
		files, err := core.FilesInDir(path, ignoreFn)
		Ck(err)
		for _, f := range files {
			if strings.HasSuffix(f, ".py") {
				out = append(out, f)
			}
		}
	}
	return
}

// EditFile opens a prompt file in the editor, seeding it with a
// template when the file doesn't exist yet.
func EditFile(fn string) (err error) {
	defer Return(&err)

	_, err = os.Stat(fn)
	if err != nil {
		// file does not exist
		template := "In:\n\nType your prompt here.\n"
		err = os.WriteFile(fn, []byte(template), 0644)
		Ck(err)
	}

	// open the file in the editor
	editor := envi.String("DECANT_EDITOR", envi.String("EDITOR", "vi +"))
	// use shlex to split the editor command
	cmdline, err := shlex.Split(editor, true)
	Ck(err)
	editor = cmdline[0]
	var args []string
	if len(cmdline) == 1 {
		args = []string{fn}
	} else {
		args = append(cmdline[1:], fn)
	}
	cmd := exec.Command(editor, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	Ck(err)

	return
}
