package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	. "github.com/stevegt/goadapt"
	"github.com/stevegt/decant/client"
	"github.com/stevegt/decant/util"
)

// Version is the decant code version.
var Version = "1.2.0"

// SessionName is the default session db filename.
var SessionName = ".decant"

// DefaultStoreName is the default workspace blob store filename.
var DefaultStoreName = ".decant.db"

// Session is the decant workspace database.  It holds tool settings and
// the ledger of past extractions, and lives in a JSON file at the
// workspace root.
type Session struct {
	// The decant version number this db was last updated with.
	Version string
	// The absolute path of the workspace root directory.  This is
	// passed in from cli based on where we found the db.
	Root string
	// Model is the default chat model name.
	Model string
	// CallName is the input primitive that detect and inject look for.
	CallName string
	// StoreName is the filename of the workspace blob store, relative
	// to Root.
	StoreName string
	// Extractions is the ledger of extractions run in this workspace.
	// File contents live in the blob store; this holds the metadata.
	Extractions []*Extraction

	ModelObj *Model `json:"-"`
	// model registry
	models *Models
	// pathname of the session database file
	sesspath string
	// provider client override, mostly for tests
	chat          client.ChatClient
	modelOverride bool
	modelFromDb   string
}

// Extraction records one extraction run.
type Extraction struct {
	Id        string
	Source    string
	Timestamp time.Time
	Files     []FileMeta
}

// FileMeta identifies one extracted file held in the blob store.
type FileMeta struct {
	Id       string
	Name     string
	Language string
}

// CodeVersion returns the version of the decant code.
func CodeVersion() string {
	return Version
}

// DBVersion returns the version of the session database.
func (s *Session) DBVersion() string {
	return s.Version
}

// StorePath returns the absolute path of the workspace blob store.
func (s *Session) StorePath() string {
	return filepath.Join(s.Root, s.StoreName)
}

// GetModel returns the current model name and model object from the db.
func (s *Session) GetModel() (model string, m *Model, err error) {
	defer Return(&err)
	model, m, err = s.models.FindModel(s.Model)
	Ck(err)
	return
}

// ListModels lists the available models.
func (s *Session) ListModels() (models []*Model, err error) {
	defer Return(&err)
	models = s.models.ListModels()
	return
}

// SetModel sets the default chat model for the workspace.
func (s *Session) SetModel(model string) (oldModel string, err error) {
	defer Return(&err)
	model, _, err = s.models.FindModel(model)
	Ck(err)
	oldModel, _, err = s.GetModel()
	Ck(err)
	err = s.Setup(model)
	Ck(err)
	// a model set this way is the new stored model, not an override
	s.modelOverride = false
	s.modelFromDb = model
	return
}

// SetChatClient overrides provider selection, letting tests run the
// chat path against a canned client.
func (s *Session) SetChatClient(c client.ChatClient) {
	s.chat = c
}

// Setup initializes the model and tokenizer.  This function needs to be
// idempotent because it might be called multiple times during the
// lifetime of a Session object.
func (s *Session) Setup(model string) (err error) {
	defer Return(&err)
	err = s.initModel(model)
	Ck(err)
	err = InitTokenizer()
	Ck(err)
	return
}

// initModel initializes the model for a new or reloaded Session.
func (s *Session) initModel(model string) (err error) {
	defer Return(&err)
	Assert(s.Root != "", "root directory not set")
	s.models = NewModels()
	model, m, err := s.models.FindModel(model)
	Ck(err)
	m.active = true
	s.Model = model
	s.ModelObj = m
	return
}

// Init creates a Session database in the given root directory.
func Init(rootdir, model string) (s *Session, err error) {
	defer Return(&err)
	s, err = InitNamed(rootdir, SessionName, model)
	return
}

// InitNamed creates a named Session database in the given root directory.
func InitNamed(rootdir, name, model string) (s *Session, err error) {
	defer Return(&err)
	// ensure rootdir is absolute and exists
	rootdir, err = filepath.Abs(rootdir)
	Ck(err)
	_, err = os.Stat(rootdir)
	Ck(err)
	s = &Session{
		Root:      rootdir,
		Version:   Version,
		CallName:  "input",
		StoreName: DefaultStoreName,
	}
	err = s.Setup(model)
	Ck(err)
	// ensure there is no existing db
	s.sesspath = filepath.Join(rootdir, name)
	_, err = os.Stat(s.sesspath)
	if err == nil {
		err = fmt.Errorf("db already exists at %q", s.sesspath)
		return
	}
	err = s.Save()
	Ck(err)
	return
}

// Load loads a Session database from the current or any parent directory.
func Load(modelOverride string, readonly bool) (s *Session, migrated bool, oldver, newver string, lock *flock.Flock, err error) {
	defer Return(&err)
	// find the session file in the current or any parent directory
	sesspath := ""
	for level := 0; level < 99; level++ {
		path := strings.Repeat("../", level) + SessionName
		if _, err := os.Stat(path); err == nil {
			sesspath = path
			break
		}
	}
	if sesspath == "" {
		err = fmt.Errorf("no %s found -- run 'decant init' first", SessionName)
		return
	}
	s, migrated, oldver, newver, lock, err = LoadFrom(sesspath, modelOverride, readonly)
	Ck(err)
	return
}

// LoadFrom loads a Session database from a given path.
func LoadFrom(sesspath string, modelOverride string, readonly bool) (s *Session, migrated bool, oldver, newver string, lock *flock.Flock, err error) {
	defer Return(&err)
	s = &Session{}
	s.sesspath = sesspath
	lockpath := sesspath + ".lock"
	// ensure the lock file exists
	lockfh, err := os.OpenFile(lockpath, os.O_CREATE, 0644)
	Ck(err)
	err = lockfh.Close()
	Ck(err)
	lock = flock.New(lockpath)
	if readonly {
		Debug("locking %s ro...", lockpath)
		err = lock.RLock()
		Ck(err)
	} else {
		Debug("locking %s rw...", lockpath)
		err = lock.Lock()
		Ck(err)
	}
	// load the db
	buf, err := os.ReadFile(s.sesspath)
	Ck(err)
	err = json.Unmarshal(buf, s)
	Ck(err)
	// set the root directory, overriding whatever was in the db
	// - this is necessary because the db might have been moved
	s.Root, err = filepath.Abs(filepath.Dir(s.sesspath))
	Ck(err)

	migrated, oldver, newver, err = s.migrate()
	Ck(err)

	// store the original model from the session file
	s.modelFromDb = s.Model

	// give precedence to modelOverride
	modelChoice := modelOverride
	if modelChoice == "" {
		modelChoice = s.Model
	} else {
		s.modelOverride = true
	}

	err = s.Setup(modelChoice)
	Ck(err)
	return
}

// Backup backs up the Session database to a time-stamped backup and
// returns the path.
func (s *Session) Backup() (backpath string, err error) {
	defer Return(&err)
	Assert(s.sesspath != "", "s.sesspath is empty")
	tmpdir := os.TempDir()
	deslashed := strings.Replace(s.sesspath, "/", "-", -1)
	// sub-second resolution so repeated backups of the same path get
	// distinct names
	backpath = fmt.Sprintf("%s/decant-backup-%s%s", tmpdir, time.Now().Format("20060102-150405.000000"), deslashed)
	err = util.CopyFile(s.sesspath, backpath)
	Ck(err, "failed to backup %q to %q", s.sesspath, backpath)
	return
}

// Save saves the Session database to the stored path.
func (s *Session) Save() (err error) {
	defer Return(&err)
	if s.modelOverride {
		// an override is for this run only; put the stored model back
		// before writing
		tmpModel := s.Model
		s.Model = s.modelFromDb
		err = s.saveToFile()
		s.Model = tmpModel
		Ck(err)
		return
	}
	err = s.saveToFile()
	Ck(err)
	return
}

// saveToFile handles the actual saving process
func (s *Session) saveToFile() (err error) {
	defer Return(&err)
	Debug("saving session file")
	tmpfn := s.sesspath + ".tmp"
	data, err := json.Marshal(s)
	Ck(err)
	err = os.WriteFile(tmpfn, data, 0644)
	Ck(err)
	err = os.Rename(tmpfn, s.sesspath)
	Ck(err)
	Debug(" done!")
	return
}

// AddExtraction appends one extraction run to the ledger.  The file
// contents are expected to already be in the blob store; only metadata
// lands here.
func (s *Session) AddExtraction(source string, files []CodeFile) (x *Extraction) {
	x = &Extraction{
		Id:        newFileId(),
		Source:    source,
		Timestamp: time.Now(),
	}
	for _, f := range files {
		x.Files = append(x.Files, FileMeta{Id: f.Id, Name: f.Name, Language: f.Language})
	}
	s.Extractions = append(s.Extractions, x)
	return
}
