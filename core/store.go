package core

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/stevegt/decant/kv"
	. "github.com/stevegt/goadapt"
)

// bucket names in the workspace store
const (
	bucketFiles  = "files"
	bucketMeta   = "meta"
	bucketConfig = "config"
)

// configLast is the config key holding the most recent extraction id.
const configLast = "last"

// OpenStore opens the workspace blob store for this session.
func (s *Session) OpenStore() (store kv.KVStore, err error) {
	defer Return(&err)
	store, err = kv.Open(s.StorePath())
	Ck(err)
	return
}

// SaveFiles writes extracted files to the blob store and appends an
// extraction record to the session ledger.  The session file itself is
// not saved here; the caller decides when to persist it.
func (s *Session) SaveFiles(store kv.KVStore, source string, files []CodeFile) (x *Extraction, err error) {
	defer Return(&err)
	x = s.AddExtraction(source, files)
	err = store.Update(func(tx kv.WriteTx) error {
		for _, f := range files {
			if err := tx.Put(bucketFiles, f.Id, []byte(f.Content)); err != nil {
				return err
			}
			meta, err := json.Marshal(FileMeta{Id: f.Id, Name: f.Name, Language: f.Language})
			if err != nil {
				return err
			}
			if err := tx.Put(bucketMeta, f.Id, meta); err != nil {
				return err
			}
		}
		return tx.Put(bucketConfig, configLast, []byte(x.Id))
	})
	Ck(err)
	return
}

// ExtractToStore runs the extraction pipeline over text and persists
// the results.  A text with no usable blocks is not an error; it
// returns zero files and no ledger entry.
func (s *Session) ExtractToStore(store kv.KVStore, source, text string) (files []CodeFile, x *Extraction, err error) {
	defer Return(&err)
	files = ExtractCode(text)
	if len(files) == 0 {
		return
	}
	x, err = s.SaveFiles(store, source, files)
	Ck(err)
	return
}

// LoadFile reads one extracted file back from the store by id.
func LoadFile(store kv.KVStore, id string) (f CodeFile, err error) {
	defer Return(&err)
	err = store.View(func(tx kv.ReadTx) error {
		buf := tx.Get(bucketMeta, id)
		if buf == nil {
			return fmt.Errorf("no file with id %q in store", id)
		}
		var m FileMeta
		if err := json.Unmarshal(buf, &m); err != nil {
			return err
		}
		f = CodeFile{
			Id:       m.Id,
			Name:     m.Name,
			Language: m.Language,
			Content:  string(tx.Get(bucketFiles, id)),
		}
		return nil
	})
	Ck(err)
	return
}

// ListFiles returns the metadata of every file in the store, sorted by
// name and then id.
func ListFiles(store kv.KVStore) (metas []FileMeta, err error) {
	defer Return(&err)
	err = store.View(func(tx kv.ReadTx) error {
		return tx.ForEach(bucketMeta, func(k, v []byte) error {
			var m FileMeta
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			metas = append(metas, m)
			return nil
		})
	})
	Ck(err)
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Name != metas[j].Name {
			return metas[i].Name < metas[j].Name
		}
		return metas[i].Id < metas[j].Id
	})
	return
}

// LastExtractionId returns the id of the most recent extraction, or
// empty when the store has never seen one.
func LastExtractionId(store kv.KVStore) (id string, err error) {
	defer Return(&err)
	err = store.View(func(tx kv.ReadTx) error {
		id = string(tx.Get(bucketConfig, configLast))
		return nil
	})
	Ck(err)
	return
}

// FindFileByName resolves a filename to the most recently extracted
// file with that name, using the session ledger for recency.
func (s *Session) FindFileByName(name string) (id string, err error) {
	defer Return(&err)
	for i := len(s.Extractions) - 1; i >= 0; i-- {
		for _, m := range s.Extractions[i].Files {
			if m.Name == name {
				return m.Id, nil
			}
		}
	}
	err = fmt.Errorf("no file named %q in any extraction", name)
	return
}
