package core

import (
	"fmt"
	"os"

	. "github.com/stevegt/goadapt"
	"github.com/stevegt/semver"
)

// migrate migrates the session database from an older version of the
// software to the current version.
func (s *Session) migrate() (migrated bool, was, now string, err error) {
	defer Return(&err)

	// set version if unset; early dbs predate the version field
	if s.Version == "" {
		s.Version = "0.9.0"
	}

	was = s.Version
	now = s.Version

	// loop until migrations are done
	for {

		// check if migration is necessary
		var dbver, codever *semver.Version
		dbver, err = semver.Parse([]byte(s.Version))
		Ck(err)
		codever, err = semver.Parse([]byte(Version))
		Ck(err)
		if semver.Cmp(dbver, codever) == 0 {
			// no migration necessary
			break
		}

		// see if db is newer version than code
		if semver.Cmp(dbver, codever) > 0 {
			err = fmt.Errorf("db is version %s, but you're running decant version %s -- please upgrade decant", s.Version, Version)
			return
		}

		// at this point, we know the db is older than the code

		Fpf(os.Stderr, "migrating from %s to %s\n", s.Version, Version)

		// if we get here, then dbver < codever
		_, minor, patch := semver.Upgrade(dbver, codever)
		Assert(patch, "patch should be true: %s -> %s", dbver, codever)

		// figure out what kind of migration we need to do
		if minor {
			// minor version changed; db migration necessary
			err = s.migrateOneVersion()
			Ck(err)
		} else {
			// only patch version changed; a patch version change is
			// just a code change, so just update the version number
			// in the db
			s.Version = Version
		}

		migrated = true
	}

	now = s.Version

	return
}

// migrateOneVersion migrates the db from the current version to the
// next version.
func (s *Session) migrateOneVersion() (err error) {
	defer Return(&err)
	var v *semver.Version
	v, err = semver.Parse([]byte(s.Version))
	Ck(err)
	switch Spf("%s.%s.X", v.Major, v.Minor) {
	case "0.9.X":
		// 0.9 had the call name hardcoded; store it so it can be
		// changed per workspace
		if s.CallName == "" {
			s.CallName = "input"
		}
		s.Version = "1.0.0"
	case "1.0.X":
		// 1.0 kept extracted files next to the db; 1.1 moves them
		// into a blob store
		if s.StoreName == "" {
			s.StoreName = DefaultStoreName
		}
		s.Version = "1.1.0"
	case "1.1.X":
		// early 1.1 ledgers had no per-run ids; assign them
		for _, x := range s.Extractions {
			if x.Id == "" {
				x.Id = newFileId()
			}
		}
		s.Version = "1.2.0"
	default:
		Assert(false, "migration missing: from version %s", s.Version)
	}
	return
}
