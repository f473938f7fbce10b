// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// WriteLockfile writes a Lockfile's serialized form to path as a
// pseudo-atomic action: write to a temp file in the same directory, then
// rename over the destination, guarded by an advisory file lock so two
// concurrent invocations of the CLI front-end (one of the few places
// outside a single Solve call that can run concurrently, per §5) don't
// interleave writes to the same lockfile.
func WriteLockfile(path string, l *Lockfile) error {
	data, err := l.Serialize()
	if err != nil {
		return err
	}

	lockPath := path + ".writelock"
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return errors.Wrapf(err, "acquiring write lock for %s", path)
	}
	if !locked {
		return errors.Errorf("another process is writing %s", path)
	}
	defer fl.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pub-lock-*")
	if err != nil {
		return errors.Wrap(err, "creating temp lockfile")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temp lockfile")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp lockfile")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "replacing lockfile")
	}
	return nil
}
