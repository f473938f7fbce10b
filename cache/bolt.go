// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache provides a persistent, on-disk VersionCache backing,
// letting repeated resolutions of an unchanged dependency graph skip the
// network, per §4.6.
package cache

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/dam0vm3nt/pub"
)

// Bolt implements pub.PersistentCache over a single BoltDB file per cache
// directory, grounded on the teacher's singleSourceCacheBolt.
//
// One top-level bucket per source name holds one key per package name;
// values are a gob-encoded, timestamped list of Ids. A stored list older
// than epoch is treated as a miss, the same staleness model the teacher's
// cache uses its epoch field for.
type Bolt struct {
	db    *bolt.DB
	epoch time.Time
}

type record struct {
	StoredAt time.Time
	Ids      []storedID
}

type storedID struct {
	Name    string
	Source  string
	Version string
}

// Open opens (creating if necessary) a Bolt cache rooted at dir. Entries
// written before epoch are never returned; passing the zero Time disables
// staleness checking.
func Open(dir string, epoch time.Time) (*Bolt, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %s", dir)
	}
	path := filepath.Join(dir, "pub-cache.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache %s", path)
	}
	return &Bolt{db: db, epoch: epoch}, nil
}

// Close releases the underlying database file.
func (b *Bolt) Close() error { return b.db.Close() }

// Get implements pub.PersistentCache. Descriptions are not reconstructed
// here: only the name, source name and version string are round-tripped,
// since the source itself is what knows how to re-derive a description.
// The returned Ids carry a nil description, leaving identity
// reconstruction to the caller (pub.VersionCache reattaches the Ref it was
// asked about). For sources whose Ref carries no meaningful per-version
// description variance, version strings are sufficient on their own.
func (b *Bolt) Get(sourceName string, ref pub.Name) ([]pub.Id, bool) {
	var rec record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sourceName))
		if bucket == nil {
			return errNotFound
		}
		v := bucket.Get([]byte(ref))
		if v == nil {
			return errNotFound
		}
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&rec)
	})
	if err != nil {
		return nil, false
	}
	if !b.epoch.IsZero() && rec.StoredAt.Before(b.epoch) {
		return nil, false
	}

	ids := make([]pub.Id, 0, len(rec.Ids))
	for _, sid := range rec.Ids {
		// The description itself is not round-tripped: only the owning
		// source knows how to rebuild one from a bare name, and the
		// cache has no way to call back into it. Candidates returned
		// here carry a nil description; a source whose identity
		// comparisons need more than name+version should not be
		// fronted by this cache.
		ids = append(ids, pub.NewId(pub.NewRef(pub.Name(sid.Name), sid.Source, nil), pub.NewVersion(sid.Version)))
	}
	return ids, true
}

// Put implements pub.PersistentCache.
func (b *Bolt) Put(sourceName string, ref pub.Name, ids []pub.Id) {
	rec := record{StoredAt: time.Now(), Ids: make([]storedID, 0, len(ids))}
	for _, id := range ids {
		rec.Ids = append(rec.Ids, storedID{
			Name:    string(id.Name()),
			Source:  id.SourceName(),
			Version: id.Version.String(),
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return
	}

	_ = b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(sourceName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(ref), buf.Bytes())
	})
}

var errNotFound = errors.New("cache: not found")
