// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// VersionCache lazily fetches and memoizes the ordered list of Ids a Ref's
// owning source can produce, per §4.6. A package name is globally unique
// within a resolution (§3), so the cache keys on name rather than
// attempting structural comparison of opaque descriptions. The cache is
// monotonic: once populated for a name, an entry is never invalidated for
// the lifetime of the resolution, even across backtracking.
type VersionCache struct {
	reg *SourceRegistry

	mu      sync.Mutex
	entries map[Name][]Id
	persist PersistentCache
}

// PersistentCache is the optional on-disk half of the version cache (§4.6,
// DOMAIN STACK: boltdb/bolt), consulted before falling through to the
// source and updated after a live fetch.
type PersistentCache interface {
	Get(sourceName string, ref Name) ([]Id, bool)
	Put(sourceName string, ref Name, ids []Id)
}

// NewVersionCache returns a cache backed by reg, optionally fronted by a
// PersistentCache. persist may be nil.
func NewVersionCache(reg *SourceRegistry, persist PersistentCache) *VersionCache {
	return &VersionCache{
		reg:     reg,
		entries: make(map[Name][]Id),
		persist: persist,
	}
}

// CandidatesFor returns the source-ordered candidate Ids for ref, fetching
// and memoizing them on first use. Magic and root Refs have no source and
// are not handled here; the solver seeds those directly.
func (c *VersionCache) CandidatesFor(ctx context.Context, ref Ref) ([]Id, error) {
	c.mu.Lock()
	if ids, has := c.entries[ref.Name()]; has {
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	if c.persist != nil {
		if cached, has := c.persist.Get(ref.SourceName(), ref.Name()); has {
			// The persistent cache stores no descriptions; reattach ref
			// so each candidate carries the identity it was listed under.
			ids := make([]Id, len(cached))
			for i, id := range cached {
				ids[i] = NewId(ref, id.Version)
			}
			c.mu.Lock()
			c.entries[ref.Name()] = ids
			c.mu.Unlock()
			return ids, nil
		}
	}

	src, err := c.reg.Resolve(ref.SourceName())
	if err != nil {
		return nil, err
	}

	ids, err := src.ListVersions(ctx, ref)
	if err != nil {
		if nv, ok := err.(*NoVersionsError); ok {
			return nil, nv
		}
		return nil, errors.Wrapf(err, "listing versions of %s", ref.Name())
	}
	if len(ids) == 0 {
		return nil, &NoVersionsError{Pkg: ref.Name()}
	}
	sortNewestFirst(ids)

	c.mu.Lock()
	c.entries[ref.Name()] = ids
	c.mu.Unlock()

	if c.persist != nil {
		c.persist.Put(ref.SourceName(), ref.Name(), ids)
	}
	return ids, nil
}

// Seed installs an explicit candidate list for name, bypassing the source.
// Used by the solver for the root package (one candidate: itself) and for
// magic packages (one candidate: the environment's fixed value).
func (c *VersionCache) Seed(name Name, ids []Id) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = ids
}

// sortNewestFirst orders ids by Version descending, the "typically
// newest-first" default order §4.6 describes for a source lacking its own
// stronger ordering opinion. Ties (the same version published through more
// than one source for the same Ref) break on SourceName ascending, the
// deterministic rule §9's candidate-ordering Open Question calls for.
func sortNewestFirst(ids []Id) {
	sort.SliceStable(ids, func(i, j int) bool {
		if ids[i].Version.Equal(ids[j].Version) {
			return ids[i].SourceName() < ids[j].SourceName()
		}
		return ids[j].Version.Less(ids[i].Version)
	})
}
