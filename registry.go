// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"sync"

	radix "github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// SourceRegistry is the mapping name -> Source consulted whenever a Ref's
// source field must be resolved, per §4.2. It is built once per resolution
// and handed to every component that needs it explicitly; there is no
// package-level registry singleton, matching the "pass a context object
// explicitly" design note.
//
// Names are stored in a radix tree rather than a plain map so that source
// names sharing a dispatch prefix (e.g. every "git+" variant, or "sdk:go",
// "sdk:dart") can, if a future Source wants it, be resolved by longest
// matching prefix via ResolvePrefix. Register still requires an exact,
// unique name.
type SourceRegistry struct {
	mu sync.RWMutex
	t  *radix.Tree
}

// NewSourceRegistry returns an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{t: radix.New()}
}

// Register adds src under its own Name(). Registering a second Source under
// a name already in use is a programmer error and panics, mirroring how
// NewRef panics on a missing source: both are invariant violations that
// should never survive to production, not recoverable runtime conditions.
func (r *SourceRegistry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, had := r.t.Insert(src.Name(), src); had {
		panic("pub: source registered twice: " + src.Name())
	}
}

// Resolve looks up the Source registered under name. Per §4.2, an unknown
// name fails with UnknownSourceError rather than a panic: unlike a
// double-registration, a bad source name can originate from untrusted
// manifest or lockfile text.
func (r *SourceRegistry) Resolve(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.t.Get(name)
	if !ok {
		return nil, errors.WithStack(&UnknownSourceError{SourceName: name})
	}
	return v.(Source), nil
}

// ResolvePrefix resolves the Source registered under the longest prefix of
// name found in the tree. Used by sources that register a family of
// variants under a shared stem (see DOMAIN STACK: armon/go-radix entry).
func (r *SourceRegistry) ResolvePrefix(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, v, ok := r.t.LongestPrefix(name)
	if !ok {
		return nil, false
	}
	return v.(Source), true
}

// Len returns the number of registered sources.
func (r *SourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t.Len()
}
