// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Lockfile is a prior solution: a mapping of package name to the Id it was
// resolved to, plus the set of sources that produced those Ids, per §4.4.
// The solver uses it as a bias, never as a constraint.
type Lockfile struct {
	entries map[Name]Id
	sources map[string]bool
}

// NewLockfile builds a Lockfile from a set of resolved Ids.
func NewLockfile(ids []Id) *Lockfile {
	l := &Lockfile{
		entries: make(map[Name]Id, len(ids)),
		sources: make(map[string]bool),
	}
	for _, id := range ids {
		l.entries[id.Name()] = id
		if !id.IsRoot() && !id.IsMagic() {
			l.sources[id.SourceName()] = true
		}
	}
	return l
}

// IdFor returns the locked Id for name, if any.
func (l *Lockfile) IdFor(name Name) (Id, bool) {
	id, ok := l.entries[name]
	return id, ok
}

// Sources returns the set of source names that produced the locked Ids.
func (l *Lockfile) Sources() map[string]bool { return l.sources }

// Len returns the number of locked packages.
func (l *Lockfile) Len() int { return len(l.entries) }

// sortedNames returns the locked package names in ascending order, the
// deterministic iteration order §4.4 requires of Serialize.
func (l *Lockfile) sortedNames() []Name {
	names := make([]Name, 0, len(l.entries))
	for n := range l.entries {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// rawLockfile is the on-disk JSON shape: a flat, sorted list of entries,
// mirroring the teacher's rawLock/lockedDep split between in-memory and
// wire representation.
type rawLockfile struct {
	Packages []rawLockEntry `json:"packages"`
}

type rawLockEntry struct {
	Name    string `json:"name"`
	Source  string `json:"source,omitempty"`
	Version string `json:"version"`
}

// Serialize renders the lockfile deterministically: packages ordered by
// name ascending, so repeated resolutions of an unchanged dependency graph
// produce byte-identical output.
func (l *Lockfile) Serialize() ([]byte, error) {
	raw := rawLockfile{Packages: make([]rawLockEntry, 0, len(l.entries))}
	for _, name := range l.sortedNames() {
		id := l.entries[name]
		raw.Packages = append(raw.Packages, rawLockEntry{
			Name:    string(name),
			Source:  id.SourceName(),
			Version: id.Version.String(),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return nil, errors.Wrap(err, "serializing lockfile")
	}
	return buf.Bytes(), nil
}

// LoadLockfile parses lockfile text previously produced by Serialize. The
// lockfile records no descriptions: each entry's Ref gets the description
// its source (resolved through reg) parses from the package name.
func LoadLockfile(data []byte, reg *SourceRegistry) (*Lockfile, error) {
	var raw rawLockfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{File: "lock", Err: err}
	}

	l := &Lockfile{
		entries: make(map[Name]Id, len(raw.Packages)),
		sources: make(map[string]bool),
	}
	for _, e := range raw.Packages {
		var ref Ref
		if e.Source == "" {
			ref = NewRootRef(Name(e.Name))
		} else {
			src, err := reg.Resolve(e.Source)
			if err != nil {
				return nil, errors.Wrapf(err, "lock entry %s", e.Name)
			}
			desc, err := src.ParseDescription(e.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "lock entry %s: parsing description", e.Name)
			}
			ref = NewRef(Name(e.Name), e.Source, desc)
			l.sources[e.Source] = true
		}
		l.entries[Name(e.Name)] = NewId(ref, NewVersion(e.Version))
	}
	return l, nil
}

// locationFor renders the flattened "source:name@version" string
// packages_file uses, per SUPPLEMENTAL FEATURES #4.
func locationFor(id Id) string {
	if id.IsRoot() {
		return "root"
	}
	if id.IsMagic() {
		return "magic:" + string(id.Name())
	}
	return id.SourceName() + ":" + string(id.Name()) + "@" + id.Version.String()
}

// PackagesFile emits the flat name-to-location map used by the runtime to
// locate each package's materialized content, per §4.4. This is not
// consulted by the solver; it is produced once, after Serialize, for the
// external fetcher.
func (l *Lockfile) PackagesFile() ([]byte, error) {
	out := make(map[string]string, len(l.entries))
	for _, name := range l.sortedNames() {
		out[string(name)] = locationFor(l.entries[name])
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, errors.Wrap(err, "serializing packages file")
	}
	return buf.Bytes(), nil
}
