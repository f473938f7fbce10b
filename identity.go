// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import "sort"

// Name is a package name: a non-empty identifier, case-sensitive, globally
// unique within a single resolution.
type Name string

// kind tags which of the three identity variants a Ref/Id/Range belongs to.
// Modeling this as an explicit tag (rather than a null-source sentinel)
// means accidental description access on a root or magic package is a
// checkable condition instead of a nil-pointer trap.
type kind uint8

const (
	kindNormal kind = iota
	kindRoot
	kindMagic
)

// Ref identifies a package without reference to any particular version:
// "which package", not "which version of it". Two Refs naming the same
// package from the same source are not necessarily == comparable in Go's
// sense when their descriptions are merely different spellings of the same
// location; use Ref.SamePackage with a SourceRegistry for that comparison, never a
// struct-literal equality check.
type Ref struct {
	name       Name
	kind       kind
	sourceName string
	desc       interface{}
}

// NewRef constructs a Ref for a normal (non-root, non-magic) package. A
// null source on a normal Ref is a programmer error, per the package
// identity invariants, and this constructor panics rather than returning a
// half-formed value.
func NewRef(name Name, sourceName string, desc interface{}) Ref {
	if sourceName == "" {
		panic("pub: non-root, non-magic Ref constructed with no source: " + string(name))
	}
	return Ref{name: name, kind: kindNormal, sourceName: sourceName, desc: desc}
}

// NewRootRef constructs the Ref for the project under resolution.
func NewRootRef(name Name) Ref {
	return Ref{name: name, kind: kindRoot}
}

// NewMagicRef constructs a synthesized Ref used to carry environment
// constraints (such as an SDK version) through the solver. Magic packages
// are never retrieved; they participate in solving only.
func NewMagicRef(name Name) Ref {
	return Ref{name: name, kind: kindMagic}
}

// Name returns the package name.
func (r Ref) Name() Name { return r.name }

// IsRoot reports whether r identifies the root project.
func (r Ref) IsRoot() bool { return r.kind == kindRoot }

// IsMagic reports whether r identifies a synthesized environment package.
func (r Ref) IsMagic() bool { return r.kind == kindMagic }

// SourceName returns the name of the source strategy that owns r, or ""
// for root and magic packages.
func (r Ref) SourceName() string { return r.sourceName }

// Description returns the source-owned opaque value locating the package.
// Calling this on a root or magic Ref returns nil; callers should check
// IsRoot/IsMagic first if that distinction matters, since nil is also a
// valid description for some sources.
func (r Ref) Description() interface{} { return r.desc }

// ToRef is the identity function for a Ref; it exists so that Id and Range
// can expose a uniform to_ref() per §4.1, and is idempotent by construction.
func (r Ref) ToRef() Ref { return r }

// SamePackage reports whether r and other identify the same package. Per
// the data model invariants: both must share a name, and then either both
// are root, both are magic, or both have non-null sources whose
// descriptions the registry considers equal. This is the only place
// description equality is consulted; it is always delegated to the owning
// source, never compared structurally.
func (r Ref) SamePackage(reg *SourceRegistry, other Ref) bool {
	if r.name != other.name {
		return false
	}
	if r.kind != other.kind {
		return false
	}
	switch r.kind {
	case kindRoot, kindMagic:
		return true
	default:
		if r.sourceName != other.sourceName {
			return false
		}
		src, err := reg.Resolve(r.sourceName)
		if err != nil {
			return false
		}
		return src.DescriptionsEqual(r.desc, other.desc)
	}
}

// Hash returns a hash consistent with SamePackage under a fixed registry:
// equal packages (per SamePackage) always hash equally. For non-root,
// non-magic packages the hash mixes in the source's own description hash,
// per the data model invariant that hashing must be consistent with
// equality and must not rely on structural hashing of opaque descriptions.
func (r Ref) Hash(reg *SourceRegistry) uint64 {
	h := fnv64(string(r.name))
	switch r.kind {
	case kindRoot:
		return mix(h, 1)
	case kindMagic:
		return mix(h, 2)
	default:
		h = mix(h, fnv64(r.sourceName))
		if src, err := reg.Resolve(r.sourceName); err == nil {
			// A proper mixing function, rather than the bare XOR the
			// original prototype used (see Design Notes open question):
			// fold the description hash through fnv's avalanche instead
			// of combining it with a single XOR, so that descriptions
			// whose hash happens to equal the source name don't cancel
			// out.
			h = mix(h, src.HashDescription(r.desc))
		}
		return h
	}
}

func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

func mix(a, b uint64) uint64 {
	const prime64 = 1099511628211
	a ^= b
	a *= prime64
	a ^= a >> 33
	return a
}

// Id is a Ref fully resolved to a specific version: a retrievable
// coordinate. The same logical content may be reachable through multiple
// non-equal Ids (e.g. mirrors); the solver deliberately treats those as
// distinct, since it is the Ref+Version pair, not the bytes, that the
// solver reasons about.
type Id struct {
	Ref
	Version Version
}

// NewId pairs a Ref with a Version to produce a retrievable Id.
func NewId(ref Ref, v Version) Id {
	return Id{Ref: ref, Version: v}
}

// ToRef returns the embedded Ref, satisfying Id ⊆ Ref.
func (i Id) ToRef() Ref { return i.Ref }

// SameId reports whether two Ids name the same package at the same version.
func (i Id) SameId(reg *SourceRegistry, other Id) bool {
	return i.SamePackage(reg, other.Ref) && i.Version.Equal(other.Version)
}

// Range is a Ref plus a version constraint and a feature set: "which
// package, and which of its versions, with which optional features".
type Range struct {
	ref        Ref
	constraint VersionConstraint
	features   featureSet
}

// NewRange constructs a Range with no features selected.
func NewRange(ref Ref, c VersionConstraint) Range {
	if c == nil {
		c = Any()
	}
	return Range{ref: ref, constraint: c}
}

// Ref returns the package identity this Range constrains.
func (rng Range) Ref() Ref { return rng.ref }

// ToRef returns the embedded Ref.
func (rng Range) ToRef() Ref { return rng.ref }

// Constraint returns the version constraint.
func (rng Range) Constraint() VersionConstraint { return rng.constraint }

// Features returns the feature set requested by this Range, as a sorted
// slice for deterministic iteration. Feature sets are unordered in value
// (see WithFeatures), but callers frequently want a stable order to print
// or hash against, hence the sort here rather than at storage time.
func (rng Range) Features() []string {
	return rng.features.slice()
}

// WithConstraint returns a copy of rng with its constraint replaced.
func (rng Range) WithConstraint(c VersionConstraint) Range {
	rng.constraint = c
	return rng
}

// WithFeatures returns a Range whose feature set is the union of rng's
// current features and the provided ones. Per §4.1, calling this with an
// empty input returns the receiver unchanged.
func (rng Range) WithFeatures(features ...string) Range {
	if len(features) == 0 {
		return rng
	}
	rng.features = rng.features.union(newFeatureSet(features))
	return rng
}

// SamePackage delegates to the embedded Ref.
func (rng Range) SamePackage(reg *SourceRegistry, other Ref) bool {
	return rng.ref.SamePackage(reg, other)
}

// Allows reports whether the Range admits the given Id: same package, and
// the constraint allows the Id's version.
func (rng Range) Allows(reg *SourceRegistry, id Id) bool {
	return rng.SamePackage(reg, id.Ref) && rng.constraint.Allows(id.Version)
}

// mergeFeatures unions the feature sets of two Ranges known (by the caller)
// to name the same package, per §4.8's "merging two Ranges on the same Ref
// unions their feature sets".
func mergeFeatures(a, b Range) featureSet {
	return a.features.union(b.features)
}

// featureSet is an unordered set of feature names. Two featureSets
// constructed from the same elements in different orders compare equal,
// per the data model invariant that feature-set order never matters.
type featureSet map[string]struct{}

func newFeatureSet(names []string) featureSet {
	fs := make(featureSet, len(names))
	for _, n := range names {
		fs[n] = struct{}{}
	}
	return fs
}

func (fs featureSet) union(other featureSet) featureSet {
	if len(fs) == 0 && len(other) == 0 {
		return nil
	}
	out := make(featureSet, len(fs)+len(other))
	for k := range fs {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

func (fs featureSet) equal(other featureSet) bool {
	if len(fs) != len(other) {
		return false
	}
	for k := range fs {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

func (fs featureSet) slice() []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, 0, len(fs))
	for k := range fs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
