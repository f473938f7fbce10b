// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import "context"

// Source abstracts over where a package's bytes and metadata come from: a
// hosted registry, a git repository, a local path, or an SDK-bundled
// package. A Source is the only place description-specific logic lives;
// the solver and everything above it treats descriptions as opaque.
type Source interface {
	// Name returns the strategy name this source is registered under
	// (e.g. "hosted", "git", "path", "sdk").
	Name() string

	// ParseDescription turns a manifest-level representation of a
	// dependency location (as read from a Range's source-specific
	// fields) into the opaque description value this source attaches
	// to a Ref.
	ParseDescription(raw interface{}) (interface{}, error)

	// DescriptionsEqual reports whether a and b denote the same package
	// location, even if they are not identical values (e.g. a URL with
	// and without a trailing slash).
	DescriptionsEqual(a, b interface{}) bool

	// HashDescription returns a hash consistent with DescriptionsEqual:
	// descriptions it considers equal must hash equally.
	HashDescription(desc interface{}) uint64

	// ListVersions returns every candidate Id for ref, source-ordered
	// (typically newest-first; see VersionCache). Results are never
	// mutated by the caller.
	ListVersions(ctx context.Context, ref Ref) ([]Id, error)

	// DescribeDependencies returns the Manifest declared by id: its
	// dependencies, dev-dependencies, environment constraints, and
	// features, as understood by this source.
	DescribeDependencies(ctx context.Context, id Id) (Manifest, error)

	// Materialize fetches id's content into the caller-supplied
	// directory, for sources that support it. Most sources don't need
	// this invoked during solving; it exists for the "path" source,
	// which copies its directory into dir, and for completeness of the
	// Source contract at the §1 system boundary.
	Materialize(ctx context.Context, id Id, dir string) error
}
