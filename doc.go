// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pub implements a backtracking version solver for a package
// manager's dependency resolution core.
//
// Given a root project's manifest, a set of pluggable package sources, and
// an optional prior lockfile, it computes a consistent assignment of one
// concrete version per package that satisfies every transitive constraint,
// and can emit that assignment as a new lockfile for reproducible retrieval.
//
// The registry client, archive handling, publishing, and CLI plumbing that
// normally surround a solver like this live outside this package; pub only
// consumes them through the Source interface and the SourceRegistry.
package pub
