// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

// cause identifies what introduced a Range into the constraint store: the
// name of the package whose manifest declared it (the solver attributes the
// root's own Ranges to the root package's name).
// Magic packages (environment constraints) are also named causes; they are
// not special-cased here, only by the solver that reads EnvironmentConstraints.
type cause struct {
	by  Name
	rng Range
}

// constraintEntry is the accumulated state for one Ref: every Range imposed
// on it so far, and the current intersection of those Ranges' constraints.
type constraintEntry struct {
	ref      Ref
	causes   []cause
	override *cause
	current  VersionConstraint
}

func newConstraintEntry(ref Ref) *constraintEntry {
	return &constraintEntry{ref: ref, current: Any()}
}

func (e *constraintEntry) recompute() {
	if e.override != nil {
		e.current = e.override.rng.Constraint()
		return
	}
	c := Any()
	for _, cs := range e.causes {
		c = c.Intersect(cs.rng.Constraint())
	}
	e.current = c
}

// ConstraintStore maintains, for every Ref seen so far, the intersection of
// every Range.Constraint currently imposed on it, per §4.5. It is the
// source of truth the solver consults before picking a candidate.
type ConstraintStore struct {
	entries map[Name]*constraintEntry
}

// NewConstraintStore returns an empty store.
func NewConstraintStore() *ConstraintStore {
	return &ConstraintStore{entries: make(map[Name]*constraintEntry)}
}

// Add intersects rng's constraint into the accumulated state for its Ref,
// attributing the change to by. It reports ok=false with the full cause set
// of the now-empty intersection when the addition makes the Ref
// unsatisfiable. An override cause (SUPPLEMENTAL FEATURES #1) replaces the
// current constraint outright instead of intersecting with it.
func (s *ConstraintStore) Add(ref Ref, rng Range, by Name, override bool) (ok bool, culprits []Name) {
	e, has := s.entries[ref.Name()]
	if !has {
		e = newConstraintEntry(ref)
		s.entries[ref.Name()] = e
	}

	c := cause{by: by, rng: rng}
	if override {
		e.override = &c
	} else {
		e.causes = append(e.causes, c)
	}
	e.recompute()

	if IsNone(e.current) {
		return false, e.culpritNames()
	}
	return true, nil
}

func (e *constraintEntry) culpritNames() []Name {
	seen := make(map[Name]bool, len(e.causes)+1)
	var out []Name
	if e.override != nil {
		if !seen[e.override.by] {
			seen[e.override.by] = true
			out = append(out, e.override.by)
		}
	}
	for _, c := range e.causes {
		if !seen[c.by] {
			seen[c.by] = true
			out = append(out, c.by)
		}
	}
	return out
}

// Remove discards every cause attributed to by, across every Ref, and
// recomputes affected intersections. Used on backtrack, per §4.5.
func (s *ConstraintStore) Remove(by Name) {
	for _, e := range s.entries {
		if e.override != nil && e.override.by == by {
			e.override = nil
		}
		kept := e.causes[:0]
		for _, c := range e.causes {
			if c.by != by {
				kept = append(kept, c)
			}
		}
		e.causes = kept
		e.recompute()
	}
}

// ConstraintFor returns the current accumulated constraint for name, or Any
// if nothing has constrained it yet.
func (s *ConstraintStore) ConstraintFor(name Name) VersionConstraint {
	e, has := s.entries[name]
	if !has {
		return Any()
	}
	return e.current
}

// RefFor returns the Ref under which name was first registered, if any.
// The solver uses this to recover the source/description needed to query
// the version cache, since later Ranges only need the name to merge.
func (s *ConstraintStore) RefFor(name Name) (Ref, bool) {
	e, has := s.entries[name]
	if !has {
		return Ref{}, false
	}
	return e.ref, true
}

// Names returns every Ref name the store has an entry for.
func (s *ConstraintStore) Names() []Name {
	out := make([]Name, 0, len(s.entries))
	for n := range s.entries {
		out = append(out, n)
	}
	return out
}
