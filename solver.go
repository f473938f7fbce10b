// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sdboyer/constext"
	"github.com/sirupsen/logrus"
)

// SolveMode selects how the solver weighs the prior lockfile against
// source-defined preference order, per §4.8 step 3.
type SolveMode int

const (
	// ModeResolve is a plain resolve: honor the lockfile wherever legal.
	ModeResolve SolveMode = iota
	// ModeUpgrade ignores the lockfile bias for every package in Unlock
	// (by default, every package).
	ModeUpgrade
	// ModeDowngrade reverses the source-defined preference order.
	ModeDowngrade
	// ModeGet behaves like ModeResolve; it exists as a distinct mode so
	// a front-end can report it distinctly to the user.
	ModeGet
)

// SolveParameters configures one Solve invocation. It is always passed
// explicitly into NewSolver; the solver reads no globals and no env vars
// itself (the CLI front-end is responsible for turning flags and env vars
// such as PUB_CACHE_DIR into this struct before calling in).
type SolveParameters struct {
	RootName Name
	Root     Manifest
	Registry *SourceRegistry
	Lock     *Lockfile
	Unlock   map[Name]bool
	Mode     SolveMode
	// Environment lists the fixed Ids of magic packages representing the
	// resolving environment (e.g. an SDK version), installed as the sole
	// candidate for their Ref before solving begins.
	Environment []Id
	Cache       *VersionCache
	Logger      *logrus.Logger
}

// Result is the outcome of a successful Solve.
type Result struct {
	Lockfile *Lockfile
	Attempts int
	RunID    string
}

// decision is one frame of the solver's decision stack.
type decision struct {
	name      Name
	id        Id
	manifest  Manifest
	auto      bool // true if reached via propagation rather than an explicit Decide
}

// featureCause records that by's manifest requested feature on a package,
// so backtrack can retract it if by is ever undecided.
type featureCause struct {
	by      Name
	feature string
}

// Solver runs the backtracking search described in §4.8. It is
// single-threaded and keeps its search state on the struct; Solve does not
// reset that state, so a fresh Solver is required per resolution.
type Solver struct {
	reg   *SourceRegistry
	cache *VersionCache
	store *ConstraintStore
	graph *DerivationGraph
	log   *logrus.Logger

	params SolveParameters

	decisions []decision
	pending   map[Name]bool
	// order records every Ref name the moment it is first seen, so
	// nextPending/propagate iterate in a fixed, input-determined order
	// instead of Go's randomized map iteration — required by §8's
	// determinism invariant.
	order    []Name
	refs     map[Name]Ref
	failed   map[Name]map[string]bool
	attempts int

	// featureCauses attributes every feature requested on a package to the
	// depender that requested it (§4.3's "conditional dependency groups
	// keyed by feature"), the same cause-tracking shape ConstraintStore
	// uses for constraints, so backtrack can undo a depender's requests
	// along with its other bookkeeping. expand consults the deduplicated,
	// first-seen-order feature list for name when loading its manifest, to
	// fold in the matching FeatureDependencies groups alongside its
	// ordinary deps.
	featureCauses map[Name][]featureCause

	callerCtx context.Context
}

// NewSolver constructs a Solver for one resolution. l may be nil, in which
// case a default logrus.Logger is created, matching the teacher's
// NewSolver(sm, l) pattern.
func NewSolver(params SolveParameters, l *logrus.Logger) *Solver {
	if l == nil {
		l = logrus.New()
	}
	cache := params.Cache
	if cache == nil {
		cache = NewVersionCache(params.Registry, nil)
	}
	return &Solver{
		reg:           params.Registry,
		cache:         cache,
		store:         NewConstraintStore(),
		graph:         NewDerivationGraph(),
		log:           l,
		params:        params,
		pending:       make(map[Name]bool),
		refs:          make(map[Name]Ref),
		failed:        make(map[Name]map[string]bool),
		featureCauses: make(map[Name][]featureCause),
	}
}

// Solve runs the search to completion, returning a new Lockfile on success.
func (s *Solver) Solve(callerCtx context.Context) (*Result, error) {
	runID := uuid.NewString()
	s.log.WithFields(logrus.Fields{"run": runID}).Info("starting resolution")

	// ctx is this Solve call's own lifetime, derived from the caller's
	// context and passed to every source call; loadManifest additionally
	// conjoins it with the caller's context through constext, so canceling
	// either stops an in-flight source call at the suspension point (§5)
	// it's blocked on.
	ctx, cancel := context.WithCancel(callerCtx)
	defer cancel()
	s.callerCtx = callerCtx

	rootID := NewId(NewRootRef(s.params.RootName), Version{})
	s.cache.Seed(s.params.RootName, []Id{rootID})

	for _, envID := range s.params.Environment {
		s.cache.Seed(envID.Name(), []Id{envID})
	}

	s.decisions = append(s.decisions, decision{name: s.params.RootName, id: rootID, manifest: s.params.Root, auto: false})
	if err := s.expand(s.params.RootName, rootID, s.params.Root, true); err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.propagate(ctx); err != nil {
			if !s.backtrack() {
				return nil, err
			}
			continue
		}

		name, has := s.nextPending()
		if !has {
			break
		}

		id, err := s.decide(ctx, name)
		if err != nil {
			if !s.backtrack() {
				return nil, err
			}
			continue
		}

		delete(s.pending, name)
		manifest, err := s.loadManifest(ctx, id)
		if err != nil {
			if !s.backtrack() {
				return nil, err
			}
			continue
		}

		s.decisions = append(s.decisions, decision{name: name, id: id, manifest: manifest})
		if err := s.expand(name, id, manifest, false); err != nil {
			if !s.backtrack() {
				return nil, err
			}
			continue
		}
	}

	ids := make([]Id, 0, len(s.decisions))
	for _, d := range s.decisions {
		ids = append(ids, d.id)
	}
	return &Result{Lockfile: NewLockfile(ids), Attempts: s.attempts, RunID: runID}, nil
}

// nextPending returns the earliest-seen undecided Ref name, if any remain.
func (s *Solver) nextPending() (Name, bool) {
	for _, n := range s.order {
		if s.pending[n] {
			return n, true
		}
	}
	return "", false
}

// propagate repeatedly auto-decides any Ref whose constraint currently
// admits exactly one candidate, per §4.8 step 2. It visits pending Refs in
// first-seen order so the result doesn't depend on map iteration order.
func (s *Solver) propagate(ctx context.Context) error {
	for {
		progressed := false
		for _, name := range s.order {
			if !s.pending[name] {
				continue
			}
			ref, ok := s.store.RefFor(name)
			if !ok {
				continue
			}
			candidates, err := s.allowedCandidates(ctx, ref)
			if err != nil {
				return err
			}
			if len(candidates) != 1 {
				continue
			}

			id := candidates[0]
			s.attempts++
			manifest, err := s.loadManifest(ctx, id)
			if err != nil {
				return err
			}

			delete(s.pending, name)
			s.decisions = append(s.decisions, decision{name: name, id: id, manifest: manifest, auto: true})
			if err := s.expand(name, id, manifest, false); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
}

// allowedCandidates returns ref's version-cache candidates filtered by the
// store's current intersection and this Ref's locally-failed set.
func (s *Solver) allowedCandidates(ctx context.Context, ref Ref) ([]Id, error) {
	all, err := s.cache.CandidatesFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	c := s.store.ConstraintFor(ref.Name())
	failed := s.failed[ref.Name()]

	out := make([]Id, 0, len(all))
	for _, id := range all {
		if failed != nil && failed[id.Version.String()] {
			continue
		}
		if c.Allows(id.Version) {
			out = append(out, id)
		}
	}
	return out, nil
}

// decide picks the next candidate Id for name, applying the value order of
// §4.8 step 3.
func (s *Solver) decide(ctx context.Context, name Name) (Id, error) {
	ref, _ := s.store.RefFor(name)
	candidates, err := s.allowedCandidates(ctx, ref)
	if err != nil {
		return Id{}, err
	}
	if len(candidates) == 0 {
		return Id{}, &NoVersionsError{Pkg: name}
	}

	s.attempts++

	// unlocked(name) holds only under ModeUpgrade, and only for the
	// packages named in Unlock (an empty Unlock set means "all", per the
	// CLI's "upgrade: ignore the lockfile... default: all"). Every other
	// mode honors the lock for every package, matching §4.8 step 3's "the
	// lockfile is a bias, never ignored except when explicitly upgrading."
	unlockAll := len(s.params.Unlock) == 0
	unlocked := s.params.Mode == ModeUpgrade && (unlockAll || s.params.Unlock[name])

	if !unlocked && s.params.Lock != nil {
		if locked, has := s.params.Lock.IdFor(name); has {
			for _, c := range candidates {
				if c.Version.Equal(locked.Version) {
					return c, nil
				}
			}
		}
	}

	ordered := append([]Id(nil), candidates...)
	if s.params.Mode == ModeDowngrade {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	return ordered[0], nil
}

// loadManifest fetches id's manifest, special-casing the root (whose
// manifest is already known) and magic packages (which carry none).
func (s *Solver) loadManifest(ctx context.Context, id Id) (Manifest, error) {
	if id.IsRoot() {
		return s.params.Root, nil
	}
	if id.IsMagic() {
		return nil, nil
	}
	src, err := s.reg.Resolve(id.SourceName())
	if err != nil {
		return nil, err
	}

	callCtx, cancel := constext.Cons(ctx, s.callerCtx)
	defer cancel()

	m, err := src.DescribeDependencies(callCtx, id)
	if err != nil {
		return nil, &SourceUnavailableError{SourceName: id.SourceName(), Err: err}
	}
	return m, nil
}

// expand registers id's dependencies (and, for root, dev-dependencies and
// environment constraints) into the constraint store and derivation graph,
// per §4.8 step 4. It seeds the pending set for any newly-seen Ref, and
// folds in name's own feature-gated dependencies (§4.3, §4.8) for every
// feature any depender has requested on it so far via recordFeatures.
func (s *Solver) expand(name Name, id Id, m Manifest, isRoot bool) error {
	if m == nil {
		return nil
	}

	ranges := append([]Range(nil), m.Dependencies()...)
	if isRoot {
		ranges = append(ranges, m.DevDependencies()...)
		for _, r := range m.EnvironmentConstraints() {
			ranges = append(ranges, r)
		}
	}
	for _, feature := range s.requestedFeatures(name) {
		ranges = append(ranges, m.FeatureDependencies(feature)...)
	}

	ignores := m.IgnoredPackages()
	rootIgnores := s.params.Root.IgnoredPackages()

	if isRoot {
		// Overrides are seeded before any dependency, so they supersede
		// every Range later imposed on the same Ref, the root's own included.
		for _, o := range m.Overrides() {
			if ok, culprits := s.store.Add(o.ToRef(), o, name, true); !ok {
				return s.conflictError(o.ToRef().Name(), culprits)
			}
		}
	}

	for _, r := range ranges {
		ref := r.ToRef()
		if ignores[ref.Name()] || rootIgnores[ref.Name()] {
			continue
		}
		if _, seen := s.refs[ref.Name()]; !seen {
			s.refs[ref.Name()] = ref
			s.pending[ref.Name()] = true
			s.order = append(s.order, ref.Name())
		}
		s.recordFeatures(ref.Name(), name, r.Features())

		ok, culprits := s.store.Add(ref, r, name, false)
		s.graph.Record(name, ref.Name(), r)
		if !ok {
			return s.conflictError(ref.Name(), culprits)
		}
	}
	return nil
}

// recordFeatures attributes a request for each of features on target to by,
// skipping a (by, feature) pair already on record so backtrack's removal
// stays a simple attribution filter.
func (s *Solver) recordFeatures(target, by Name, features []string) {
	for _, f := range features {
		already := false
		for _, c := range s.featureCauses[target] {
			if c.by == by && c.feature == f {
				already = true
				break
			}
		}
		if !already {
			s.featureCauses[target] = append(s.featureCauses[target], featureCause{by: by, feature: f})
		}
	}
}

// requestedFeatures returns the deduplicated features requested on name, in
// first-seen order, regardless of which depender requested each.
func (s *Solver) requestedFeatures(name Name) []string {
	seen := make(map[string]bool, len(s.featureCauses[name]))
	var out []string
	for _, c := range s.featureCauses[name] {
		if !seen[c.feature] {
			seen[c.feature] = true
			out = append(out, c.feature)
		}
	}
	return out
}

// removeFeatures discards every feature request attributed to by, across
// every target package, on backtrack.
func (s *Solver) removeFeatures(by Name) {
	for target, causes := range s.featureCauses {
		kept := causes[:0]
		for _, c := range causes {
			if c.by != by {
				kept = append(kept, c)
			}
		}
		s.featureCauses[target] = kept
	}
}

func containsOverride(m Manifest, name Name) bool {
	for _, o := range m.Overrides() {
		if o.ToRef().Name() == name {
			return true
		}
	}
	return false
}

// conflictError renders an UnsatisfiableError (or, for a magic Ref, an
// SdkIncompatibleError) for a just-detected empty intersection.
func (s *Solver) conflictError(dependee Name, culprits []Name) error {
	if ref, ok := s.refs[dependee]; ok && ref.IsMagic() {
		return &SdkIncompatibleError{Pkg: dependee, Reason: fmt.Sprintf("no candidate satisfies every constraint from %v", culprits)}
	}
	recency := make(map[Name]int, len(s.decisions))
	for i, d := range s.decisions {
		recency[d.name] = i
	}
	return buildConflict(s.graph, dependee, recency)
}

// backtrack implements §4.8 step 5: pop decisions until the top decision
// is among the culprits of the most recent conflict, mark that candidate
// failed, and resume. Since the precise culprit set is only available to
// the caller that detected the conflict, backtrack instead pops the single
// most recent manual (non-propagated) decision, which is always a valid,
// if sometimes coarser, choice per the termination argument in §4.8: each
// candidate is ruled out at most once per enclosing decision.
func (s *Solver) backtrack() bool {
	for len(s.decisions) > 0 {
		top := s.decisions[len(s.decisions)-1]
		s.decisions = s.decisions[:len(s.decisions)-1]
		s.store.Remove(top.name)
		s.graph.RemoveFrom(top.name)
		s.removeFeatures(top.name)

		if top.auto || top.name == s.params.RootName {
			// Propagated or the root: nothing to choose differently,
			// keep unwinding.
			delete(s.pending, top.name)
			continue
		}

		if s.failed[top.name] == nil {
			s.failed[top.name] = make(map[string]bool)
		}
		s.failed[top.name][top.id.Version.String()] = true
		s.pending[top.name] = true
		return true
	}
	return false
}
