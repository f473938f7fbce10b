// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import "context"

// fakeManifest is a directly-constructed Manifest, bypassing ParseManifest's
// JSON codec so solver tests can build little dependency universes inline,
// in the spirit of the teacher's depspec fixture DSL without reimplementing
// its string-parsing machinery.
type fakeManifest struct {
	deps     []Range
	devDeps  []Range
	env      []Range
	features map[string][]Range
}

func (m *fakeManifest) Dependencies() []Range           { return m.deps }
func (m *fakeManifest) DevDependencies() []Range        { return m.devDeps }
func (m *fakeManifest) Overrides() []Range              { return nil }
func (m *fakeManifest) EnvironmentConstraints() []Range { return m.env }
func (m *fakeManifest) IgnoredPackages() map[Name]bool  { return nil }
func (m *fakeManifest) FeatureDependencies(f string) []Range {
	return m.features[f]
}

// fakeVersion is one published version of a fakeSource package.
type fakeVersion struct {
	deps     []Range
	devDeps  []Range
	features map[string][]Range
}

// fakeSource is an in-memory Source double: every version and its
// dependencies are registered explicitly by the test, so ListVersions and
// DescribeDependencies never touch the network or disk. Descriptions are
// just the package name as a string, compared and hashed structurally,
// which is fine for a source whose Refs never alias under different
// spellings (the scenario real sources like "hosted" guard against).
type fakeSource struct {
	name string
	pkgs map[Name]map[string]fakeVersion
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, pkgs: make(map[Name]map[string]fakeVersion)}
}

// add registers one version of name with the given dependency Ranges.
func (s *fakeSource) add(name Name, version string, deps ...Range) *fakeSource {
	if s.pkgs[name] == nil {
		s.pkgs[name] = make(map[string]fakeVersion)
	}
	s.pkgs[name][version] = fakeVersion{deps: deps}
	return s
}

// addDev is like add but also attaches dev-dependencies, exercised only
// when the owning Id is the root (§4.3).
func (s *fakeSource) addDev(name Name, version string, deps []Range, devDeps []Range) *fakeSource {
	if s.pkgs[name] == nil {
		s.pkgs[name] = make(map[string]fakeVersion)
	}
	s.pkgs[name][version] = fakeVersion{deps: deps, devDeps: devDeps}
	return s
}

// addFeature registers one of name's feature-gated dependency groups
// (§4.3), pulled in only when a depender requests the named feature via
// Range.WithFeatures.
func (s *fakeSource) addFeature(name Name, version string, feature string, deps ...Range) *fakeSource {
	if s.pkgs[name] == nil {
		s.pkgs[name] = make(map[string]fakeVersion)
	}
	fv := s.pkgs[name][version]
	if fv.features == nil {
		fv.features = make(map[string][]Range)
	}
	fv.features[feature] = deps
	s.pkgs[name][version] = fv
	return s
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) ParseDescription(raw interface{}) (interface{}, error) {
	return raw, nil
}

func (s *fakeSource) DescriptionsEqual(a, b interface{}) bool { return a == b }

func (s *fakeSource) HashDescription(desc interface{}) uint64 {
	str, _ := desc.(string)
	return fnv64(str)
}

func (s *fakeSource) ListVersions(ctx context.Context, ref Ref) ([]Id, error) {
	versions, ok := s.pkgs[ref.Name()]
	if !ok {
		return nil, &NoVersionsError{Pkg: ref.Name()}
	}
	ids := make([]Id, 0, len(versions))
	for v := range versions {
		ids = append(ids, NewId(ref, NewVersion(v)))
	}
	return ids, nil
}

func (s *fakeSource) DescribeDependencies(ctx context.Context, id Id) (Manifest, error) {
	fv := s.pkgs[id.Name()][id.Version.String()]
	return &fakeManifest{deps: fv.deps, devDeps: fv.devDeps, features: fv.features}, nil
}

func (s *fakeSource) Materialize(ctx context.Context, id Id, dir string) error { return nil }

// dep builds a Range naming a package on src with a semver constraint body
// ("^1.0.0", "*", ...), the shorthand solver tests compose fixtures from.
func dep(name Name, src string, constraint string) Range {
	c, err := NewSemverConstraint(constraint)
	if err != nil {
		panic(err)
	}
	return NewRange(NewRef(name, src, string(name)), c)
}

// depF is like dep but also requests the given features on name (§4.3),
// gating in whichever of name's FeatureDependencies groups match.
func depF(name Name, src string, constraint string, features ...string) Range {
	return dep(name, src, constraint).WithFeatures(features...)
}
