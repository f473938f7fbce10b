// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Manifest exposes a package's declared dependency metadata, per §4.3. The
// solver asks for it once per decided Id (via Source.DescribeDependencies)
// and, once at the start of a resolution, for the root project.
type Manifest interface {
	// Dependencies are always considered, regardless of which package
	// owns the manifest.
	Dependencies() []Range

	// DevDependencies are considered only when the owning Id is the
	// root package; the solver must never expand these for a
	// transitive dependency's manifest.
	DevDependencies() []Range

	// Overrides returns root-only constraints that supersede, rather
	// than intersect with, whatever a transitive dependency would
	// otherwise impose on the same Ref.
	Overrides() []Range

	// EnvironmentConstraints returns Ranges over magic packages (e.g.
	// an SDK version), gating solvability on the resolving environment
	// rather than on another package.
	EnvironmentConstraints() []Range

	// IgnoredPackages names packages excluded from solving entirely,
	// regardless of what depends on them.
	IgnoredPackages() map[Name]bool

	// FeatureDependencies returns the conditional dependencies gated by
	// a named feature, over and above Dependencies.
	FeatureDependencies(feature string) []Range
}

// jsonManifest is the concrete Manifest backing a project's manifest file,
// grounded on the teacher's rawManifest/possibleProps JSON shape, extended
// with an explicit source+features per dependency entry and an overrides
// section (SUPPLEMENTAL FEATURES #1, #2).
type jsonManifest struct {
	deps     []Range
	devDeps  []Range
	overrides []Range
	env      []Range
	ignores  map[Name]bool
	features map[string][]Range
}

func (m *jsonManifest) Dependencies() []Range              { return m.deps }
func (m *jsonManifest) DevDependencies() []Range           { return m.devDeps }
func (m *jsonManifest) Overrides() []Range                 { return m.overrides }
func (m *jsonManifest) EnvironmentConstraints() []Range    { return m.env }
func (m *jsonManifest) IgnoredPackages() map[Name]bool     { return m.ignores }
func (m *jsonManifest) FeatureDependencies(f string) []Range { return m.features[f] }

// rawManifest is the on-disk JSON shape of a manifest file.
type rawManifest struct {
	Dependencies map[string]rawDependency            `json:"dependencies"`
	DevDependencies map[string]rawDependency         `json:"dev_dependencies"`
	Overrides    map[string]rawDependency            `json:"overrides"`
	Environment  map[string]rawDependency            `json:"environment"`
	Ignores      []string                            `json:"ignores"`
	Features     map[string]map[string]rawDependency `json:"features"`
}

type rawDependency struct {
	Source      string          `json:"source"`
	Description json.RawMessage `json:"description"`
	Branch      string          `json:"branch"`
	Revision    string          `json:"revision"`
	Version     string          `json:"version"`
	Features    []string        `json:"features"`
}

// ParseManifest decodes raw manifest JSON into a Manifest, resolving each
// dependency's source through reg so its description can be parsed by the
// owning Source (per §4.2, only a Source understands its own descriptions).
func ParseManifest(data []byte, reg *SourceRegistry) (Manifest, error) {
	var rm rawManifest
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, &ParseError{File: "manifest", Err: err}
	}

	m := &jsonManifest{
		ignores:  make(map[Name]bool, len(rm.Ignores)),
		features: make(map[string][]Range, len(rm.Features)),
	}
	for _, n := range rm.Ignores {
		m.ignores[Name(n)] = true
	}

	var err error
	if m.deps, err = toRanges(rm.Dependencies, reg); err != nil {
		return nil, err
	}
	if m.devDeps, err = toRanges(rm.DevDependencies, reg); err != nil {
		return nil, err
	}
	if m.overrides, err = toRanges(rm.Overrides, reg); err != nil {
		return nil, err
	}
	if m.env, err = toMagicRanges(rm.Environment); err != nil {
		return nil, err
	}
	for feature, deps := range rm.Features {
		ranges, err := toRanges(deps, reg)
		if err != nil {
			return nil, err
		}
		m.features[feature] = ranges
	}

	return m, nil
}

func toRanges(raw map[string]rawDependency, reg *SourceRegistry) ([]Range, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Range, 0, len(raw))
	for name, rd := range raw {
		c, err := constraintFor(name, rd)
		if err != nil {
			return nil, err
		}
		src, err := reg.Resolve(rd.Source)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency %s", name)
		}
		desc, err := src.ParseDescription(rd.Description)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency %s: parsing description", name)
		}
		ref := NewRef(Name(name), rd.Source, desc)
		rng := NewRange(ref, c)
		if len(rd.Features) > 0 {
			rng = rng.WithFeatures(rd.Features...)
		}
		out = append(out, rng)
	}
	return out, nil
}

// toMagicRanges builds Ranges over synthesized magic Refs for environment
// constraints (e.g. "sdk": {"version": "^2.0.0"}); magic packages carry no
// source, so there is no description to parse.
func toMagicRanges(raw map[string]rawDependency) ([]Range, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Range, 0, len(raw))
	for name, rd := range raw {
		c, err := constraintFor(name, rd)
		if err != nil {
			return nil, err
		}
		out = append(out, NewRange(NewMagicRef(Name(name)), c))
	}
	return out, nil
}

func constraintFor(name string, rd rawDependency) (VersionConstraint, error) {
	set := 0
	for _, s := range []string{rd.Branch, rd.Version, rd.Revision} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return nil, &ParseError{File: "manifest", Location: name, Err: fmt.Errorf("multiple constraints specified, can only specify one")}
	}

	switch {
	case rd.Branch != "":
		return NewExactConstraint(NewVersion(rd.Branch)), nil
	case rd.Revision != "":
		return NewExactConstraint(NewVersion(rd.Revision)), nil
	case rd.Version != "":
		c, err := NewSemverConstraint(rd.Version)
		if err != nil {
			// Not every ecosystem's version strings are semver; fall
			// back to an exact pin on the literal string, matching the
			// teacher's "always semver if we can" fallback.
			return NewExactConstraint(NewVersion(rd.Version)), nil
		}
		return c, nil
	default:
		return Any(), nil
	}
}
