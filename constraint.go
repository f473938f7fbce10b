// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

// Version identifies one specific, orderable point a package can be
// resolved to: a semver release, a floating branch, or a bare revision.
// Values are immutable once constructed.
type Version struct {
	semver *semver.Version
	raw    string
}

// NewSemverVersion parses body as semver. It returns an error on malformed
// input instead of falling back to a plain string; callers that need the
// fallback should use NewVersion.
func NewSemverVersion(body string) (Version, error) {
	sv, err := semver.NewVersion(body)
	if err != nil {
		return Version{}, err
	}
	return Version{semver: sv, raw: body}, nil
}

// NewVersion constructs a Version from body, preferring a semver
// interpretation and falling back to an opaque string (used for branch
// names and revisions) when body doesn't parse as semver.
func NewVersion(body string) Version {
	sv, err := semver.NewVersion(body)
	if err != nil {
		return Version{raw: body}
	}
	return Version{semver: sv, raw: body}
}

// String renders the version as originally specified.
func (v Version) String() string { return v.raw }

// IsSemver reports whether v carries parsed semver metadata.
func (v Version) IsSemver() bool { return v.semver != nil }

// Equal reports whether two versions denote the same point. Semver
// versions compare numerically; everything else compares by raw string,
// matching the teacher's plainVersion/immutableVersion/branchVersion
// Admits methods.
func (v Version) Equal(other Version) bool {
	if v.semver != nil && other.semver != nil {
		return v.semver.Equal(other.semver)
	}
	return v.raw == other.raw
}

// Less orders v before other for sort-for-upgrade/downgrade purposes.
// Semver versions are ordered numerically; a semver version is always
// considered "newer" (greater) than a non-semver one, so that floating
// branches and bare revisions sort to the tail of a preference list
// instead of interleaving unpredictably with tagged releases.
func (v Version) Less(other Version) bool {
	switch {
	case v.semver != nil && other.semver != nil:
		return v.semver.LessThan(other.semver)
	case v.semver != nil:
		return false
	case other.semver != nil:
		return true
	default:
		return v.raw < other.raw
	}
}

// VersionConstraint expresses which Versions of a package are acceptable.
type VersionConstraint interface {
	fmt.Stringer
	// Allows indicates whether v satisfies the constraint.
	Allows(v Version) bool
	// AllowsAny indicates whether intersecting with other could ever admit
	// some version.
	AllowsAny(other VersionConstraint) bool
	// Intersect computes the constraint admitting exactly the versions
	// both constraints admit.
	Intersect(other VersionConstraint) VersionConstraint
}

// Any returns the constraint that admits every version.
func Any() VersionConstraint { return anyConstraint{} }

// None returns the constraint that admits no version.
func None() VersionConstraint { return noneConstraint{} }

// IsAny reports whether c is the wildcard constraint.
func IsAny(c VersionConstraint) bool {
	_, ok := c.(anyConstraint)
	return ok
}

// IsNone reports whether c is the empty-set constraint.
func IsNone(c VersionConstraint) bool {
	_, ok := c.(noneConstraint)
	return ok
}

type anyConstraint struct{}

func (anyConstraint) String() string                                 { return "*" }
func (anyConstraint) Allows(Version) bool                            { return true }
func (anyConstraint) AllowsAny(VersionConstraint) bool                { return true }
func (anyConstraint) Intersect(c VersionConstraint) VersionConstraint { return c }

type noneConstraint struct{}

func (noneConstraint) String() string                                 { return "<none>" }
func (noneConstraint) Allows(Version) bool                            { return false }
func (noneConstraint) AllowsAny(VersionConstraint) bool                { return false }
func (noneConstraint) Intersect(VersionConstraint) VersionConstraint { return None() }

// exactConstraint pins to a single, specific Version: used for branches,
// bare revisions, and explicit pins from a lockfile or an override.
type exactConstraint struct {
	v Version
}

// NewExactConstraint returns a constraint admitting only v.
func NewExactConstraint(v Version) VersionConstraint { return exactConstraint{v: v} }

func (c exactConstraint) String() string { return c.v.String() }

func (c exactConstraint) Allows(v Version) bool { return c.v.Equal(v) }

func (c exactConstraint) AllowsAny(other VersionConstraint) bool {
	return other.Allows(c.v)
}

func (c exactConstraint) Intersect(other VersionConstraint) VersionConstraint {
	if other.Allows(c.v) {
		return c
	}
	return None()
}

// semverRange is a single closed/open interval of semver versions, the
// AND-group a comma-separated clause of a constraint expression reduces to.
// A nil bound is unbounded on that side.
type semverRange struct {
	min, max         *semver.Version
	minIncl, maxIncl bool
}

func (r semverRange) admits(v *semver.Version) bool {
	if r.min != nil {
		if r.minIncl {
			if v.LessThan(r.min) {
				return false
			}
		} else if !v.GreaterThan(r.min) {
			return false
		}
	}
	if r.max != nil {
		if r.maxIncl {
			if v.GreaterThan(r.max) {
				return false
			}
		} else if !v.LessThan(r.max) {
			return false
		}
	}
	return true
}

// intersect narrows r to the overlap with other, reporting ok=false when
// the two ranges admit no version in common.
func (r semverRange) intersect(other semverRange) (semverRange, bool) {
	out := r
	if other.min != nil && (out.min == nil || other.min.GreaterThan(out.min) || (other.min.Equal(out.min) && !other.minIncl)) {
		out.min, out.minIncl = other.min, other.minIncl
	} else if other.min != nil && other.min.Equal(out.min) {
		out.minIncl = out.minIncl && other.minIncl
	}
	if other.max != nil && (out.max == nil || other.max.LessThan(out.max) || (other.max.Equal(out.max) && !other.maxIncl)) {
		out.max, out.maxIncl = other.max, other.maxIncl
	} else if other.max != nil && out.max != nil && other.max.Equal(out.max) {
		out.maxIncl = out.maxIncl && other.maxIncl
	}
	if out.min != nil && out.max != nil {
		if out.min.GreaterThan(out.max) {
			return semverRange{}, false
		}
		if out.min.Equal(out.max) && !(out.minIncl && out.maxIncl) {
			return semverRange{}, false
		}
	}
	return out, true
}

func (r semverRange) String() string {
	switch {
	case r.min == nil && r.max == nil:
		return "*"
	case r.min != nil && r.max != nil && r.min.Equal(r.max) && r.minIncl && r.maxIncl:
		return r.min.Original()
	}
	var parts []string
	if r.min != nil {
		op := ">"
		if r.minIncl {
			op = ">="
		}
		parts = append(parts, op+r.min.Original())
	}
	if r.max != nil {
		op := "<"
		if r.maxIncl {
			op = "<="
		}
		parts = append(parts, op+r.max.Original())
	}
	return strings.Join(parts, ", ")
}

// semverConstraint is a union of semverRanges: a hand-rolled range algebra
// over github.com/Masterminds/semver's real v1.x surface (NewVersion plus
// Compare/LessThan/GreaterThan/Equal), since that module's published API
// has no Constraint/Intersect/IsNone of its own to build on — unlike the
// Admits-based fork the teacher's own vendor snapshot happens to carry.
type semverConstraint struct {
	ranges []semverRange
	body   string
}

// NewSemverConstraint parses body as a semver constraint expression: a
// "||"-separated union of comma-separated AND-groups, each clause being an
// operator (=, !=, >, <, >=, <=, ~, ^) plus a version, or a bare version
// (equivalent to =). "*" (or an empty string) admits everything.
func NewSemverConstraint(body string) (VersionConstraint, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || trimmed == "*" {
		return Any(), nil
	}

	var ranges []semverRange
	for _, group := range strings.Split(trimmed, "||") {
		clauses := strings.FieldsFunc(group, func(r rune) bool { return r == ',' })
		var cur semverRange
		empty := false
		for i, clause := range clauses {
			clause = strings.TrimSpace(clause)
			if clause == "" {
				continue
			}
			r, err := parseSemverClause(clause)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				cur = r
				continue
			}
			merged, ok := cur.intersect(r)
			if !ok {
				empty = true
				break
			}
			cur = merged
		}
		if !empty {
			ranges = append(ranges, cur)
		}
	}
	if len(ranges) == 0 {
		return None(), nil
	}
	return semverConstraint{ranges: ranges, body: body}, nil
}

var constraintOps = []string{">=", "<=", "=>", "=<", "~>", "!=", ">", "<", "=", "~", "^"}

// parseSemverClause parses one "op version" clause into the range it
// denotes.
func parseSemverClause(clause string) (semverRange, error) {
	op := ""
	rest := clause
	for _, candidate := range constraintOps {
		if strings.HasPrefix(clause, candidate) {
			op = candidate
			rest = strings.TrimSpace(clause[len(candidate):])
			break
		}
	}

	v, err := semver.NewVersion(rest)
	if err != nil {
		return semverRange{}, fmt.Errorf("parsing constraint clause %q: %w", clause, err)
	}

	switch op {
	case "", "=":
		return semverRange{min: v, minIncl: true, max: v, maxIncl: true}, nil
	case ">":
		return semverRange{min: v, minIncl: false}, nil
	case ">=", "=>":
		return semverRange{min: v, minIncl: true}, nil
	case "<":
		return semverRange{max: v, maxIncl: false}, nil
	case "<=", "=<":
		return semverRange{max: v, maxIncl: true}, nil
	case "^":
		return semverRange{min: v, minIncl: true, max: caretCeiling(v), maxIncl: false}, nil
	case "~", "~>":
		return semverRange{min: v, minIncl: true, max: tildeCeiling(v), maxIncl: false}, nil
	case "!=":
		// A bare inequality has no single-interval representation; treat
		// it as unconstrained rather than approximate it incorrectly, the
		// same "fall through to *" the teacher applies to operators its
		// own parser doesn't specially handle.
		return semverRange{}, nil
	default:
		return semverRange{}, fmt.Errorf("unsupported constraint operator %q", op)
	}
}

// caretCeiling computes the exclusive upper bound of "^v": the next
// version that would break compatibility, per the usual caret semantics
// (bump the first nonzero component from the left).
func caretCeiling(v *semver.Version) *semver.Version {
	switch {
	case v.Major() > 0:
		return mustVersion(v.Major()+1, 0, 0)
	case v.Minor() > 0:
		return mustVersion(0, v.Minor()+1, 0)
	default:
		return mustVersion(0, 0, v.Patch()+1)
	}
}

// tildeCeiling computes the exclusive upper bound of "~v": patch-level
// changes are allowed within the given minor version.
func tildeCeiling(v *semver.Version) *semver.Version {
	return mustVersion(v.Major(), v.Minor()+1, 0)
}

func mustVersion(major, minor, patch int64) *semver.Version {
	v, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", major, minor, patch))
	if err != nil {
		panic(err)
	}
	return v
}

func (c semverConstraint) String() string {
	if c.body != "" {
		return c.body
	}
	parts := make([]string, len(c.ranges))
	for i, r := range c.ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, " || ")
}

func (c semverConstraint) Allows(v Version) bool {
	if v.semver == nil {
		return false
	}
	for _, r := range c.ranges {
		if r.admits(v.semver) {
			return true
		}
	}
	return false
}

func (c semverConstraint) AllowsAny(other VersionConstraint) bool {
	return !IsNone(c.Intersect(other))
}

func (c semverConstraint) Intersect(other VersionConstraint) VersionConstraint {
	switch t := other.(type) {
	case anyConstraint:
		return c
	case semverConstraint:
		var out []semverRange
		for _, a := range c.ranges {
			for _, b := range t.ranges {
				if merged, ok := a.intersect(b); ok {
					out = append(out, merged)
				}
			}
		}
		if len(out) == 0 {
			return None()
		}
		return semverConstraint{ranges: out}
	case exactConstraint:
		if c.Allows(t.v) {
			return t
		}
		return None()
	default:
		return None()
	}
}
