// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import "testing"

// TestRefHashConsistency exercises invariant 1 (§8): for all Refs a, b,
// a == b (per SamePackage) iff hash(a) == hash(b).
func TestRefHashConsistency(t *testing.T) {
	src := newFakeSource("reg")
	reg := newTestRegistry(src)

	a1 := NewRef("foo", "reg", "foo")
	a2 := NewRef("foo", "reg", "foo")
	b := NewRef("bar", "reg", "bar")

	if !a1.SamePackage(reg, a2) {
		t.Fatal("a1 should equal a2")
	}
	if a1.Hash(reg) != a2.Hash(reg) {
		t.Fatalf("equal Refs hashed differently: %d vs %d", a1.Hash(reg), a2.Hash(reg))
	}
	if a1.SamePackage(reg, b) {
		t.Fatal("a1 should not equal b")
	}
}

func TestRefHashRootAndMagic(t *testing.T) {
	reg := NewSourceRegistry()
	r1, r2 := NewRootRef("x"), NewRootRef("x")
	if !r1.SamePackage(reg, r2) || r1.Hash(reg) != r2.Hash(reg) {
		t.Fatal("two root refs for the same name should be the same package")
	}

	m1, m2 := NewMagicRef("sdk"), NewMagicRef("sdk")
	if !m1.SamePackage(reg, m2) || m1.Hash(reg) != m2.Hash(reg) {
		t.Fatal("two magic refs for the same name should be the same package")
	}

	if r1.SamePackage(reg, m1) {
		t.Fatal("a root ref and a magic ref sharing a name are not the same package")
	}
}

func TestNewRefPanicsWithoutSource(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewRef with an empty source name should panic")
		}
	}()
	NewRef("foo", "", nil)
}

// TestRangeAllowsImpliesSamePackage exercises invariant 2 (§8): for all Ids
// i and Ranges r, r.Allows(i) implies r.ToRef().SamePackage(i).
func TestRangeAllowsImpliesSamePackage(t *testing.T) {
	reg := newTestRegistry(newFakeSource("reg"))
	ref := NewRef("foo", "reg", "foo")
	c, err := NewSemverConstraint("^1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	rng := NewRange(ref, c)

	id := NewId(ref, NewVersion("1.2.0"))
	if !rng.Allows(reg, id) {
		t.Fatal("expected range to allow 1.2.0")
	}
	if !rng.ToRef().SamePackage(reg, id.Ref) {
		t.Fatal("Allows implied SamePackage should hold")
	}

	other := NewId(NewRef("bar", "reg", "bar"), NewVersion("1.2.0"))
	if rng.Allows(reg, other) {
		t.Fatal("range over foo should never allow a differently-named package")
	}
}

// TestWithFeaturesEmptyIsIdentity exercises invariant 7 (§8).
func TestWithFeaturesEmptyIsIdentity(t *testing.T) {
	ref := NewRef("foo", "reg", "foo")
	rng := NewRange(ref, Any()).WithFeatures("a", "b")
	same := rng.WithFeatures()
	if len(same.Features()) != len(rng.Features()) {
		t.Fatalf("WithFeatures() with no arguments changed the feature set: %v -> %v", rng.Features(), same.Features())
	}
}

func TestFeatureSetOrderIndependence(t *testing.T) {
	ref := NewRef("foo", "reg", "foo")
	a := NewRange(ref, Any()).WithFeatures("x", "y")
	b := NewRange(ref, Any()).WithFeatures("y", "x")
	af, bf := a.Features(), b.Features()
	if len(af) != len(bf) {
		t.Fatalf("feature slices differ in length: %v vs %v", af, bf)
	}
	for i := range af {
		if af[i] != bf[i] {
			t.Fatalf("feature sets built in different orders should compare equal once sorted: %v vs %v", af, bf)
		}
	}
}
