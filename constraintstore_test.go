// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import "testing"

func TestConstraintStoreIntersects(t *testing.T) {
	s := NewConstraintStore()
	ref := NewRef("foo", "reg", "foo")

	c1, _ := NewSemverConstraint(">=1.0.0")
	ok, _ := s.Add(ref, NewRange(ref, c1), "a", false)
	if !ok {
		t.Fatal("first Add should succeed")
	}

	c2, _ := NewSemverConstraint("<2.0.0")
	ok, _ = s.Add(ref, NewRange(ref, c2), "b", false)
	if !ok {
		t.Fatal("second Add should succeed")
	}

	got := s.ConstraintFor("foo")
	if !got.Allows(NewVersion("1.5.0")) || got.Allows(NewVersion("2.5.0")) {
		t.Fatalf("constraint should narrow to [1.0.0,2.0.0), got %s", got)
	}
}

func TestConstraintStoreConflict(t *testing.T) {
	s := NewConstraintStore()
	ref := NewRef("foo", "reg", "foo")

	c1, _ := NewSemverConstraint("^1.0.0")
	s.Add(ref, NewRange(ref, c1), "a", false)

	c2, _ := NewSemverConstraint("^2.0.0")
	ok, culprits := s.Add(ref, NewRange(ref, c2), "b", false)
	if ok {
		t.Fatal("conflicting Add should fail")
	}
	want := map[Name]bool{"a": true, "b": true}
	if len(culprits) != len(want) {
		t.Fatalf("culprits = %v, want %v", culprits, want)
	}
	for _, c := range culprits {
		if !want[c] {
			t.Errorf("unexpected culprit %s", c)
		}
	}
}

func TestConstraintStoreOverrideSupersedes(t *testing.T) {
	s := NewConstraintStore()
	ref := NewRef("foo", "reg", "foo")

	c1, _ := NewSemverConstraint("^1.0.0")
	s.Add(ref, NewRange(ref, c1), "a", false)

	c2, _ := NewSemverConstraint("^3.0.0")
	ok, _ := s.Add(ref, NewRange(ref, c2), "root", true)
	if !ok {
		t.Fatal("an override should supersede rather than intersect")
	}
	got := s.ConstraintFor("foo")
	if !got.Allows(NewVersion("3.1.0")) || got.Allows(NewVersion("1.1.0")) {
		t.Fatalf("override should have replaced the prior constraint entirely, got %s", got)
	}
}

func TestConstraintStoreRemove(t *testing.T) {
	s := NewConstraintStore()
	ref := NewRef("foo", "reg", "foo")

	c1, _ := NewSemverConstraint("^1.0.0")
	s.Add(ref, NewRange(ref, c1), "a", false)
	c2, _ := NewSemverConstraint(">=1.5.0")
	s.Add(ref, NewRange(ref, c2), "b", false)

	s.Remove("b")
	got := s.ConstraintFor("foo")
	if !got.Allows(NewVersion("1.2.0")) {
		t.Fatalf("removing b's cause should restore a's unintersected constraint, got %s", got)
	}
}
