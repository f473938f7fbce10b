// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"strings"
	"testing"
)

func TestBuildConflictNewestDecisionFirst(t *testing.T) {
	g := NewDerivationGraph()

	c1, _ := NewSemverConstraint("^1.0.0")
	c2, _ := NewSemverConstraint("^2.0.0")
	g.Record("a", "c", NewRange(NewRef("c", "reg", "c"), c1))
	g.Record("b", "c", NewRange(NewRef("c", "reg", "c"), c2))

	// b was decided more recently than a.
	recency := map[Name]int{"a": 1, "b": 2}
	err := buildConflict(g, "c", recency)

	if len(err.Chain) != 2 {
		t.Fatalf("Chain = %+v, want 2 steps", err.Chain)
	}
	if err.Chain[0].Depender != "b" || err.Chain[1].Depender != "a" {
		t.Fatalf("Chain not ordered newest-decision-first: %+v", err.Chain)
	}
}

func TestBuildConflictRootSortsLast(t *testing.T) {
	g := NewDerivationGraph()
	c1, _ := NewSemverConstraint("^1.0.0")
	c2, _ := NewSemverConstraint("^2.0.0")
	g.Record("", "c", NewRange(NewRef("c", "reg", "c"), c1))
	g.Record("a", "c", NewRange(NewRef("c", "reg", "c"), c2))

	recency := map[Name]int{"a": 1}
	err := buildConflict(g, "c", recency)
	if err.Chain[len(err.Chain)-1].Depender != "" {
		t.Fatalf("root (absent from recency) should sort last: %+v", err.Chain)
	}
}

func TestReportRendersHumanExplanation(t *testing.T) {
	g := NewDerivationGraph()
	c1, _ := NewSemverConstraint("^1.0.0")
	c2, _ := NewSemverConstraint("^2.0.0")
	g.Record("a", "c", NewRange(NewRef("c", "reg", "c"), c1))
	g.Record("b", "c", NewRange(NewRef("c", "reg", "c"), c2))

	err := buildConflict(g, "c", map[Name]int{"a": 1, "b": 2})
	msg := Report(err)

	for _, want := range []string{"a depends on c", "b depends on c", "no version of c satisfies all of them"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Report() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestReportEmptyChain(t *testing.T) {
	err := &UnsatisfiableError{}
	if Report(err) != "unsatisfiable constraints" {
		t.Fatalf("Report(empty) = %q", Report(err))
	}
}
