// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

import (
	"fmt"
	"strings"
)

// dependerLabel renders the empty Name (root) as "root", for readability.
func dependerLabel(n Name) string {
	if n == "" {
		return "root"
	}
	return string(n)
}

// buildConflict walks g from a conflicted dependee and produces the
// UnsatisfiableError §4.9 reports: one ConflictStep per depender that
// constrained dependee, newest-decision-first per recency (a rank
// assigned by the solver as it decides, higher meaning more recent).
func buildConflict(g *DerivationGraph, dependee Name, recency map[Name]int) *UnsatisfiableError {
	edges := g.EdgesInto(dependee)
	steps := make([]ConflictStep, len(edges))
	for i, e := range edges {
		steps[i] = ConflictStep{Depender: e.depender, Dependee: e.dependee, Wanted: e.rng.Constraint().String()}
	}

	// Newest-decision-first: sort by the depender's recency rank,
	// descending. Root (rank 0, or absent from the map) sorts last.
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && recency[steps[j-1].Depender] < recency[steps[j].Depender]; j-- {
			steps[j-1], steps[j] = steps[j], steps[j-1]
		}
	}

	return &UnsatisfiableError{Chain: steps}
}

// Report renders err as the human explanation chain described in §4.9:
// "A depends on B ^1.0.0; C depends on B ^2.0.0; no version of B satisfies
// all of them".
func Report(err *UnsatisfiableError) string {
	if len(err.Chain) == 0 {
		return "unsatisfiable constraints"
	}

	var parts []string
	for _, c := range err.Chain {
		parts = append(parts, fmt.Sprintf("%s depends on %s %s", dependerLabel(c.Depender), c.Dependee, c.Wanted))
	}

	dependee := err.Chain[0].Dependee
	return fmt.Sprintf("%s; no version of %s satisfies all of them", strings.Join(parts, "; "), dependee)
}
