// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pub

// derivationEdge records that depender's manifest introduced rng on
// dependee, per §4.7. The solver records edges seeded from the root's own
// dependency list under the root package's name.
type derivationEdge struct {
	depender Name
	dependee Name
	rng      Range
}

// DerivationGraph is the DAG of causes backing conflict explanations and
// backtrack bookkeeping: root -> direct deps -> transitive deps, with each
// edge tagged by the Range it introduced. It does not itself decide
// anything; the solver consults it only to explain a conflict once one has
// already been detected by the ConstraintStore.
type DerivationGraph struct {
	edges []derivationEdge
}

// NewDerivationGraph returns an empty graph.
func NewDerivationGraph() *DerivationGraph {
	return &DerivationGraph{}
}

// Record adds an edge attributing rng on dependee to depender.
func (g *DerivationGraph) Record(depender Name, dependee Name, rng Range) {
	g.edges = append(g.edges, derivationEdge{depender: depender, dependee: dependee, rng: rng})
}

// RemoveFrom discards every edge attributed to depender, on backtrack.
func (g *DerivationGraph) RemoveFrom(depender Name) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.depender != depender {
			kept = append(kept, e)
		}
	}
	g.edges = kept
}

// EdgesInto returns every edge recorded against dependee, in the order
// they were added.
func (g *DerivationGraph) EdgesInto(dependee Name) []derivationEdge {
	var out []derivationEdge
	for _, e := range g.edges {
		if e.dependee == dependee {
			out = append(out, e)
		}
	}
	return out
}
