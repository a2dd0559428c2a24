package graph

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
)

// Graph is the sample-similarity graph: nodes are sample indices, edges
// are directed pairs listed in both orientations. Self-loops are never
// present.
type Graph struct {
	N     int
	Edges [][2]int
}

func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Degrees returns the out-degree of every node (equal to in-degree since
// both orientations of every pair are listed).
func (g *Graph) Degrees() []int {
	deg := make([]int, g.N)
	for _, e := range g.Edges {
		deg[e[0]]++
	}
	return deg
}

// Build computes the full pairwise cosine-similarity matrix over the rows
// of X and connects every pair strictly above tau. Similarity is computed
// once per unordered pair and both directions appended together, so the
// edge set is symmetric by construction. O(N^2 D); fine for cohorts in the
// thousands.
func Build(X [][]float64, tau float64) (*Graph, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("graph: empty feature matrix")
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("graph: row %d has %d features, want %d", i, len(row), d)
		}
	}

	norms := make([]float64, n)
	for i := range X {
		norms[i] = math.Sqrt(vek.Dot(X[i], X[i]))
	}

	g := &Graph{N: n}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if norms[i] == 0 || norms[j] == 0 {
				continue
			}
			sim := vek.Dot(X[i], X[j]) / (norms[i] * norms[j])
			if sim > tau {
				g.Edges = append(g.Edges, [2]int{i, j}, [2]int{j, i})
			}
		}
	}
	return g, nil
}
