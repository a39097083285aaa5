package ml

import (
	"math/rand"
	"sort"
)

// Node is one entry of a flattened CART tree. Leaves have Feature -1.
// Class indexes Forest.Classes.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Class     int
}

type Tree struct {
	Nodes []Node
}

func (t Tree) predict(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// grower builds a single tree with gini splits on a bag of sample indexes.
type grower struct {
	x        [][]float64
	y        []int
	nClasses int
	mtry     int
	minLeaf  int
	rnd      *rand.Rand
	nodes    []Node
}

func (g *grower) grow(idx []int) int {
	counts := g.count(idx)
	pos := len(g.nodes)
	g.nodes = append(g.nodes, Node{Feature: -1, Class: majority(counts)})

	if isPure(counts) || len(idx) < 2*g.minLeaf {
		return pos
	}
	feature, threshold, ok := g.bestSplit(idx, counts)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}
	l := g.grow(left)
	r := g.grow(right)
	g.nodes[pos].Feature = feature
	g.nodes[pos].Threshold = threshold
	g.nodes[pos].Left = l
	g.nodes[pos].Right = r
	return pos
}

func (g *grower) count(idx []int) []int {
	counts := make([]int, g.nClasses)
	for _, i := range idx {
		counts[g.y[i]]++
	}
	return counts
}

// bestSplit searches mtry randomly chosen features for the threshold with the
// lowest weighted gini impurity. Both sides must hold at least minLeaf samples.
func (g *grower) bestSplit(idx []int, counts []int) (int, float64, bool) {
	n := len(idx)
	p := len(g.x[0])
	features := g.rnd.Perm(p)[:g.mtry]

	best := gini(counts, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, n)
	left := make([]int, g.nClasses)
	right := make([]int, g.nClasses)
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			va, vb := g.x[sorted[a]][f], g.x[sorted[b]][f]
			if va != vb {
				return va < vb
			}
			return sorted[a] < sorted[b]
		})
		for c := range left {
			left[c] = 0
		}
		copy(right, counts)

		for k := 0; k < n-1; k++ {
			c := g.y[sorted[k]]
			left[c]++
			right[c]--

			nl, nr := k+1, n-k-1
			lo, hi := g.x[sorted[k]][f], g.x[sorted[k+1]][f]
			if lo == hi || nl < g.minLeaf || nr < g.minLeaf {
				continue
			}
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if impurity < best-1e-12 {
				best = impurity
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				// adjacent floats: the midpoint rounds up to hi
				if bestThreshold >= hi {
					bestThreshold = lo
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// majority returns the most frequent class index; ties go to the lower index.
func majority(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
