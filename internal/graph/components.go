package graph

import "slices"

// Components finds the connected components of g via BFS. Every target
// belongs to exactly one component; isolated targets form singletons.
// Members are sorted ascending and components are ordered by anchor (their
// lowest member).
func (g *Graph) Components() [][]int {
	visited := make([]bool, len(g.Nodes))
	var comps [][]int
	for t := range g.Nodes {
		if visited[t] {
			continue
		}
		comp := g.bfsComponent(t, visited)
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	return comps
}

// bfsComponent performs BFS from start and returns all reachable targets.
// It marks visited targets as it goes.
func (g *Graph) bfsComponent(start int, visited []bool) []int {
	var comp []int
	queue := []int{start}
	visited[start] = true

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		comp = append(comp, t)
		for _, ei := range g.incident[t] {
			e := g.Edges[ei]
			nb := e.Source
			if nb == t {
				nb = e.Target
			}
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return comp
}

// ComponentEdges returns the indices of the edges inside comp, in edge
// order.
func (g *Graph) ComponentEdges(comp []int) []int {
	var out []int
	for _, t := range comp {
		for _, ei := range g.incident[t] {
			if g.Edges[ei].Source == t {
				out = append(out, ei)
			}
		}
	}
	slices.Sort(out)
	return out
}
