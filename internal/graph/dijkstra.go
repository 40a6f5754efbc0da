package graph

import "container/heap"

// AllShortestPaths runs Dijkstra from source over nodes not in obstacles
// and returns, for every reachable non-source node, the path from source to
// it. Ties in tentative distance are broken arbitrarily (any shortest path
// is acceptable per spec).
func (g *Graph) AllShortestPaths(source NodeID, obstacles map[NodeID]bool) map[NodeID]Path {
	dist := map[NodeID]float64{source: 0}
	prev := map[NodeID]NodeID{}

	pq := &dijkstraHeap{{node: source, dist: 0}}
	visited := map[NodeID]bool{}

	for pq.Len() > 0 {
		top := heap.Pop(pq).(dijkstraItem)
		if visited[top.node] {
			continue
		}
		visited[top.node] = true

		for _, next := range g.Outgoing(top.node) {
			if next == top.node {
				continue // self-loop: waiting, not a move toward another node
			}
			if obstacles[next] {
				continue
			}
			nd := dist[top.node] + g.Weight(top.node, next)
			if existing, ok := dist[next]; !ok || nd < existing {
				dist[next] = nd
				prev[next] = top.node
				heap.Push(pq, dijkstraItem{node: next, dist: nd})
			}
		}
	}

	result := make(map[NodeID]Path)
	for n := range dist {
		if n == source {
			continue
		}
		result[n] = reconstruct(prev, source, n)
	}
	return result
}

func reconstruct(prev map[NodeID]NodeID, source, target NodeID) Path {
	var path Path
	cur := target
	for {
		path = append(Path{cur}, path...)
		if cur == source {
			break
		}
		p, ok := prev[cur]
		if !ok {
			break
		}
		cur = p
	}
	return path
}

type dijkstraItem struct {
	node NodeID
	dist float64
}

type dijkstraHeap []dijkstraItem

func (h dijkstraHeap) Len() int           { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h dijkstraHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *dijkstraHeap) Push(x any)        { *h = append(*h, x.(dijkstraItem)) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
