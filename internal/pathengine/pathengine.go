// Package pathengine computes the next hop toward a destination from a
// snapshot of the routing table and the LSA database. It is a pure
// function with no back-reference to the components that produced its
// inputs, eliminating any ownership cycle. Grounded on
// original_source/mesh-gateway/src/routing.rs's find_route_from, whose
// BinaryHeap-of-(distance, node_id) Dijkstra is translated here to Go's
// container/heap — the idiomatic Go priority queue, since no third-party
// graph library appears anywhere in the retrieved pack.
package pathengine

import (
	"container/heap"
	"sort"

	"github.com/solitude-labs/meshgatewayd/internal/topology"
)

// Outcome is the closed result of a path computation.
type Outcome int

const (
	// Local means the destination is this node itself.
	Local Outcome = iota
	// NextHopFound means Result.NextHop names the first hop to send to.
	NextHopFound
	// NoRoute means no path to the destination could be found.
	NoRoute
)

// Result is the outcome of Compute.
type Result struct {
	Outcome Outcome
	NextHop string // valid iff Outcome == NextHopFound
}

// Compute returns the next hop from selfID toward destination, given the
// currently Connected peers of selfID and a snapshot of the LSA database.
//
// Edge inclusion follows spec.md §4.4: an edge {u, v} exists if both u and
// v advertise each other as neighbors, or if one side advertises the edge
// and the other has no LSA yet at all. Edges incident to selfID are the
// exception: they always come from connectedPeers, the live Routing Table
// status, never from any LSA (own or otherwise) — this node never treats
// itself as reachable through a peer it does not currently consider
// Connected, even if that peer's LSA (or a stale LSA of its own) claims
// otherwise.
func Compute(selfID, destination string, connectedPeers []string, lsas map[string]topology.LSA) Result {
	if destination == selfID {
		return Result{Outcome: Local}
	}

	connected := make(map[string]struct{}, len(connectedPeers))
	for _, p := range connectedPeers {
		connected[p] = struct{}{}
	}

	// Fast path: a direct Connected peer never needs an LSA from itself.
	if _, ok := connected[destination]; ok {
		return Result{Outcome: NextHopFound, NextHop: destination}
	}

	if len(lsas) == 0 {
		return Result{Outcome: NoRoute}
	}

	graph := buildGraph(selfID, connected, lsas)
	path := shortestPath(selfID, destination, graph)
	if path == nil {
		return Result{Outcome: NoRoute}
	}
	return Result{Outcome: NextHopFound, NextHop: path[0]}
}

func buildGraph(selfID string, connected map[string]struct{}, lsas map[string]topology.LSA) map[string]map[string]struct{} {
	graph := make(map[string]map[string]struct{})
	addEdge := func(a, b string) {
		if graph[a] == nil {
			graph[a] = make(map[string]struct{})
		}
		if graph[b] == nil {
			graph[b] = make(map[string]struct{})
		}
		graph[a][b] = struct{}{}
		graph[b][a] = struct{}{}
	}

	for originator, lsa := range lsas {
		for _, neighbor := range lsa.Neighbors {
			if originator == selfID || neighbor == selfID {
				continue // self's incident edges come only from connected, below
			}
			other, hasOther := lsas[neighbor]
			if hasOther {
				if containsString(other.Neighbors, originator) {
					addEdge(originator, neighbor) // (a) bidirectional confirmation
				}
				continue
			}
			addEdge(originator, neighbor) // (b) other side has no LSA yet
		}
	}

	for peer := range connected {
		addEdge(selfID, peer)
	}

	return graph
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dijkstraItem is one entry in the priority queue: uniform edge weight 1
// makes this equivalent to BFS, but the (distance, nodeID) ordering keeps
// tie-breaking deterministic (lexicographically smallest node id first).
type dijkstraItem struct {
	nodeID   string
	distance int
}

type priorityQueue []dijkstraItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].distance != pq[j].distance {
		return pq[i].distance < pq[j].distance
	}
	return pq[i].nodeID < pq[j].nodeID
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(dijkstraItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestPath returns the path from source to destination excluding the
// source, or nil if destination is unreachable.
func shortestPath(source, destination string, graph map[string]map[string]struct{}) []string {
	distances := map[string]int{source: 0}
	previous := map[string]string{}
	visited := map[string]struct{}{}

	pq := &priorityQueue{{nodeID: source, distance: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(dijkstraItem)
		if _, seen := visited[cur.nodeID]; seen {
			continue
		}
		if cur.nodeID == destination {
			return reconstructPath(source, destination, previous)
		}
		visited[cur.nodeID] = struct{}{}

		neighbors := make([]string, 0, len(graph[cur.nodeID]))
		for n := range graph[cur.nodeID] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)

		for _, neighbor := range neighbors {
			if _, seen := visited[neighbor]; seen {
				continue
			}
			newDistance := cur.distance + 1
			if best, ok := distances[neighbor]; !ok || newDistance < best {
				distances[neighbor] = newDistance
				previous[neighbor] = cur.nodeID
				heap.Push(pq, dijkstraItem{nodeID: neighbor, distance: newDistance})
			}
		}
	}
	return nil
}

func reconstructPath(source, destination string, previous map[string]string) []string {
	path := []string{}
	current := destination
	for current != source {
		path = append(path, current)
		prev, ok := previous[current]
		if !ok {
			return nil
		}
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
