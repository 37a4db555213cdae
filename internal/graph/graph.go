// Package graph builds the component dependency DAG a manifest describes:
// an arena of indexed Nodes plus a name-to-index map, so every component
// is one node no matter how many paths reach it. Requires entries that
// name another component become edges; anything else is a source input
// path. Cycles among the edges are rejected.
package graph

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
)

var log = logger.Logger()

// NodeID indexes into Graph.Nodes. Build assigns IDs in manifest component
// order starting at 0, so NodeID 0 is the first declared component.
type NodeID int

// Node is one component and its resolved edges. A Requires entry that
// names another component becomes a Dependencies edge; one that doesn't is
// a source input, kept verbatim as a path for the component's build mode to
// consume.
type Node struct {
	ID           NodeID
	Component    manifest.Component
	Dependencies []NodeID // components this node's Requires resolved to
	Dependents   []NodeID // components whose Requires resolved to this node
	Sources      []string // Requires entries that are source paths, not components
}

// Graph is the full resolved dependency DAG for one manifest.
type Graph struct {
	Nodes      []*Node
	byName     map[string]NodeID
}

// ByName returns the node for a component name, or (nil, false).
func (g *Graph) ByName(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.Nodes[id], true
}

// Build resolves every component's Requires list: entries naming another
// component become graph edges, everything else is recorded as a source
// input path. The result is rejected only if the edges form a cycle
// (LoopError).
func Build(m *manifest.Manifest) (*Graph, error) {
	g := &Graph{byName: make(map[string]NodeID, len(m.Components))}

	for i, c := range m.Components {
		id := NodeID(i)
		g.Nodes = append(g.Nodes, &Node{ID: id, Component: c})
		g.byName[c.Name] = id
	}

	for _, n := range g.Nodes {
		for _, reqName := range n.Component.Requires {
			depID, ok := g.byName[reqName]
			if !ok {
				n.Sources = append(n.Sources, reqName)
				continue
			}
			n.Dependencies = append(n.Dependencies, depID)
			g.Nodes[depID].Dependents = append(g.Nodes[depID].Dependents, n.ID)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = g.Nodes[id].Component.Name
		}
		return nil, imgerr.New(imgerr.KindLoopError, "dependency cycle: %s", strings.Join(names, " -> "))
	}

	log.Debugf("built dependency graph: %d components", len(g.Nodes))
	return g, nil
}

// color marks a node's state during cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// findCycle runs iterative-by-recursion DFS colored search and returns the
// cycle as a NodeID path (dependent-first) if one exists, else nil.
func (g *Graph) findCycle() []NodeID {
	colors := make([]color, len(g.Nodes))
	var path []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		colors[id] = gray
		path = append(path, id)
		for _, dep := range g.Nodes[id].Dependencies {
			switch colors[dep] {
			case gray:
				// Found the back-edge; trim path to start at dep.
				for i, p := range path {
					if p == dep {
						cycle := append([]NodeID{}, path[i:]...)
						return append(cycle, dep)
					}
				}
				return []NodeID{id, dep}
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		colors[id] = black
		return nil
	}

	for _, n := range g.Nodes {
		if colors[n.ID] == white {
			if cyc := visit(n.ID); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// ValidatePartitionRequires logs a warning (not a fatal error) for every
// partition whose Requires names a component absent from the graph. Per the
// design decision recorded in DESIGN.md, a dangling partition requirement is
// treated as "this partition has no build-time dependency" rather than a
// hard failure, since a partition may legitimately require nothing more than
// its own Setup/Files.
func (g *Graph) ValidatePartitionRequires(m *manifest.Manifest) {
	for _, p := range m.Image.Partitions {
		for _, req := range p.Requires {
			if _, ok := g.byName[req]; !ok {
				log.Warnf("partition %q requires %q, which is not a declared component", p.Label, req)
			}
		}
	}
}

// TopoOrder returns the graph's nodes in a valid build order (dependencies
// before dependents). Build must have already rejected cycles.
func (g *Graph) TopoOrder() []NodeID {
	visited := make([]bool, len(g.Nodes))
	order := make([]NodeID, 0, len(g.Nodes))

	var visit func(id NodeID)
	visit = func(id NodeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.Nodes[id].Dependencies {
			visit(dep)
		}
		order = append(order, id)
	}
	for _, n := range g.Nodes {
		visit(n.ID)
	}
	return order
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{%s}", n.Component.Name)
}
