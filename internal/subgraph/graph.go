// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package subgraph is the C10 agent runtime: directed graphs of
// asynchronous nodes operating on a shared state map, compiled once and
// invoked many times, with checkpointing so a replay resumes from the last
// snapshot instead of the start. The conditional-edge predicate style is
// grounded on the teacher's internal/rules.Store in-memory predicate cache;
// the node/patch-merge vocabulary follows the Step/Observation shape used
// across the retrieval pack's agent graph examples.
package subgraph

import (
	"context"
	"fmt"
)

// State is the shared dictionary a graph invocation threads through every
// node. Keys are well-known per subgraph (documented on each compiled
// graph's entry point) rather than declared as a Go struct, since nodes
// only ever need a handful of keys out of a much larger bag.
type State map[string]any

// Patch is what a Node returns: the subset of State it wants to change.
// nil is a valid Patch meaning "no change."
type Patch map[string]any

// Clone returns a shallow copy of s, used before merging a Patch so
// concurrent branches never observe partially-applied state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge applies p onto s and returns the result; s is not mutated.
func (s State) Merge(p Patch) State {
	out := s.Clone()
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Node is one step of a graph: given the state so far, produce a patch.
type Node func(ctx context.Context, state State) (Patch, error)

// EdgeFunc routes from one node to the next by name. Unconditional edges
// (AddEdge) are stored as an EdgeFunc that always returns the same target.
type EdgeFunc func(state State) string

// edge pairs a source node name with its routing function.
type edge struct {
	from string
	route EdgeFunc
}

// Graph is a builder for a node graph; call Compile to get an invocable
// CompiledGraph.
type Graph struct {
	name  string
	nodes map[string]Node
	edges []edge
	entry string
	end   string
}

// NewGraph starts a graph builder named name (used in checkpoint keys and
// logs).
func NewGraph(name string) *Graph {
	return &Graph{name: name, nodes: make(map[string]Node), end: "__end__"}
}

// End is the sentinel target name that terminates a graph invocation.
const End = "__end__"

// AddNode registers a node under name.
func (g *Graph) AddNode(name string, n Node) *Graph {
	g.nodes[name] = n
	return g
}

// SetEntry marks name as the first node to run.
func (g *Graph) SetEntry(name string) *Graph {
	g.entry = name
	return g
}

// AddEdge adds an unconditional edge from → to.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges = append(g.edges, edge{from: from, route: func(State) string { return to }})
	return g
}

// AddConditionalEdge adds a predicate edge: route is called with the state
// after `from` runs and must return a registered node name or End.
func (g *Graph) AddConditionalEdge(from string, route EdgeFunc) *Graph {
	g.edges = append(g.edges, edge{from: from, route: route})
	return g
}

// Compile validates the graph (entry point set and registered, every edge
// source is a known node) and returns an invocable CompiledGraph. Per spec
// §4.10, graphs are compiled once and invoked many times. Edge targets are
// not checked here; a route to an unregistered node makes Invoke return an
// error when it reaches it.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if g.entry == "" {
		return nil, fmt.Errorf("subgraph %s: no entry point set", g.name)
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("subgraph %s: entry point %q is not a registered node", g.name, g.entry)
	}
	routes := make(map[string][]EdgeFunc, len(g.nodes))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.from]; !ok {
			return nil, fmt.Errorf("subgraph %s: edge from unknown node %q", g.name, e.from)
		}
		routes[e.from] = append(routes[e.from], e.route)
	}
	return &CompiledGraph{name: g.name, nodes: g.nodes, routes: routes, entry: g.entry}, nil
}

// CompiledGraph is an immutable, invocable graph.
type CompiledGraph struct {
	name   string
	nodes  map[string]Node
	routes map[string][]EdgeFunc
	entry  string
}

// Name returns the graph's name, used by the checkpoint store.
func (c *CompiledGraph) Name() string { return c.name }

// Invoke runs the graph to completion starting from initial state, walking
// nodes via their edges until a node has no outgoing edge or a route
// returns End. Invoke keeps no checkpoints itself;
// CheckpointStore.InvokeResumable wraps it for that.
func (c *CompiledGraph) Invoke(ctx context.Context, threadID string, initial State) (State, error) {
	state := initial
	if state == nil {
		state = State{}
	}
	current := c.entry
	step := 0
	for current != End && current != "" {
		node, ok := c.nodes[current]
		if !ok {
			return state, fmt.Errorf("subgraph %s: node %q not found", c.name, current)
		}
		patch, err := node(ctx, state)
		if err != nil {
			return state, fmt.Errorf("subgraph %s: node %q: %w", c.name, current, err)
		}
		state = state.Merge(patch)
		step++

		next := ""
		for _, route := range c.routes[current] {
			if n := route(state); n != "" {
				next = n
				break
			}
		}
		current = next
	}
	return state, nil
}

// StateString is a convenience accessor: returns state[key] as a string,
// or "" if absent or not a string.
func StateString(state State, key string) string {
	v, ok := state[key].(string)
	if !ok {
		return ""
	}
	return v
}

// StateBool mirrors StateString for bools.
func StateBool(state State, key string) bool {
	v, _ := state[key].(bool)
	return v
}

// StateFloat mirrors StateString for float64 (the type JSON unmarshaling
// and Go numeric literals both produce).
func StateFloat(state State, key string) float64 {
	v, _ := state[key].(float64)
	return v
}
