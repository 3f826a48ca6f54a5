// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_InvokeLinear(t *testing.T) {
	g := NewGraph("linear")
	g.AddNode("a", func(ctx context.Context, s State) (Patch, error) {
		return Patch{"a_ran": true}, nil
	})
	g.AddNode("b", func(ctx context.Context, s State) (Patch, error) {
		return Patch{"b_ran": true}, nil
	})
	g.SetEntry("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", End)

	compiled, err := g.Compile()
	require.NoError(t, err)

	out, err := compiled.Invoke(context.Background(), "t1", State{})
	require.NoError(t, err)
	assert.True(t, StateBool(out, "a_ran"))
	assert.True(t, StateBool(out, "b_ran"))
}

func TestGraph_ConditionalEdgeRoutesByState(t *testing.T) {
	g := NewGraph("conditional")
	g.AddNode("decide", func(ctx context.Context, s State) (Patch, error) {
		return Patch{"route_to": "odd"}, nil
	})
	g.AddNode("odd", func(ctx context.Context, s State) (Patch, error) {
		return Patch{"branch": "odd"}, nil
	})
	g.AddNode("even", func(ctx context.Context, s State) (Patch, error) {
		return Patch{"branch": "even"}, nil
	})
	g.SetEntry("decide")
	g.AddConditionalEdge("decide", func(s State) string {
		return StateString(s, "route_to")
	})
	g.AddEdge("odd", End)
	g.AddEdge("even", End)

	compiled, err := g.Compile()
	require.NoError(t, err)

	out, err := compiled.Invoke(context.Background(), "t1", State{})
	require.NoError(t, err)
	assert.Equal(t, "odd", StateString(out, "branch"))
}

func TestGraph_CompileRejectsMissingEntry(t *testing.T) {
	g := NewGraph("broken")
	g.AddNode("a", func(ctx context.Context, s State) (Patch, error) { return nil, nil })
	_, err := g.Compile()
	assert.Error(t, err)
}

func TestGraph_CompileRejectsEdgeFromUnknownNode(t *testing.T) {
	g := NewGraph("broken")
	g.AddNode("a", func(ctx context.Context, s State) (Patch, error) { return nil, nil })
	g.SetEntry("a")
	g.AddEdge("ghost", "a")
	_, err := g.Compile()
	assert.Error(t, err)
}

func TestState_MergeDoesNotMutateOriginal(t *testing.T) {
	base := State{"x": 1}
	merged := base.Merge(Patch{"x": 2, "y": 3})
	assert.Equal(t, 1, base["x"])
	assert.Equal(t, 2, merged["x"])
	assert.Equal(t, 3, merged["y"])
}
