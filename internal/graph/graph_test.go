package graph

import (
	"testing"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
)

func comp(name string, requires ...string) manifest.Component {
	shell := "true"
	return manifest.Component{Name: name, Requires: requires, Shell: &shell}
}

func TestBuildResolvesDiamond(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		comp("base"),
		comp("left", "base"),
		comp("right", "base"),
		comp("top", "left", "right"),
	}}

	g, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	top, ok := g.ByName("top")
	if !ok || len(top.Dependencies) != 2 {
		t.Fatalf("expected top to depend on left and right, got %+v", top)
	}
	base, _ := g.ByName("base")
	if len(base.Dependents) != 2 {
		t.Fatalf("expected base to have 2 dependents (diamond sharing), got %d", len(base.Dependents))
	}
}

func TestBuildTreatsUnknownRequireAsSource(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{comp("a", "recipes/base.toml", "b"), comp("b")}}
	g, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, _ := g.ByName("a")
	if len(a.Dependencies) != 1 {
		t.Fatalf("expected one component dependency, got %v", a.Dependencies)
	}
	if len(a.Sources) != 1 || a.Sources[0] != "recipes/base.toml" {
		t.Fatalf("expected unresolved require kept as source path, got %v", a.Sources)
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		comp("a", "b"),
		comp("b", "a"),
	}}
	_, err := Build(m)
	if !imgerr.Is(err, imgerr.KindLoopError) {
		t.Fatalf("expected KindLoopError, got %v", err)
	}
}

func TestTopoOrderRespectsDependencies(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		comp("base"),
		comp("mid", "base"),
		comp("top", "mid"),
	}}
	g, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	order := g.TopoOrder()
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[g.Nodes[id].Component.Name] = i
	}
	if pos["base"] > pos["mid"] || pos["mid"] > pos["top"] {
		t.Fatalf("topo order violates dependency order: %v", pos)
	}
}
