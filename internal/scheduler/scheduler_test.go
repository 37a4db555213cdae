package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/open-edge-platform/imagecraft/internal/graph"
	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
)

// fakeExecutor records every script it was asked to run and never touches
// the real shell, so tests don't depend on a host toolchain.
type fakeExecutor struct {
	mu       sync.Mutex
	ran      []string
	failWhen func(script string) bool
}

func (f *fakeExecutor) Run(_ context.Context, _ string, script string, _ map[string]string, _ string) (string, error) {
	f.mu.Lock()
	f.ran = append(f.ran, script)
	f.mu.Unlock()
	if f.failWhen != nil && f.failWhen(script) {
		return "boom", errFake
	}
	return "ok", nil
}

func (f *fakeExecutor) RunStreaming(context.Context, string, string, map[string]string, string, *os.File, *os.File) error {
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFake = fakeErr("fake failure")

func shellComp(name, script string, requires ...string) manifest.Component {
	s := script
	return manifest.Component{Name: name, Requires: requires, Shell: &s, Yields: []string{name + ".out"}}
}

func TestBuildAllDiamondBuildsSharedDepOnce(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		shellComp("base", "echo base"),
		shellComp("left", "echo left", "base"),
		shellComp("right", "echo right", "base"),
		shellComp("top", "echo top", "left", "right"),
	}}
	g, err := graph.Build(m)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	fe := &fakeExecutor{}
	s := New(g, pm, fe)

	artifacts, err := s.BuildAll(context.Background())
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(artifacts) != 4 {
		t.Fatalf("expected 4 artifact lists, got %d", len(artifacts))
	}

	count := 0
	for _, script := range fe.ran {
		if script == "echo base" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected shared dependency \"base\" to build exactly once, ran %d times", count)
	}
}

func TestBuildAllPropagatesFailure(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		shellComp("base", "false"),
		shellComp("dependent", "echo dependent", "base"),
	}}
	g, err := graph.Build(m)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	fe := &fakeExecutor{failWhen: func(script string) bool { return script == "false" }}
	s := New(g, pm, fe)

	artifacts, err := s.BuildAll(context.Background())
	if err == nil {
		t.Fatal("expected BuildAll to return an error")
	}
	if _, ok := artifacts["dependent"]; ok {
		t.Fatal("dependent should not have built after its dependency failed")
	}
	if s.Status("dependent") != Failure {
		t.Fatalf("expected dependent status Failure, got %v", s.Status("dependent"))
	}

	found := false
	for _, script := range fe.ran {
		if script == "echo dependent" {
			found = true
		}
	}
	if found {
		t.Fatal("dependent's build mode should never have run")
	}
}

func TestBuildForSkipsComponentsNoPartitionNeeds(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		shellComp("base", "echo base"),
		shellComp("needed", "echo needed", "base"),
		shellComp("orphan", "echo orphan"),
	}}
	g, err := graph.Build(m)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	fe := &fakeExecutor{}
	s := New(g, pm, fe)

	artifacts, err := s.BuildFor(context.Background(), []string{"needed"})
	if err != nil {
		t.Fatalf("BuildFor: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected base and needed to build, got %v", artifacts)
	}
	if s.Status("orphan") != NotStarted {
		t.Fatalf("orphan should stay NotStarted, got %v", s.Status("orphan"))
	}
	for _, script := range fe.ran {
		if script == "echo orphan" {
			t.Fatal("orphan's build mode should never have run")
		}
	}
}

func TestFailurePropagatesAsFailedDependency(t *testing.T) {
	m := &manifest.Manifest{Components: []manifest.Component{
		shellComp("broken", "false"),
		shellComp("top", "echo top", "broken"),
	}}
	g, err := graph.Build(m)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	fe := &fakeExecutor{failWhen: func(script string) bool { return script == "false" }}
	s := New(g, pm, fe)

	if _, err := s.BuildFor(context.Background(), []string{"top"}); err == nil {
		t.Fatal("expected BuildFor to surface the failure")
	}
	if !imgerr.Is(s.Err("top"), imgerr.KindFailedDependency) {
		t.Fatalf("expected top to record KindFailedDependency, got %v", s.Err("top"))
	}
}
