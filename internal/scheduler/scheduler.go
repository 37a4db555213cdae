// Package scheduler builds a manifest's components according to the
// dependency DAG built by internal/graph: each node builds at most once,
// diamond-shared dependencies are built once and reused by every dependent,
// and a dependency's failure fails every node downstream of it without
// running their build modes. One goroutine per node; dependents wait on a
// dependency's completion channel instead of re-invoking its build.
package scheduler

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/open-edge-platform/imagecraft/internal/graph"
	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

var log = logger.Logger()

// Status is a component build's lifecycle state.
type Status int32

const (
	NotStarted Status = iota
	InProgress
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "InProgress"
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	default:
		return "NotStarted"
	}
}

// ArtifactList is one component's build outputs, addressable by other
// components' Artifact file directives.
type ArtifactList struct {
	Component string
	Artifacts []string
}

type result struct {
	artifacts []string
	err       error
	duration  time.Duration
}

type node struct {
	status atomic.Int32
	done   chan struct{}
	result result
}

// Scheduler runs every component in a graph.Graph to completion.
type Scheduler struct {
	g    *graph.Graph
	pm   *pathmgr.Manager
	exec shellutil.Executor

	nodes []*node
}

// New constructs a Scheduler for g, deriving component build directories
// from pm and running build-mode scripts through exec.
func New(g *graph.Graph, pm *pathmgr.Manager, exec shellutil.Executor) *Scheduler {
	nodes := make([]*node, len(g.Nodes))
	for i := range nodes {
		nodes[i] = &node{done: make(chan struct{})}
	}
	return &Scheduler{g: g, pm: pm, exec: exec, nodes: nodes}
}

// Components returns every component name in the graph, in topological
// order, for progress reporting.
func (s *Scheduler) Components() []string {
	order := s.g.TopoOrder()
	names := make([]string, len(order))
	for i, id := range order {
		names[i] = s.g.Nodes[id].Component.Name
	}
	return names
}

// Status reports a component's current build status by name.
func (s *Scheduler) Status(name string) Status {
	n, ok := s.g.ByName(name)
	if !ok {
		return NotStarted
	}
	return Status(s.nodes[n.ID].status.Load())
}

// Err reports the error a component's build recorded, or nil. Only
// meaningful once the component's status is Failure.
func (s *Scheduler) Err(name string) error {
	n, ok := s.g.ByName(name)
	if !ok {
		return nil
	}
	return s.nodes[n.ID].result.err
}

// Duration reports how long a component's build mode ran, or zero if it
// hasn't finished (or never started).
func (s *Scheduler) Duration(name string) time.Duration {
	n, ok := s.g.ByName(name)
	if !ok {
		return 0
	}
	return s.nodes[n.ID].result.duration
}

// BuildAll builds every component in the graph, honoring dependency order
// and diamond sharing, and returns the artifact list for every component
// that succeeded. If any component fails, BuildAll returns the first
// failure once every in-flight goroutine has settled.
func (s *Scheduler) BuildAll(ctx context.Context) (map[string]ArtifactList, error) {
	roots := make([]string, len(s.g.Nodes))
	for i, n := range s.g.Nodes {
		roots[i] = n.Component.Name
	}
	return s.BuildFor(ctx, roots)
}

// BuildFor builds only the components transitively required by roots. Root
// names that don't resolve to a component are skipped; the graph builder
// already warned about them. Components outside the reachable set stay
// NotStarted and never run.
func (s *Scheduler) BuildFor(ctx context.Context, roots []string) (map[string]ArtifactList, error) {
	reachable := s.reachable(roots)

	var wg sync.WaitGroup
	for id := range reachable {
		wg.Add(1)
		go func(n *graph.Node) {
			defer wg.Done()
			s.build(ctx, n)
		}(s.g.Nodes[id])
	}
	wg.Wait()

	out := make(map[string]ArtifactList, len(reachable))
	var firstErr error
	for _, n := range s.g.Nodes {
		if !reachable[n.ID] {
			continue
		}
		nd := s.nodes[n.ID]
		switch Status(nd.status.Load()) {
		case Success:
			out[n.Component.Name] = ArtifactList{Component: n.Component.Name, Artifacts: nd.result.artifacts}
		case Failure:
			if firstErr == nil {
				firstErr = nd.result.err
			}
		}
	}
	return out, firstErr
}

// reachable collects the NodeIDs of roots and everything below them.
func (s *Scheduler) reachable(roots []string) map[graph.NodeID]bool {
	seen := make(map[graph.NodeID]bool)
	var visit func(id graph.NodeID)
	visit = func(id graph.NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, dep := range s.g.Nodes[id].Dependencies {
			visit(dep)
		}
	}
	for _, name := range roots {
		if n, ok := s.g.ByName(name); ok {
			visit(n.ID)
		}
	}
	return seen
}

// build runs one node's build mode after its dependencies settle. It is
// called exactly once per node (one goroutine per NodeID from BuildFor), so
// the at-most-once guarantee holds without an additional guard; dependents
// that need the same node's result wait on its channel instead of
// re-invoking build.
func (s *Scheduler) build(ctx context.Context, n *graph.Node) {
	nd := s.nodes[n.ID]
	defer close(nd.done)
	start := time.Now()

	for _, depID := range n.Dependencies {
		dep := s.g.Nodes[depID]
		select {
		case <-s.nodes[depID].done:
		case <-ctx.Done():
			s.fail(nd, imgerr.Wrap(imgerr.KindFailedDependency, ctx.Err(), "waiting on %q for %q", dep.Component.Name, n.Component.Name), time.Since(start))
			return
		}
		if Status(s.nodes[depID].status.Load()) == Failure {
			s.fail(nd, imgerr.New(imgerr.KindFailedDependency, "%q failed because dependency %q failed", n.Component.Name, dep.Component.Name), time.Since(start))
			return
		}
	}

	nd.status.Store(int32(InProgress))
	log.Infow("building component", "component", n.Component.Name, "cache", n.Component.CacheMode)

	dir := s.pm.ComponentBuildDir(n.Component.Name)
	if err := prepareComponentDir(dir, n.Component.CacheMode); err != nil {
		s.fail(nd, imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "preparing build dir for %q", n.Component.Name), time.Since(start))
		return
	}

	artifacts, err := s.runBuildMode(ctx, n.Component, dir)
	if err != nil {
		s.fail(nd, err, time.Since(start))
		return
	}

	nd.result = result{artifacts: artifacts, duration: time.Since(start)}
	nd.status.Store(int32(Success))
	log.Infow("component built", "component", n.Component.Name, "artifacts", len(artifacts), "duration", nd.result.duration)
}

func (s *Scheduler) fail(nd *node, err error, duration time.Duration) {
	nd.result = result{err: err, duration: duration}
	nd.status.Store(int32(Failure))
}

// prepareComponentDir wipes or preserves a component's build directory
// according to its cache mode:
//   - Aggressive: never wiped; the component's build mode is expected to be
//     incremental and detect its own up-to-date state.
//   - Normal: wiped at the start of every run, a clean build each time.
//   - Transient: wiped at the start of the run AND removed again once the
//     whole build finishes (CleanupTransient), since its outputs are only
//     ever consumed as artifacts, never as cache.
func prepareComponentDir(dir string, mode manifest.CacheMode) error {
	if mode != manifest.CacheAggressive {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return os.MkdirAll(dir, 0o755)
}

// CleanupTransient removes the build directory of every transient-cache
// component. Call it after the populator has copied out every artifact it
// needs; transient outputs are never reused as cache.
func (s *Scheduler) CleanupTransient() {
	for _, n := range s.g.Nodes {
		if n.Component.CacheMode != manifest.CacheTransient {
			continue
		}
		dir := s.pm.ComponentBuildDir(n.Component.Name)
		if err := os.RemoveAll(dir); err != nil {
			log.Warnf("removing transient build dir %q: %v", dir, err)
		}
	}
}

func (s *Scheduler) runBuildMode(ctx context.Context, c manifest.Component, dir string) ([]string, error) {
	env := shellutil.OSEnviron()
	env["BUILD_DIR"] = s.pm.BuildDir()
	env["IMAGE"] = s.pm.FinalImage()
	env["COMPONENT_DIR"] = dir

	switch c.BuildMode() {
	case manifest.BuildModeCargo:
		script := "cargo " + strings.Join(c.Cargo, " ")
		if out, err := s.exec.Run(ctx, "sh", script, env, dir); err != nil {
			log.Debugf("cargo build failed for %q: %s", c.Name, out)
			return nil, err
		}
	case manifest.BuildModeShell:
		if out, err := s.exec.Run(ctx, "nu", *c.Shell, env, dir); err != nil {
			log.Debugf("shell build failed for %q: %s", c.Name, out)
			return nil, err
		}
	default:
		return nil, imgerr.New(imgerr.KindUnresolvedArtifact, "component %q has no build mode", c.Name)
	}
	return c.Yields, nil
}
