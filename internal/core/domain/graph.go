// Package domain contains the core domain models of the build orchestration harness.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

const (
	unvisited = iota
	visiting
	visited
)

// ModuleGraph holds the declared modules of a build scenario and their dependency edges.
type ModuleGraph struct {
	root    string
	modules map[string]*Module
	order   []string
	sealed  int
}

// NewModuleGraph creates an empty graph. Default module directories are laid out below root.
func NewModuleGraph(root string) *ModuleGraph {
	return &ModuleGraph{
		root:    root,
		modules: make(map[string]*Module),
	}
}

// Root returns the directory default module layouts are derived from.
func (g *ModuleGraph) Root() string {
	return g.root
}

// AddModule declares a new module with the given dependencies.
// It returns an error if a module with the same name already exists.
func (g *ModuleGraph) AddModule(name string, deps ...string) (*Module, error) {
	if g.Sealed() {
		return nil, zerr.With(ErrGraphSealed, "module", name)
	}
	if err := validateModuleName(name); err != nil {
		return nil, err
	}
	if _, exists := g.modules[name]; exists {
		return nil, zerr.With(ErrModuleAlreadyExists, "module", name)
	}

	m := &Module{
		graph:          g,
		name:           name,
		outputDir:      DefaultOutputDir(g.root, name),
		incrementalDir: DefaultIncrementalDir(g.root, name),
	}
	if err := m.AddDependencies(deps...); err != nil {
		return nil, err
	}
	m.revision = 0

	g.modules[name] = m
	g.order = append(g.order, name)
	return m, nil
}

// Module returns the module with the given name.
func (g *ModuleGraph) Module(name string) (*Module, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// Len returns the number of declared modules.
func (g *ModuleGraph) Len() int {
	return len(g.order)
}

// Modules yields the declared modules in declaration order.
func (g *ModuleGraph) Modules() iter.Seq[*Module] {
	return func(yield func(*Module) bool) {
		for _, name := range g.order {
			if !yield(g.modules[name]) {
				return
			}
		}
	}
}

// Seal marks the graph as being built. Until the returned release function is
// called, modules cannot be added or mutated.
func (g *ModuleGraph) Seal() (release func()) {
	g.sealed++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.sealed--
	}
}

// Sealed reports whether a build is currently running on the graph.
func (g *ModuleGraph) Sealed() bool {
	return g.sealed > 0
}

// BuildOrder computes a dependency-respecting order of all declared modules.
// Modules are visited in declaration order and dependencies in their declared
// order, so the result is deterministic. The order is recomputed on every call.
func (g *ModuleGraph) BuildOrder() ([]string, error) {
	return g.buildOrder(g.order)
}

// BuildOrderOf computes the build order restricted to the given modules.
// Dependencies outside the selection are still validated but not included.
func (g *ModuleGraph) BuildOrderOf(names []string) ([]string, error) {
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := g.modules[name]; !ok {
			return nil, zerr.With(ErrUnknownModule, "module", name)
		}
		selected[name] = true
	}

	full, err := g.buildOrder(names)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(selected))
	for _, name := range full {
		if selected[name] {
			order = append(order, name)
		}
	}
	return order, nil
}

func (g *ModuleGraph) buildOrder(roots []string) ([]string, error) {
	order := make([]string, 0, len(g.modules))
	state := make(map[string]int, len(g.modules))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		state[name] = visiting
		path = append(path, name)

		m := g.modules[name]
		for _, dep := range m.dependencies {
			if _, ok := g.modules[dep]; !ok {
				return zerr.With(zerr.With(ErrUnknownModule, "module", dep), "dependent", name)
			}
			switch state[dep] {
			case visiting:
				return buildCycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		state[name] = visited
		path = path[:len(path)-1]
		order = append(order, name)
		return nil
	}

	for _, name := range roots {
		if state[name] == unvisited {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []string, dep string) error {
	start := 0
	for i, node := range path {
		if node == dep {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, path[start:]...), dep)
	return zerr.With(zerr.With(ErrCyclicDependency, "module", dep), "cycle", strings.Join(cycle, " -> "))
}
