package domain

import (
	"os"
	"strings"
)

// AssembleClasspath computes the compile classpath of a module.
//
// Preset entries come first, followed by the output directories of the module's
// transitive dependencies: direct dependencies in declaration order, then
// transitively discovered modules in first-seen order. Every entry appears once.
// Dependencies that are not declared in the graph are skipped; the compiler
// reports the missing symbols as unresolved references.
func AssembleClasspath(m *Module, g *ModuleGraph, preset ...string) []string {
	entries := make([]string, 0, len(preset))
	seen := make(map[string]bool)
	add := func(entry string) {
		if entry == "" || seen[entry] {
			return
		}
		seen[entry] = true
		entries = append(entries, entry)
	}

	for _, entry := range preset {
		add(entry)
	}
	for _, dep := range TransitiveDependencies(m, g) {
		add(dep.OutputDir())
	}
	return entries
}

// DependencySnapshots returns the snapshot paths of a module's transitive
// dependencies in classpath order.
func DependencySnapshots(m *Module, g *ModuleGraph) []string {
	deps := TransitiveDependencies(m, g)
	snapshots := make([]string, 0, len(deps))
	for _, dep := range deps {
		snapshots = append(snapshots, dep.SnapshotPath())
	}
	return snapshots
}

// TransitiveDependencies returns the declared modules reachable from m, direct
// dependencies first and the rest in first-seen order. Undeclared names are skipped.
func TransitiveDependencies(m *Module, g *ModuleGraph) []*Module {
	seen := map[string]bool{m.Name(): true}
	var direct, result []*Module

	for _, name := range m.dependencies {
		dep, ok := g.Module(name)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		direct = append(direct, dep)
	}
	result = append(result, direct...)

	var expand func(*Module)
	expand = func(parent *Module) {
		for _, name := range parent.dependencies {
			dep, ok := g.Module(name)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			result = append(result, dep)
			expand(dep)
		}
	}
	for _, dep := range direct {
		expand(dep)
	}
	return result
}

// JoinClasspath joins classpath entries with the platform path-list separator.
func JoinClasspath(entries []string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

// SplitClasspath is the inverse of JoinClasspath. Empty segments are dropped.
func SplitClasspath(classpath string) []string {
	if classpath == "" {
		return nil
	}
	parts := strings.Split(classpath, string(os.PathListSeparator))
	entries := parts[:0]
	for _, p := range parts {
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}
