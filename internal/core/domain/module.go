package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Module is a named compilation unit with its own sources, output directory and
// incremental working directory.
//
// A module is owned by the ModuleGraph that created it. Its sources and
// dependencies can only be appended while no build is running on that graph.
type Module struct {
	graph          *ModuleGraph
	name           string
	sources        []string
	outputDir      string
	incrementalDir string
	dependencies   []string
	revision       uint64
}

// Name returns the unique module name.
func (m *Module) Name() string {
	return m.name
}

// SourceFiles returns the module sources in declaration order.
func (m *Module) SourceFiles() []string {
	return slices.Clone(m.sources)
}

// OutputDir returns the directory the compiler writes class outputs to.
func (m *Module) OutputDir() string {
	return m.outputDir
}

// IncrementalDir returns the incremental working directory of the module.
func (m *Module) IncrementalDir() string {
	return m.incrementalDir
}

// SnapshotPath returns the path of the module's incremental snapshot.
func (m *Module) SnapshotPath() string {
	return SnapshotPath(m.incrementalDir)
}

// Dependencies returns the declared dependency names in declaration order.
func (m *Module) Dependencies() []string {
	return slices.Clone(m.dependencies)
}

// Revision counts the mutations applied to the module since it was declared.
func (m *Module) Revision() uint64 {
	return m.revision
}

// AddSources appends source files to the module.
func (m *Module) AddSources(paths ...string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	m.sources = append(m.sources, paths...)
	m.revision++
	return nil
}

// AddDependencies appends dependency names to the module, ignoring duplicates.
// Names are not resolved until the build order is computed.
func (m *Module) AddDependencies(names ...string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	for _, name := range names {
		if name == "" || slices.Contains(m.dependencies, name) {
			continue
		}
		m.dependencies = append(m.dependencies, name)
	}
	m.revision++
	return nil
}

// SetOutputDir overrides the default class output directory.
func (m *Module) SetOutputDir(dir string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	m.outputDir = dir
	m.revision++
	return nil
}

// SetIncrementalDir overrides the default incremental working directory.
func (m *Module) SetIncrementalDir(dir string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	m.incrementalDir = dir
	m.revision++
	return nil
}

func (m *Module) checkMutable() error {
	if m.graph != nil && m.graph.Sealed() {
		return zerr.With(ErrGraphSealed, "module", m.name)
	}
	return nil
}

// validateModuleName rejects names that cannot be used as a directory component.
func validateModuleName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return zerr.With(ErrInvalidModuleName, "module", name)
	}
	return nil
}
