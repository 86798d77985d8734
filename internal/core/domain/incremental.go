package domain

import (
	"fmt"
	"slices"
)

// ChangeKind enumerates the change descriptor forms accepted by the compiler service.
type ChangeKind int

const (
	// ChangeUnknown tells the compiler to recompute everything from scratch.
	ChangeUnknown ChangeKind = iota
	// ChangeToBeCalculated tells the compiler to diff against its own previous state.
	ChangeToBeCalculated
	// ChangeKnown asserts the exact set of changed and removed files.
	ChangeKnown
)

// String returns the literal form of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUnknown:
		return "Unknown"
	case ChangeToBeCalculated:
		return "ToBeCalculated"
	case ChangeKnown:
		return "Known"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ChangeDescriptor describes what changed in a module since its last build.
type ChangeDescriptor struct {
	Kind    ChangeKind `json:"kind"`
	Changed []string   `json:"changed,omitempty"`
	Removed []string   `json:"removed,omitempty"`
}

// UnknownChanges returns the descriptor forcing a from-scratch comparison.
func UnknownChanges() ChangeDescriptor {
	return ChangeDescriptor{Kind: ChangeUnknown}
}

// ToBeCalculated returns the descriptor delegating change detection to the compiler.
func ToBeCalculated() ChangeDescriptor {
	return ChangeDescriptor{Kind: ChangeToBeCalculated}
}

// KnownChanges returns a descriptor asserting the exact delta.
func KnownChanges(changed, removed []string) ChangeDescriptor {
	return ChangeDescriptor{
		Kind:    ChangeKnown,
		Changed: slices.Clone(changed),
		Removed: slices.Clone(removed),
	}
}

// String returns the literal form of the descriptor.
func (c ChangeDescriptor) String() string {
	if c.Kind != ChangeKnown {
		return c.Kind.String()
	}
	return fmt.Sprintf("Known(changed=%v, removed=%v)", c.Changed, c.Removed)
}

// ModuleChange pairs a module name with its explicit change descriptor.
type ModuleChange struct {
	Module string
	Change ChangeDescriptor
}

// IncrementalOptions are the fixed tuning flags handed to the compiler.
type IncrementalOptions struct {
	// KeepCachesInMemory keeps incremental caches resident across calls in the same process.
	KeepCachesInMemory bool `json:"keepCachesInMemory"`
	// PreciseJavaTracking tracks Java-source interface changes precisely instead of conservatively.
	PreciseJavaTracking bool `json:"preciseJavaTracking"`
	// OwnedOutputDirs are directories the compiler may prune stale outputs from.
	OwnedOutputDirs []string `json:"ownedOutputDirs,omitempty"`
}

// IncrementalConfig binds a module's incremental compilation state.
// The compiler treats it as opaque input; kiln never interprets the snapshot.
type IncrementalConfig struct {
	WorkingDir          string             `json:"workingDir"`
	Change              ChangeDescriptor   `json:"change"`
	SnapshotPath        string             `json:"snapshotPath"`
	DependencySnapshots []string           `json:"dependencySnapshots,omitempty"`
	Options             IncrementalOptions `json:"options"`
}

// ConfigureIncremental builds the incremental configuration of a module.
//
// The snapshot path is the same for reading the previous build's state and for
// writing the new one. If the file is missing the compiler falls back to a full
// rebuild without reporting an error.
func ConfigureIncremental(m *Module, change ChangeDescriptor, dependencySnapshots []string) IncrementalConfig {
	return IncrementalConfig{
		WorkingDir:          m.IncrementalDir(),
		Change:              change,
		SnapshotPath:        m.SnapshotPath(),
		DependencySnapshots: slices.Clone(dependencySnapshots),
		Options: IncrementalOptions{
			KeepCachesInMemory:  true,
			PreciseJavaTracking: true,
			OwnedOutputDirs:     []string{m.OutputDir()},
		},
	}
}
