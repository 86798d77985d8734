// Package isolation implements the plugin-isolation boundary used to load
// compiler implementations side by side in one process.
//
// The host owns a shared API scope. Every loaded toolchain gets a private
// child scope for its own symbols. Resolution follows an explicit Policy:
// shared prefixes always come from the parent, isolated prefixes only ever
// come from the child, everything else is looked up child-first.
package isolation

import (
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Symbol names exported by the shared API scope.
const (
	SymbolUnitOfWork     = "kiln.api.UnitOfWork"
	SymbolResultCode     = "kiln.api.ResultCode"
	SymbolCancellation   = "kiln.api.Cancellation"
	SymbolDiagnosticSink = "kiln.api.DiagnosticSink"
	SymbolChange         = "kiln.api.ChangeDescriptor"
)

// Symbol names every implementation defines in its private scope.
const (
	SymbolCompiler = "kiln.impl.compiler"
	SymbolVersion  = "kiln.impl.version"
)

// Policy lists the symbol prefixes with a fixed resolution rule.
type Policy struct {
	// Shared prefixes resolve parent-first and cannot be defined in a child scope.
	Shared []string
	// Isolated prefixes resolve from the child scope only.
	Isolated []string
}

// DefaultPolicy shares the API and host runtime symbols and isolates implementation symbols.
func DefaultPolicy() Policy {
	return Policy{
		Shared:   []string{"kiln.api.", "go.runtime."},
		Isolated: []string{"kiln.impl."},
	}
}

func (p Policy) shared(name string) bool {
	return hasAnyPrefix(name, p.Shared)
}

func (p Policy) isolated(name string) bool {
	return hasAnyPrefix(name, p.Isolated)
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Scope is a named symbol table with an optional parent.
type Scope struct {
	name    string
	parent  *Scope
	policy  Policy
	mu      sync.RWMutex
	symbols map[string]any
	sealed  bool
}

// NewAPIScope creates the host's shared API scope, populated with the API types
// exchanged across the compiler boundary, and seals it.
func NewAPIScope(policy Policy) *Scope {
	s := &Scope{
		name:    "api",
		policy:  policy,
		symbols: make(map[string]any),
	}
	s.symbols[SymbolUnitOfWork] = reflect.TypeFor[domain.UnitOfWork]()
	s.symbols[SymbolResultCode] = reflect.TypeFor[domain.ResultCode]()
	s.symbols[SymbolCancellation] = reflect.TypeFor[domain.Cancellation]()
	s.symbols[SymbolDiagnosticSink] = reflect.TypeFor[ports.DiagnosticSink]()
	s.symbols[SymbolChange] = reflect.TypeFor[domain.ChangeDescriptor]()
	s.symbols["go.runtime.version"] = runtime.Version()
	s.sealed = true
	return s
}

// NewChild creates a private scope parented by s.
func (s *Scope) NewChild(name string) *Scope {
	return &Scope{
		name:    name,
		parent:  s,
		policy:  s.policy,
		symbols: make(map[string]any),
	}
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Define binds a symbol in this scope.
// Child scopes cannot define shared symbols, and sealed scopes cannot be changed.
func (s *Scope) Define(name string, value any) error {
	if s.parent != nil && s.policy.shared(name) {
		return zerr.With(zerr.With(domain.ErrSharedSymbolShadowed, "symbol", name), "scope", s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return zerr.With(zerr.With(domain.ErrScopeSealed, "symbol", name), "scope", s.name)
	}
	s.symbols[name] = value
	return nil
}

// Seal makes the scope read-only.
func (s *Scope) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Resolve looks a symbol up according to the scope's policy.
func (s *Scope) Resolve(name string) (any, error) {
	var (
		v  any
		ok bool
	)
	switch {
	case s.policy.shared(name):
		v, ok = s.resolveParentFirst(name)
	case s.policy.isolated(name):
		v, ok = s.local(name)
	default:
		v, ok = s.resolveChildFirst(name)
	}
	if !ok {
		return nil, zerr.With(zerr.With(domain.ErrSymbolNotFound, "symbol", name), "scope", s.name)
	}
	return v, nil
}

// Symbols returns the names defined directly in this scope, sorted.
func (s *Scope) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Scope) local(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.symbols[name]
	return v, ok
}

func (s *Scope) resolveParentFirst(name string) (any, bool) {
	if s.parent != nil {
		if v, ok := s.parent.resolveParentFirst(name); ok {
			return v, true
		}
	}
	return s.local(name)
}

func (s *Scope) resolveChildFirst(name string) (any, bool) {
	if v, ok := s.local(name); ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.resolveChildFirst(name)
	}
	return nil, false
}

// ResolveAs resolves a symbol and asserts its type.
func ResolveAs[T any](s *Scope, name string) (T, error) {
	var zero T
	v, err := s.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, zerr.With(zerr.With(domain.ErrSymbolNotFound, "symbol", name), "expected_type", reflect.TypeFor[T]().String())
	}
	return typed, nil
}
