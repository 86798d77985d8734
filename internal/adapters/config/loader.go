// Package config provides the configuration loader for kiln.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultInclude selects the files picked up from a source directory.
const DefaultInclude = "*.kt"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger   ports.Logger
	walker   *fs.Walker
	validate *validator.Validate
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a new Loader with the given logger and walker.
func NewLoader(logger ports.Logger, walker *fs.Walker) *Loader {
	return &Loader{
		Logger:   logger,
		walker:   walker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Load finds kiln.yaml in cwd or one of its parents and builds the scenario it declares.
func (l *Loader) Load(cwd string) (*domain.Scenario, error) {
	path, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// LoadFile builds the scenario declared by the configuration file at path.
func (l *Loader) LoadFile(path string) (*domain.Scenario, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve config path")
	}

	var kf Kilnfile
	if err := readAndUnmarshalYAML(path, &kf); err != nil {
		return nil, err
	}
	if err := l.validate.Struct(kf); err != nil {
		return nil, zerr.With(zerr.With(domain.ErrConfigInvalid, "reason", err.Error()), "path", path)
	}

	root := resolvePath(filepath.Dir(path), kf.Root)
	if root == "" {
		root = filepath.Dir(path)
	}

	g, err := l.buildGraph(root, kf.Modules)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	artifacts := make([]string, 0, len(kf.Toolchain.Artifacts))
	for _, a := range kf.Toolchain.Artifacts {
		artifacts = append(artifacts, resolvePath(filepath.Dir(path), a))
	}

	return &domain.Scenario{
		Path:            path,
		Graph:           g,
		Mode:            l.executionMode(root, kf.Execution),
		Artifacts:       artifacts,
		MetricsTextfile: resolvePath(root, kf.Metrics.Textfile),
	}, nil
}

func findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func readAndUnmarshalYAML(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return nil
}

func (l *Loader) buildGraph(root string, modules []ModuleDTO) (*domain.ModuleGraph, error) {
	g := domain.NewModuleGraph(root)

	declared := make(map[string]bool, len(modules))
	for _, dto := range modules {
		declared[dto.Name] = true
	}

	for _, dto := range modules {
		for _, dep := range dto.DependsOn {
			if !declared[dep] {
				return nil, zerr.With(zerr.With(domain.ErrUnknownModule, "module", dep), "dependent", dto.Name)
			}
		}

		m, err := g.AddModule(dto.Name, dto.DependsOn...)
		if err != nil {
			return nil, err
		}

		sources, err := l.expandSources(root, dto)
		if err != nil {
			return nil, zerr.With(err, "module", dto.Name)
		}
		if len(sources) == 0 {
			l.Logger.Warn(fmt.Sprintf("module %s declares no sources", dto.Name))
		}
		if err := m.AddSources(sources...); err != nil {
			return nil, err
		}
		if dto.OutputDir != "" {
			if err := m.SetOutputDir(resolvePath(root, dto.OutputDir)); err != nil {
				return nil, err
			}
		}
		if dto.IncrementalDir != "" {
			if err := m.SetIncrementalDir(resolvePath(root, dto.IncrementalDir)); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// expandSources resolves source entries against root in declaration order.
// Directories contribute every file matching the include pattern, globs every
// match, and plain paths are kept even when missing so the compiler can report them.
func (l *Loader) expandSources(root string, dto ModuleDTO) ([]string, error) {
	include := dto.Include
	if include == "" {
		include = DefaultInclude
	}
	if _, err := filepath.Match(include, ""); err != nil {
		return nil, zerr.With(zerr.With(domain.ErrConfigInvalid, "reason", "malformed include pattern"), "include", include)
	}

	var out []string
	add := func(p string) {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	for _, entry := range dto.Sources {
		path := resolvePath(root, entry)
		switch {
		case strings.ContainsAny(entry, "*?["):
			matches, err := filepath.Glob(path)
			if err != nil {
				return nil, zerr.With(zerr.With(domain.ErrConfigInvalid, "reason", "malformed source pattern"), "source", entry)
			}
			for _, match := range matches {
				add(match)
			}
		case isDir(path):
			for file := range l.walker.WalkFiles(path, nil) {
				if ok, _ := filepath.Match(include, filepath.Base(file)); ok {
					add(file)
				}
			}
		default:
			add(path)
		}
	}
	return out, nil
}

func (l *Loader) executionMode(root string, dto ExecutionDTO) domain.ExecutionMode {
	if dto.Mode != string(domain.ExecutionWorker) {
		if dto.WorkDir != "" || len(dto.Flags) > 0 || dto.ShutdownDelay != 0 {
			l.Logger.Warn("execution settings have no effect in in-process mode")
		}
		return domain.InProcess()
	}

	workDir := resolvePath(root, dto.WorkDir)
	if workDir == "" {
		workDir = domain.DefaultWorkerDir(root)
	}
	return domain.Worker(dto.Flags, dto.ShutdownDelay, workDir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// resolvePath makes p absolute relative to base. Empty stays empty.
func resolvePath(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
