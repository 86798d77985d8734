package isolation

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var manifestValidate = validator.New(validator.WithRequiredStructEnabled())

// Manifest describes a compiler implementation artifact.
type Manifest struct {
	Implementation string   `yaml:"implementation" validate:"required"`
	Version        string   `yaml:"version"        validate:"required"`
	Symbols        []string `yaml:"symbols,omitempty"`

	// Location is the artifact the manifest was read from.
	Location string `yaml:"-"`
}

// ReadManifest reads the manifest of an artifact.
// The artifact may be a directory holding kiln-artifact.yaml or the manifest file itself.
// A missing manifest is reported with ok == false and no error.
func ReadManifest(artifact string) (Manifest, bool, error) {
	path := artifact
	info, err := os.Stat(artifact)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, zerr.With(zerr.Wrap(err, domain.ErrInvalidArtifact.Error()), "artifact", artifact)
	}
	if info.IsDir() {
		path = filepath.Join(artifact, domain.ArtifactManifestName)
	} else if filepath.Base(artifact) != domain.ArtifactManifestName {
		return Manifest{}, false, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // artifact paths come from the build configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, zerr.With(zerr.Wrap(err, domain.ErrInvalidArtifact.Error()), "artifact", artifact)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, zerr.With(zerr.Wrap(err, domain.ErrInvalidArtifact.Error()), "artifact", artifact)
	}
	if err := manifestValidate.Struct(m); err != nil {
		return Manifest{}, false, zerr.With(zerr.Wrap(err, domain.ErrInvalidArtifact.Error()), "artifact", artifact)
	}
	m.Location = artifact
	return m, true, nil
}

// WriteManifest creates an artifact directory with the given manifest.
func WriteManifest(dir string, m Manifest) error {
	if err := manifestValidate.Struct(m); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrInvalidArtifact.Error()), "artifact", dir)
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create artifact directory"), "artifact", dir)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal artifact manifest")
	}
	path := filepath.Join(dir, domain.ArtifactManifestName)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write artifact manifest"), "path", path)
	}
	return nil
}
