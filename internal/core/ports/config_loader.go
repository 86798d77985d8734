package ports

import "go.trai.ch/kiln/internal/core/domain"

//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks

// ConfigLoader loads the harness configuration.
type ConfigLoader interface {
	// Load finds the configuration file starting at cwd and walking up, and
	// builds the scenario it declares.
	Load(cwd string) (*domain.Scenario, error)
}
