package ports

import "go.trai.ch/kiln/internal/core/domain"

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// BuildRecordStore persists the last build record of every module.
type BuildRecordStore interface {
	// Get returns the record of a module, or nil if the module was never built.
	Get(root, module string) (*domain.BuildRecord, error)

	// Put stores the record of a module.
	Put(root string, record domain.BuildRecord) error

	// Clear removes every record stored below root.
	Clear(root string) error
}
