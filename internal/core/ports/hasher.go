package ports

//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks

// OutputHasher fingerprints build outputs.
type OutputHasher interface {
	// ComputeOutputHash returns a fingerprint of every file below dir.
	// A missing directory has a stable empty fingerprint.
	ComputeOutputHash(dir string) (string, error)
}
