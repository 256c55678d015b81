package ports

// DependencyStore persists dependency records as opaque blobs in a side
// channel derived from the target path (conventionally "<target>.dep").
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type DependencyStore interface {
	// Load reads the stored blob for the target. A missing record is an
	// error satisfying errors.Is(err, fs.ErrNotExist).
	Load(targetPath string) ([]byte, error)

	// Store writes the blob for the target, creating parent directories as
	// needed.
	Store(targetPath string, blob []byte) error
}
