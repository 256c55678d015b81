package ports

// Digester computes strong content digests of files. The engine layers its
// (path, timestamp) digest cache on top, so implementations do not memoize.
//
//go:generate go run go.uber.org/mock/mockgen -source=digester.go -destination=mocks/mock_digester.go -package=mocks
type Digester interface {
	// FileDigest reads the file and returns its content digest.
	FileDigest(path string) ([]byte, error)
}
