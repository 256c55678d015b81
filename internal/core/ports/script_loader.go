package ports

import "github.com/donno/cake/internal/core/domain"

// ScriptLoader parses a build-script file into its compiled form. The engine
// memoizes results per absolute path for the duration of one invocation;
// loaders may additionally cache across invocations keyed by content
// checksum.
//
//go:generate go run go.uber.org/mock/mockgen -source=script_loader.go -destination=mocks/mock_script_loader.go -package=mocks
type ScriptLoader interface {
	// Load reads and parses the script at the given absolute path.
	Load(path string) (*domain.ScriptFile, error)
}
