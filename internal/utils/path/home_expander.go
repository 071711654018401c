package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tildeSymbolConstant = "~"

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander converts leading "~" shortcuts to paths beneath the home directory.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	resolveOnce           sync.Once
}

// NewHomeExpander constructs a HomeExpander using os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(nil)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves "~", "~/..." and "~\..." prefixes. Other paths are returned unchanged,
// including "~user" forms and every path when the home directory cannot be resolved.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	remainder := strings.TrimPrefix(candidatePath, tildeSymbolConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return candidatePath
	}

	expander.resolveOnce.Do(func() {
		homeDirectory, homeDirectoryError := expander.homeDirectoryProvider()
		if homeDirectoryError == nil {
			expander.homeDirectory = homeDirectory
		}
	})
	if len(expander.homeDirectory) == 0 {
		return candidatePath
	}
	if len(remainder) == 0 {
		return expander.homeDirectory
	}
	return filepath.Join(expander.homeDirectory, remainder[1:])
}
