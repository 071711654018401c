package cli

import _ "embed"

//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns the plugin-tool defaults (logging and
// tools.migrate settings) shipped inside the binary, with their format. Callers
// receive a copy.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte{}, embeddedDefaultConfigurationContent...), configurationTypeConstant
}
