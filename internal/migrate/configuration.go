package migrate

import (
	"strings"

	"github.com/temirov/plugin-tool/internal/pyproject"
	pathutils "github.com/temirov/plugin-tool/internal/utils/path"
)

var migrateConfigurationProjectPathSanitizer = pathutils.NewProjectPathSanitizer()

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	ProjectRoots        []string `mapstructure:"roots"`
	DryRun              bool     `mapstructure:"dry_run"`
	RequiresPython      string   `mapstructure:"requires_python"`
	BuildRequires       []string `mapstructure:"build_requires"`
	DevelopDependencies []string `mapstructure:"develop_dependencies"`
}

// DefaultCommandConfiguration returns baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	defaults := pyproject.DefaultBuildOptions()
	return CommandConfiguration{
		ProjectRoots:        nil,
		DryRun:              false,
		RequiresPython:      defaults.RequiresPython,
		BuildRequires:       defaults.BuildRequires,
		DevelopDependencies: defaults.DevelopDependencies,
	}
}

// DefaultConfigurationValues returns viper defaults keyed beneath prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + ".roots":                []string{},
		prefix + ".dry_run":              defaults.DryRun,
		prefix + ".requires_python":      defaults.RequiresPython,
		prefix + ".build_requires":       defaults.BuildRequires,
		prefix + ".develop_dependencies": defaults.DevelopDependencies,
	}
}

// Sanitize trims configured values and removes empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.ProjectRoots = migrateConfigurationProjectPathSanitizer.Sanitize(configuration.ProjectRoots)
	sanitized.RequiresPython = strings.TrimSpace(configuration.RequiresPython)
	sanitized.BuildRequires = trimEntries(configuration.BuildRequires)
	sanitized.DevelopDependencies = trimEntries(configuration.DevelopDependencies)
	return sanitized
}

// BuildOptions converts the configuration into pyproject build options.
// Unset values fall back to the defaults.
func (configuration CommandConfiguration) BuildOptions() pyproject.BuildOptions {
	options := pyproject.DefaultBuildOptions()
	if len(configuration.RequiresPython) > 0 {
		options.RequiresPython = configuration.RequiresPython
	}
	if configuration.BuildRequires != nil {
		options.BuildRequires = configuration.BuildRequires
	}
	if configuration.DevelopDependencies != nil {
		options.DevelopDependencies = configuration.DevelopDependencies
	}
	return options
}

func trimEntries(entries []string) []string {
	if entries == nil {
		return nil
	}
	trimmed := make([]string, 0, len(entries))
	for _, entry := range entries {
		value := strings.TrimSpace(entry)
		if len(value) == 0 {
			continue
		}
		trimmed = append(trimmed, value)
	}
	return trimmed
}
