package legacy

import (
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
)

const (
	pluginPackagePrefixConstant          = "octoprint_"
	metadataDecoderCreationErrorTemplate = "unable to construct metadata decoder: %w"
	metadataDecodeErrorTemplate          = "unable to decode setup.py metadata: %w"
	metadataParseErrorTemplate           = "unable to parse setup.py: %w"
	metadataTagNameConstant              = "mapstructure"
)

// Metadata captures the plugin packaging attributes declared in setup.py.
type Metadata struct {
	Identifier                string         `mapstructure:"plugin_identifier"`
	Package                   string         `mapstructure:"plugin_package"`
	Name                      string         `mapstructure:"plugin_name"`
	Version                   string         `mapstructure:"plugin_version"`
	Description               string         `mapstructure:"plugin_description"`
	Author                    string         `mapstructure:"plugin_author"`
	AuthorEmail               string         `mapstructure:"plugin_author_email"`
	URL                       string         `mapstructure:"plugin_url"`
	License                   string         `mapstructure:"plugin_license"`
	Requires                  []string       `mapstructure:"plugin_requires"`
	AdditionalData            []string       `mapstructure:"plugin_additional_data"`
	AdditionalPackages        []string       `mapstructure:"plugin_additional_packages"`
	IgnoredPackages           []string       `mapstructure:"plugin_ignored_packages"`
	AdditionalSetupParameters map[string]any `mapstructure:"additional_setup_parameters"`
}

// Extract parses a setup script and decodes its plugin metadata.
func Extract(source string) (Metadata, error) {
	assignments, parseError := ParseAssignments(source)
	if parseError != nil {
		return Metadata{}, fmt.Errorf(metadataParseErrorTemplate, parseError)
	}
	return DecodeMetadata(assignments)
}

// DecodeMetadata maps parsed assignments onto Metadata and fills the
// identifier and package from each other when only one is declared.
func DecodeMetadata(assignments Assignments) (Metadata, error) {
	var metadata Metadata

	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &metadata,
		TagName:          metadataTagNameConstant,
		WeaklyTypedInput: true,
	})
	if decoderError != nil {
		return Metadata{}, fmt.Errorf(metadataDecoderCreationErrorTemplate, decoderError)
	}

	if decodeError := decoder.Decode(map[string]any(assignments)); decodeError != nil {
		return Metadata{}, fmt.Errorf(metadataDecodeErrorTemplate, decodeError)
	}

	return metadata.normalize(), nil
}

func (metadata Metadata) normalize() Metadata {
	normalized := metadata
	normalized.Identifier = strings.TrimSpace(metadata.Identifier)
	normalized.Package = strings.TrimSpace(metadata.Package)
	normalized.Name = strings.TrimSpace(metadata.Name)
	normalized.Version = strings.TrimSpace(metadata.Version)
	normalized.Description = strings.TrimSpace(metadata.Description)

	if len(normalized.Identifier) == 0 && len(normalized.Package) > 0 {
		normalized.Identifier = strings.TrimPrefix(normalized.Package, pluginPackagePrefixConstant)
	}
	if len(normalized.Package) == 0 && len(normalized.Identifier) > 0 {
		normalized.Package = pluginPackagePrefixConstant + normalized.Identifier
	}

	normalized.Requires = compactStrings(metadata.Requires)
	normalized.AdditionalData = compactStrings(metadata.AdditionalData)
	normalized.AdditionalPackages = compactStrings(metadata.AdditionalPackages)
	normalized.IgnoredPackages = compactStrings(metadata.IgnoredPackages)
	return normalized
}

// SetupParameter returns an entry of additional_setup_parameters.
func (metadata Metadata) SetupParameter(name string) (any, bool) {
	if metadata.AdditionalSetupParameters == nil {
		return nil, false
	}
	value, exists := metadata.AdditionalSetupParameters[name]
	return value, exists
}

func compactStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	compacted := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if len(trimmed) == 0 {
			continue
		}
		compacted = append(compacted, trimmed)
	}
	if len(compacted) == 0 {
		return nil
	}
	return compacted
}
