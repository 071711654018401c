package legacy_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/plugin-tool/internal/legacy"
)

func TestExtractPluginSetupScript(testInstance *testing.T) {
	source, readError := os.ReadFile(filepath.Join(testdataDirectoryNameConstant, setupFixtureFileNameConstant))
	require.NoError(testInstance, readError)

	metadata, extractError := legacy.Extract(string(source))
	require.NoError(testInstance, extractError)

	require.Equal(testInstance, "helloworld", metadata.Identifier)
	require.Equal(testInstance, "octoprint_helloworld", metadata.Package)
	require.Equal(testInstance, "OctoPrint-HelloWorld", metadata.Name)
	require.Equal(testInstance, "1.0.0", metadata.Version)
	require.Equal(testInstance, "Gina Häußge", metadata.Author)
	require.Equal(testInstance, "gina@octoprint.org", metadata.AuthorEmail)
	require.Equal(testInstance, "https://github.com/OctoPrint/OctoPrint-HelloWorld", metadata.URL)
	require.Equal(testInstance, "AGPLv3", metadata.License)
	require.Equal(testInstance, []string{"requests>=2.20", "pyyaml"}, metadata.Requires)
	require.Nil(testInstance, metadata.AdditionalData)
	require.Equal(testInstance, []string{"octoprint_helloworld.tests"}, metadata.IgnoredPackages)

	pythonRequires, exists := metadata.SetupParameter("python_requires")
	require.True(testInstance, exists)
	require.Equal(testInstance, ">=3.7,<4", pythonRequires)
}

func TestDecodeMetadataNormalization(testInstance *testing.T) {
	testCases := []struct {
		name               string
		assignments        legacy.Assignments
		expectedIdentifier string
		expectedPackage    string
		expectedVersion    string
		expectedRequires   []string
	}{
		{
			name:               "package_derived_from_identifier",
			assignments:        legacy.Assignments{"plugin_identifier": " sample "},
			expectedIdentifier: "sample",
			expectedPackage:    "octoprint_sample",
		},
		{
			name:               "identifier_derived_from_package",
			assignments:        legacy.Assignments{"plugin_package": "octoprint_other"},
			expectedIdentifier: "other",
			expectedPackage:    "octoprint_other",
		},
		{
			name:               "numeric_version_becomes_string",
			assignments:        legacy.Assignments{"plugin_identifier": "numeric", "plugin_version": 2.5},
			expectedIdentifier: "numeric",
			expectedPackage:    "octoprint_numeric",
			expectedVersion:    "2.5",
		},
		{
			name:               "blank_requirements_removed",
			assignments:        legacy.Assignments{"plugin_identifier": "blank", "plugin_requires": []any{" ", "flask ", ""}},
			expectedIdentifier: "blank",
			expectedPackage:    "octoprint_blank",
			expectedRequires:   []string{"flask"},
		},
		{
			name:        "unrelated_assignments_ignored",
			assignments: legacy.Assignments{"something_else": map[string]any{"a": "b"}},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(parserSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			metadata, decodeError := legacy.DecodeMetadata(testCase.assignments)
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, testCase.expectedIdentifier, metadata.Identifier)
			require.Equal(testInstance, testCase.expectedPackage, metadata.Package)
			require.Equal(testInstance, testCase.expectedVersion, metadata.Version)
			require.Equal(testInstance, testCase.expectedRequires, metadata.Requires)
		})
	}
}

func TestExtractReportsMalformedScript(testInstance *testing.T) {
	_, extractError := legacy.Extract("plugin_identifier = \"broken\n")
	require.Error(testInstance, extractError)
	require.ErrorAs(testInstance, extractError, &legacy.SyntaxError{})
}
