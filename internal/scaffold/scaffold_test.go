package scaffold_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/plugin-tool/internal/legacy"
	"github.com/temirov/plugin-tool/internal/scaffold"
)

const (
	scaffoldSubtestNameTemplateConstant = "%d_%s"
	projectDirectoryConstant            = "/work/plugin"
	existingManifestContentConstant     = "include LICENSE\n"
)

func sampleValues() scaffold.Values {
	return scaffold.Values{Identifier: "sample", Package: "octoprint_sample", Name: "OctoPrint-Sample"}
}

func TestRenderManifest(testInstance *testing.T) {
	scaffolder, creationError := scaffold.NewScaffolder(afero.NewMemMapFs(), zap.NewNop())
	require.NoError(testInstance, creationError)

	values := sampleValues()
	values.AdditionalDirectories = []string{"extras"}
	values.AdditionalFiles = []string{"data/config.json"}

	content, renderError := scaffolder.Render(scaffold.ManifestFileName, values)
	require.NoError(testInstance, renderError)

	expected := "include README.md\n" +
		"recursive-include octoprint_sample/templates *\n" +
		"recursive-include octoprint_sample/translations *\n" +
		"recursive-include octoprint_sample/static *\n" +
		"graft extras\n" +
		"include data/config.json\n"
	require.Equal(testInstance, expected, string(content))
}

func TestRenderTaskfileProducesValidYAML(testInstance *testing.T) {
	scaffolder, creationError := scaffold.NewScaffolder(afero.NewMemMapFs(), zap.NewNop())
	require.NoError(testInstance, creationError)

	content, renderError := scaffolder.Render(scaffold.TaskfileFileName, sampleValues())
	require.NoError(testInstance, renderError)

	var taskfile struct {
		Version string         `yaml:"version"`
		Env     map[string]any `yaml:"env"`
		Tasks   map[string]any `yaml:"tasks"`
	}
	require.NoError(testInstance, yaml.Unmarshal(content, &taskfile))
	require.Equal(testInstance, "3", taskfile.Version)
	require.Equal(testInstance, "octoprint_sample/translations", taskfile.Env["TRANSLATIONS"])
	require.Contains(testInstance, taskfile.Tasks, "install")
	require.Contains(testInstance, taskfile.Tasks, "babel-bundle")
	require.Contains(testInstance, string(content), "{{ .ITEM }}")
}

func TestRenderUnknownFile(testInstance *testing.T) {
	scaffolder, creationError := scaffold.NewScaffolder(afero.NewMemMapFs(), zap.NewNop())
	require.NoError(testInstance, creationError)

	_, renderError := scaffolder.Render("setup.cfg", sampleValues())
	require.Error(testInstance, renderError)
}

func TestEnsureCreatesOnlyMissingFiles(testInstance *testing.T) {
	testCases := []struct {
		name            string
		existingFiles   map[string]string
		expectedCreated []string
	}{
		{
			name:            "creates_both_files",
			existingFiles:   map[string]string{},
			expectedCreated: []string{scaffold.ManifestFileName, scaffold.TaskfileFileName},
		},
		{
			name:            "keeps_existing_manifest",
			existingFiles:   map[string]string{scaffold.ManifestFileName: existingManifestContentConstant},
			expectedCreated: []string{scaffold.TaskfileFileName},
		},
		{
			name: "keeps_everything",
			existingFiles: map[string]string{
				scaffold.ManifestFileName: existingManifestContentConstant,
				scaffold.TaskfileFileName: "version: \"3\"\n",
			},
			expectedCreated: nil,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(scaffoldSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			require.NoError(testInstance, fileSystem.MkdirAll(projectDirectoryConstant, 0o755))
			for fileName, content := range testCase.existingFiles {
				require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(projectDirectoryConstant, fileName), []byte(content), 0o644))
			}

			scaffolder, creationError := scaffold.NewScaffolder(fileSystem, zap.NewNop())
			require.NoError(testInstance, creationError)

			created, ensureError := scaffolder.Ensure(projectDirectoryConstant, sampleValues())
			require.NoError(testInstance, ensureError)
			require.Equal(testInstance, testCase.expectedCreated, created)

			for fileName, content := range testCase.existingFiles {
				currentContent, readError := afero.ReadFile(fileSystem, filepath.Join(projectDirectoryConstant, fileName))
				require.NoError(testInstance, readError)
				require.Equal(testInstance, content, string(currentContent))
			}

			missing, missingError := scaffolder.Missing(projectDirectoryConstant)
			require.NoError(testInstance, missingError)
			require.Empty(testInstance, missing)
		})
	}
}

func TestNewValuesClassifiesAdditionalData(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(projectDirectoryConstant, "extras"), 0o755))

	metadata := legacy.Metadata{
		Identifier:     "sample",
		Package:        "octoprint_sample",
		AdditionalData: []string{"extras/", "data/config.json"},
	}

	values := scaffold.NewValues(fileSystem, projectDirectoryConstant, metadata)
	require.Equal(testInstance, []string{"extras"}, values.AdditionalDirectories)
	require.Equal(testInstance, []string{"data/config.json"}, values.AdditionalFiles)
	require.Equal(testInstance, "octoprint_sample", values.Package)
}

func TestNewScaffolderRequiresFileSystem(testInstance *testing.T) {
	_, creationError := scaffold.NewScaffolder(nil, zap.NewNop())
	require.Error(testInstance, creationError)
}
