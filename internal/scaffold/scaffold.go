package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/plugin-tool/internal/legacy"
)

const (
	// ManifestFileName is the source distribution manifest.
	ManifestFileName = "MANIFEST.in"
	// TaskfileFileName is the task runner definition.
	TaskfileFileName = "Taskfile.yml"

	templatesDirectoryConstant       = "templates"
	templateExtensionConstant        = ".tmpl"
	templateLeftDelimiterConstant    = "[["
	templateRightDelimiterConstant   = "]]"
	companionFilePermissionsConstant = 0o644
	templateParseErrorTemplate       = "unable to parse companion templates: %w"
	templateRenderErrorTemplate      = "unable to render %s: %w"
	templateValidationErrorTemplate  = "rendered %s is invalid: %w"
	companionStatErrorTemplate       = "unable to inspect %s: %w"
	companionWriteErrorTemplate      = "unable to write %s: %w"
	fileSystemMissingMessageConstant = "scaffold file system not configured"
	companionCreatedMessageConstant  = "Companion file created"
	companionPresentMessageConstant  = "Companion file already present"
	logFieldCompanionPathConstant    = "path"
	unknownCompanionFileTemplate     = "unknown companion file %s"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

var errFileSystemMissing = errors.New(fileSystemMissingMessageConstant)

// CompanionFileNames lists the files Ensure maintains, in creation order.
var CompanionFileNames = []string{ManifestFileName, TaskfileFileName}

var companionValidators = map[string]func([]byte) error{
	TaskfileFileName: validateYAML,
}

// Values parameterizes the companion templates.
type Values struct {
	Identifier            string
	Package               string
	Name                  string
	AdditionalDirectories []string
	AdditionalFiles       []string
}

// NewValues derives template values from plugin metadata. Additional data
// entries are classified as directories or files by inspecting directory.
func NewValues(fileSystem afero.Fs, directory string, metadata legacy.Metadata) Values {
	values := Values{
		Identifier: metadata.Identifier,
		Package:    metadata.Package,
		Name:       metadata.Name,
	}

	for _, dataEntry := range metadata.AdditionalData {
		cleanedEntry := path.Clean(filepath.ToSlash(dataEntry))
		isDirectory := false
		if fileSystem != nil {
			isDirectory, _ = afero.IsDir(fileSystem, filepath.Join(directory, filepath.FromSlash(cleanedEntry)))
		}
		if isDirectory {
			values.AdditionalDirectories = append(values.AdditionalDirectories, cleanedEntry)
			continue
		}
		values.AdditionalFiles = append(values.AdditionalFiles, cleanedEntry)
	}

	return values
}

// Scaffolder renders and writes companion files.
type Scaffolder struct {
	fileSystem afero.Fs
	logger     *zap.Logger
	templates  *template.Template
}

// NewScaffolder parses the embedded templates.
func NewScaffolder(fileSystem afero.Fs, logger *zap.Logger) (*Scaffolder, error) {
	if fileSystem == nil {
		return nil, errFileSystemMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	templates, parseError := template.New(templatesDirectoryConstant).
		Delims(templateLeftDelimiterConstant, templateRightDelimiterConstant).
		Option("missingkey=error").
		ParseFS(embeddedTemplates, path.Join(templatesDirectoryConstant, "*"+templateExtensionConstant))
	if parseError != nil {
		return nil, fmt.Errorf(templateParseErrorTemplate, parseError)
	}

	return &Scaffolder{fileSystem: fileSystem, logger: logger, templates: templates}, nil
}

// Render produces the content of one companion file.
func (scaffolder *Scaffolder) Render(fileName string, values Values) ([]byte, error) {
	companionTemplate := scaffolder.templates.Lookup(fileName + templateExtensionConstant)
	if companionTemplate == nil {
		return nil, fmt.Errorf(unknownCompanionFileTemplate, fileName)
	}

	var buffer bytes.Buffer
	if executeError := companionTemplate.Execute(&buffer, values); executeError != nil {
		return nil, fmt.Errorf(templateRenderErrorTemplate, fileName, executeError)
	}

	if validator, exists := companionValidators[fileName]; exists {
		if validationError := validator(buffer.Bytes()); validationError != nil {
			return nil, fmt.Errorf(templateValidationErrorTemplate, fileName, validationError)
		}
	}

	return buffer.Bytes(), nil
}

// Missing lists the companion files absent from directory.
func (scaffolder *Scaffolder) Missing(directory string) ([]string, error) {
	var missing []string
	for _, fileName := range CompanionFileNames {
		companionPath := filepath.Join(directory, fileName)
		exists, statError := afero.Exists(scaffolder.fileSystem, companionPath)
		if statError != nil {
			return nil, fmt.Errorf(companionStatErrorTemplate, companionPath, statError)
		}
		if !exists {
			missing = append(missing, fileName)
		}
	}
	return missing, nil
}

// Ensure writes every missing companion file and returns the names it created.
func (scaffolder *Scaffolder) Ensure(directory string, values Values) ([]string, error) {
	missing, missingError := scaffolder.Missing(directory)
	if missingError != nil {
		return nil, missingError
	}

	missingSet := make(map[string]struct{}, len(missing))
	for _, fileName := range missing {
		missingSet[fileName] = struct{}{}
	}

	var created []string
	for _, fileName := range CompanionFileNames {
		companionPath := filepath.Join(directory, fileName)
		if _, isMissing := missingSet[fileName]; !isMissing {
			scaffolder.logger.Debug(companionPresentMessageConstant, zap.String(logFieldCompanionPathConstant, companionPath))
			continue
		}

		content, renderError := scaffolder.Render(fileName, values)
		if renderError != nil {
			return created, renderError
		}

		if writeError := afero.WriteFile(scaffolder.fileSystem, companionPath, content, fs.FileMode(companionFilePermissionsConstant)); writeError != nil {
			return created, fmt.Errorf(companionWriteErrorTemplate, companionPath, writeError)
		}

		scaffolder.logger.Info(companionCreatedMessageConstant, zap.String(logFieldCompanionPathConstant, companionPath))
		created = append(created, fileName)
	}

	return created, nil
}

func validateYAML(content []byte) error {
	var document map[string]any
	return yaml.Unmarshal(content, &document)
}
