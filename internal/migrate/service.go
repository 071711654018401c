package migrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/plugin-tool/internal/discovery"
	"github.com/temirov/plugin-tool/internal/legacy"
	"github.com/temirov/plugin-tool/internal/pyproject"
	"github.com/temirov/plugin-tool/internal/scaffold"
)

const (
	readmeFileNameConstant                  = "README.md"
	configurationFilePermissionsConstant    = 0o644
	projectPathFieldNameConstant            = "project_path"
	dryRunFieldNameConstant                 = "dry_run"
	addedKeysFieldNameConstant              = "added_keys"
	extendedKeysFieldNameConstant           = "extended_keys"
	companionFilesFieldNameConstant         = "companion_files"
	configurationWrittenFieldNameConstant   = "configuration_written"
	nothingToMigrateMessageConstant         = "No setup.py found, nothing to migrate"
	configurationUnchangedMessageConstant   = "pyproject.toml already up to date"
	migrationPlannedMessageConstant         = "Migration planned"
	migrationPerformedMessageConstant       = "Migration performed"
	fileSystemMissingMessageConstant        = "migration file system not configured"
	projectPathMissingMessageConstant       = "project path not provided"
	projectInspectionErrorTemplateConstant  = "unable to inspect project directory %s: %w"
	projectNotDirectoryErrorTemplate        = "project path %s is not a directory"
	fileInspectionErrorTemplateConstant     = "unable to inspect %s: %w"
	fileReadErrorTemplateConstant           = "unable to read %s: %w"
	metadataExtractionErrorTemplateConstant = "unable to extract metadata from %s: %w"
	existingConfigurationErrorTemplate      = "unable to load existing %s: %w"
	configurationRenderErrorTemplate        = "unable to render %s: %w"
	configurationWriteErrorTemplateConstant = "unable to write %s: %w"
	scaffolderCreationErrorTemplateConstant = "unable to prepare companion templates: %w"
	companionInspectionErrorTemplate        = "unable to inspect companion files: %w"
	companionCreationErrorTemplateConstant  = "unable to create companion files: %w"
)

var (
	errFileSystemMissing  = errors.New(fileSystemMissingMessageConstant)
	errProjectPathMissing = errors.New(projectPathMissingMessageConstant)
)

// Migrator is the single entry point consumed by callers that only need the outcome flag.
type Migrator interface {
	Migrate(projectPath string) (bool, error)
}

// MigrationExecutor performs a migration and reports its details.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error)
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger       *zap.Logger
	FileSystem   afero.Fs
	BuildOptions pyproject.BuildOptions
}

// MigrationOptions configures a single project migration.
type MigrationOptions struct {
	ProjectPath string
	DryRun      bool
}

// MigrationResult captures the observable outcomes.
type MigrationResult struct {
	ProjectPath          string
	Performed            bool
	DryRun               bool
	ConfigurationBefore  []byte
	ConfigurationAfter   []byte
	ConfigurationWritten bool
	AddedKeys            []string
	ExtendedKeys         []string
	CompanionFiles       []string
}

// ConfigurationChanged reports whether the rendered configuration differs from the file on disk.
func (result MigrationResult) ConfigurationChanged() bool {
	return !bytes.Equal(result.ConfigurationBefore, result.ConfigurationAfter)
}

// UpToDate reports a performed migration that neither rewrote pyproject.toml nor created companion files.
func (result MigrationResult) UpToDate() bool {
	return result.Performed && !result.DryRun && !result.ConfigurationWritten && len(result.CompanionFiles) == 0
}

// Service orchestrates the setup.py to pyproject.toml migration.
type Service struct {
	logger       *zap.Logger
	fileSystem   afero.Fs
	buildOptions pyproject.BuildOptions
	scaffolder   *scaffold.Scaffolder
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, errFileSystemMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scaffolder, scaffolderError := scaffold.NewScaffolder(dependencies.FileSystem, logger)
	if scaffolderError != nil {
		return nil, fmt.Errorf(scaffolderCreationErrorTemplateConstant, scaffolderError)
	}

	return &Service{
		logger:       logger,
		fileSystem:   dependencies.FileSystem,
		buildOptions: dependencies.BuildOptions,
		scaffolder:   scaffolder,
	}, nil
}

// Migrate migrates the project in projectPath and reports whether migration work was performed.
// It returns false without touching anything when the directory has no setup.py.
// An existing pyproject.toml is left byte-identical when the merge adds nothing;
// otherwise it is re-rendered in full, which keeps every field but drops comments
// and custom formatting.
func (service *Service) Migrate(projectPath string) (bool, error) {
	result, executionError := service.Execute(context.Background(), MigrationOptions{ProjectPath: projectPath})
	if executionError != nil {
		return false, executionError
	}
	return result.Performed, nil
}

// Execute runs the migration for a single project directory.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	if executionContext != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return MigrationResult{}, contextError
		}
	}

	projectPath := filepath.Clean(options.ProjectPath)
	if len(options.ProjectPath) == 0 {
		return MigrationResult{}, errProjectPathMissing
	}

	result := MigrationResult{ProjectPath: projectPath, DryRun: options.DryRun}

	projectInfo, statError := service.fileSystem.Stat(projectPath)
	if statError != nil {
		return result, fmt.Errorf(projectInspectionErrorTemplateConstant, projectPath, statError)
	}
	if !projectInfo.IsDir() {
		return result, fmt.Errorf(projectNotDirectoryErrorTemplate, projectPath)
	}

	legacyPath := filepath.Join(projectPath, discovery.LegacyBuildFileName)
	configurationPath := filepath.Join(projectPath, discovery.DeclarativeConfigurationFileName)

	legacyExists, legacyStatError := afero.Exists(service.fileSystem, legacyPath)
	if legacyStatError != nil {
		return result, fmt.Errorf(fileInspectionErrorTemplateConstant, legacyPath, legacyStatError)
	}
	if !legacyExists {
		service.logger.Debug(nothingToMigrateMessageConstant, zap.String(projectPathFieldNameConstant, projectPath))
		return result, nil
	}

	legacySource, legacyReadError := afero.ReadFile(service.fileSystem, legacyPath)
	if legacyReadError != nil {
		return result, fmt.Errorf(fileReadErrorTemplateConstant, legacyPath, legacyReadError)
	}
	metadata, extractionError := legacy.Extract(string(legacySource))
	if extractionError != nil {
		return result, fmt.Errorf(metadataExtractionErrorTemplateConstant, legacyPath, extractionError)
	}

	existingContent, configurationExists, existingReadError := service.readOptionalFile(configurationPath)
	if existingReadError != nil {
		return result, existingReadError
	}
	existingDocument, existingParseError := pyproject.Parse(existingContent)
	if existingParseError != nil {
		return result, fmt.Errorf(existingConfigurationErrorTemplate, configurationPath, existingParseError)
	}
	result.ConfigurationBefore = existingContent

	buildOptions := service.buildOptions
	if readmeExists, _ := afero.Exists(service.fileSystem, filepath.Join(projectPath, readmeFileNameConstant)); readmeExists {
		buildOptions.ReadmeFile = readmeFileNameConstant
	}

	outcome := pyproject.Merge(existingDocument, pyproject.Build(metadata, buildOptions))
	result.AddedKeys = outcome.AddedKeys
	result.ExtendedKeys = outcome.ExtendedKeys

	if configurationExists && !outcome.Changed() {
		result.ConfigurationAfter = existingContent
	} else {
		rendered, renderError := pyproject.Render(outcome.Document)
		if renderError != nil {
			return result, fmt.Errorf(configurationRenderErrorTemplate, configurationPath, renderError)
		}
		result.ConfigurationAfter = rendered
	}

	values := scaffold.NewValues(service.fileSystem, projectPath, metadata)

	if options.DryRun {
		missingCompanions, missingError := service.scaffolder.Missing(projectPath)
		if missingError != nil {
			return result, fmt.Errorf(companionInspectionErrorTemplate, missingError)
		}
		result.CompanionFiles = missingCompanions
		result.Performed = true
		service.logResult(migrationPlannedMessageConstant, result)
		return result, nil
	}

	if !configurationExists || result.ConfigurationChanged() {
		writeError := afero.WriteFile(service.fileSystem, configurationPath, result.ConfigurationAfter, fs.FileMode(configurationFilePermissionsConstant))
		if writeError != nil {
			return result, fmt.Errorf(configurationWriteErrorTemplateConstant, configurationPath, writeError)
		}
		result.ConfigurationWritten = true
	} else {
		service.logger.Debug(configurationUnchangedMessageConstant, zap.String(projectPathFieldNameConstant, projectPath))
	}

	createdCompanions, ensureError := service.scaffolder.Ensure(projectPath, values)
	result.CompanionFiles = createdCompanions
	if ensureError != nil {
		return result, fmt.Errorf(companionCreationErrorTemplateConstant, ensureError)
	}

	result.Performed = true
	service.logResult(migrationPerformedMessageConstant, result)
	return result, nil
}

func (service *Service) readOptionalFile(filePath string) ([]byte, bool, error) {
	exists, statError := afero.Exists(service.fileSystem, filePath)
	if statError != nil {
		return nil, false, fmt.Errorf(fileInspectionErrorTemplateConstant, filePath, statError)
	}
	if !exists {
		return nil, false, nil
	}
	content, readError := afero.ReadFile(service.fileSystem, filePath)
	if readError != nil {
		return nil, true, fmt.Errorf(fileReadErrorTemplateConstant, filePath, readError)
	}
	return content, true, nil
}

func (service *Service) logResult(message string, result MigrationResult) {
	service.logger.Info(
		message,
		zap.String(projectPathFieldNameConstant, result.ProjectPath),
		zap.Bool(dryRunFieldNameConstant, result.DryRun),
		zap.Bool(configurationWrittenFieldNameConstant, result.ConfigurationWritten),
		zap.Strings(addedKeysFieldNameConstant, result.AddedKeys),
		zap.Strings(extendedKeysFieldNameConstant, result.ExtendedKeys),
		zap.Strings(companionFilesFieldNameConstant, result.CompanionFiles),
	)
}
