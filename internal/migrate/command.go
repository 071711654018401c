package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/plugin-tool/internal/discovery"
	"github.com/temirov/plugin-tool/internal/pyproject"
	"github.com/temirov/plugin-tool/internal/utils"
	pathutils "github.com/temirov/plugin-tool/internal/utils/path"
)

const (
	commandUseConstant                       = "migrate [roots...]"
	commandAliasConstant                     = "to-pyproject"
	commandShortDescriptionConstant          = "Migrate plugin packaging from setup.py to pyproject.toml"
	commandLongDescriptionConstant           = "migrate discovers OctoPrint plugin projects beneath the provided roots, merges the metadata declared in setup.py into pyproject.toml without dropping existing settings, and creates MANIFEST.in and Taskfile.yml when they are missing."
	dryRunFlagNameConstant                   = "dry-run"
	dryRunFlagUsageConstant                  = "Compute the migration and print the pyproject.toml diff without writing files"
	defaultRootConstant                      = "."
	projectDiscoveryErrorTemplateConstant    = "project discovery failed: %w"
	projectMigrationErrorTemplateConstant    = "migration of %s failed: %w"
	migratedOutputTemplateConstant           = "MIGRATED %s\n"
	skippedOutputTemplateConstant            = "SKIPPED %s\n"
	upToDateOutputTemplateConstant           = "UP-TO-DATE %s\n"
	plannedOutputTemplateConstant            = "PLANNED %s\n"
	plannedCompanionsOutputTemplateConstant  = "would create: %s\n"
	companionListSeparatorConstant           = ", "
	logMessageProjectDiscoveryFailedConstant = "Project discovery failed"
	logMessageProjectMigrationFailedConstant = "Project migration failed"
	logMessageProjectSkippedConstant         = "Project has no setup.py, skipping"
	logMessageNoProjectsDiscoveredConstant   = "No plugin projects discovered"
	logFieldProjectRootsConstant             = "roots"
	logFieldProjectPathConstant              = "project"
	logMessageConfigurationSourceConstant    = "Migration configuration resolved"
	logFieldConfigurationFileConstant        = "config_file"
	logFieldDryRunConstant                   = "dry_run"
)

// ProjectDiscoverer locates plugin projects beneath provided roots.
type ProjectDiscoverer interface {
	DiscoverProjects(roots []string) ([]string, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

type commandOptions struct {
	projectRoots []string
	dryRun       bool
	buildOptions pyproject.BuildOptions
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	FileSystem            afero.Fs
	WorkingDirectory      string
	ProjectDiscoverer     ProjectDiscoverer
	ServiceProvider       ServiceProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Aliases:       []string{commandAliasConstant},
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE:          builder.runMigrate,
	}

	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	options := builder.parseOptions(command, arguments)
	logger := builder.resolveLogger()
	fileSystem := builder.resolveFileSystem()

	if configurationFilePath, available := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context()); available {
		logger.Debug(
			logMessageConfigurationSourceConstant,
			zap.String(logFieldConfigurationFileConstant, configurationFilePath),
			zap.Strings(logFieldProjectRootsConstant, options.projectRoots),
			zap.Bool(logFieldDryRunConstant, options.dryRun),
		)
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:       logger,
		FileSystem:   fileSystem,
		BuildOptions: options.buildOptions,
	})
	if serviceError != nil {
		return serviceError
	}

	projects, discoveryError := builder.resolveProjectDiscoverer(fileSystem).DiscoverProjects(options.projectRoots)
	if discoveryError != nil {
		logger.Error(
			logMessageProjectDiscoveryFailedConstant,
			zap.Strings(logFieldProjectRootsConstant, options.projectRoots),
			zap.Error(discoveryError),
		)
		return fmt.Errorf(projectDiscoveryErrorTemplateConstant, discoveryError)
	}
	if len(projects) == 0 {
		logger.Info(logMessageNoProjectsDiscoveredConstant, zap.Strings(logFieldProjectRootsConstant, options.projectRoots))
		return nil
	}

	output := command.OutOrStdout()
	var migrationErrors []error

	for _, projectPath := range projects {
		normalizedProjectPath := filepath.Clean(projectPath)

		result, migrationError := service.Execute(command.Context(), MigrationOptions{
			ProjectPath: normalizedProjectPath,
			DryRun:      options.dryRun,
		})
		if migrationError != nil {
			if errors.Is(migrationError, context.Canceled) || errors.Is(migrationError, context.DeadlineExceeded) {
				return migrationError
			}
			wrappedError := fmt.Errorf(projectMigrationErrorTemplateConstant, normalizedProjectPath, migrationError)
			logger.Warn(
				logMessageProjectMigrationFailedConstant,
				zap.String(logFieldProjectPathConstant, normalizedProjectPath),
				zap.Error(wrappedError),
			)
			migrationErrors = append(migrationErrors, wrappedError)
			continue
		}

		builder.reportResult(output, logger, result)
	}

	if len(migrationErrors) > 0 {
		return errors.Join(migrationErrors...)
	}

	return nil
}

func (builder *CommandBuilder) reportResult(output io.Writer, logger *zap.Logger, result MigrationResult) {
	switch {
	case !result.Performed:
		logger.Debug(logMessageProjectSkippedConstant, zap.String(logFieldProjectPathConstant, result.ProjectPath))
		fmt.Fprintf(output, skippedOutputTemplateConstant, result.ProjectPath)
	case result.DryRun:
		fmt.Fprintf(output, plannedOutputTemplateConstant, result.ProjectPath)
		if result.ConfigurationChanged() {
			fmt.Fprint(output, RenderConfigurationDiff(result.ConfigurationBefore, result.ConfigurationAfter))
		}
		if len(result.CompanionFiles) > 0 {
			fmt.Fprintf(output, plannedCompanionsOutputTemplateConstant, strings.Join(result.CompanionFiles, companionListSeparatorConstant))
		}
	case result.UpToDate():
		fmt.Fprintf(output, upToDateOutputTemplateConstant, result.ProjectPath)
	default:
		fmt.Fprintf(output, migratedOutputTemplateConstant, result.ProjectPath)
	}
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) commandOptions {
	configuration := builder.resolveConfiguration()

	projectRoots := pathutils.NewProjectPathSanitizerWithConfiguration(nil, pathutils.ProjectPathSanitizerConfiguration{
		ExcludeBooleanLiteralCandidates: true,
		PruneNestedPaths:                true,
	}).Sanitize(arguments)
	if len(projectRoots) == 0 {
		projectRoots = configuration.ProjectRoots
	}
	if len(projectRoots) == 0 {
		projectRoots = []string{builder.resolveWorkingDirectory()}
	}

	dryRun := configuration.DryRun
	if command != nil && command.Flags().Changed(dryRunFlagNameConstant) {
		flagValue, flagError := command.Flags().GetBool(dryRunFlagNameConstant)
		if flagError == nil {
			dryRun = flagValue
		}
	}

	return commandOptions{
		projectRoots: projectRoots,
		dryRun:       dryRun,
		buildOptions: configuration.BuildOptions(),
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
}

func (builder *CommandBuilder) resolveWorkingDirectory() string {
	workingDirectory := strings.TrimSpace(builder.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return defaultRootConstant
	}
	return workingDirectory
}

func (builder *CommandBuilder) resolveProjectDiscoverer(fileSystem afero.Fs) ProjectDiscoverer {
	if builder.ProjectDiscoverer != nil {
		return builder.ProjectDiscoverer
	}
	return discovery.NewFilesystemProjectDiscoverer(fileSystem)
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}
