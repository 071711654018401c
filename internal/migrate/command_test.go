package migrate_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	migrate "github.com/temirov/plugin-tool/internal/migrate"
)

const (
	workspaceRootConstant              = "/workspace"
	legacyProjectPathConstant          = "/workspace/OctoPrint-Legacy"
	modernProjectPathConstant          = "/workspace/OctoPrint-Modern"
	brokenProjectPathConstant          = "/workspace/OctoPrint-Broken"
	configuredRootConstant             = "/configured"
	cliRootConstant                    = "/cli"
	dryRunFlagArgumentConstant         = "--dry-run"
	commandSubtestNameTemplateConstant = "%d_%s"
	migrationFailureLogMessageConstant = "Project migration failed"
	discoveryFailureLogMessageConstant = "Project discovery failed"
	minimalLegacyContentConstant       = "plugin_identifier = \"legacy\"\nplugin_package = \"octoprint_legacy\"\nplugin_name = \"OctoPrint-Legacy\"\nplugin_version = \"1.0.0\"\n"
	modernConfigurationContentConstant = "[project]\nname = \"OctoPrint-Modern\"\n"
	brokenLegacyContentConstant        = "plugin_requires = [\"unterminated\"\n"
)

type projectDiscovererStub struct {
	projects       []string
	discoveryError error
	receivedRoots  []string
}

func (discoverer *projectDiscovererStub) DiscoverProjects(roots []string) ([]string, error) {
	discoverer.receivedRoots = append([]string{}, roots...)
	if discoverer.discoveryError != nil {
		return nil, discoverer.discoveryError
	}
	return append([]string{}, discoverer.projects...), nil
}

type migrationExecutorStub struct {
	executedOptions []migrate.MigrationOptions
}

func (executor *migrationExecutorStub) Execute(_ context.Context, options migrate.MigrationOptions) (migrate.MigrationResult, error) {
	executor.executedOptions = append(executor.executedOptions, options)
	return migrate.MigrationResult{ProjectPath: options.ProjectPath, DryRun: options.DryRun}, nil
}

func seedCommandWorkspace(testInstance *testing.T) afero.Fs {
	testInstance.Helper()

	fileSystem := afero.NewMemMapFs()
	files := map[string]string{
		filepath.Join(legacyProjectPathConstant, legacyFileNameConstant):        minimalLegacyContentConstant,
		filepath.Join(modernProjectPathConstant, configurationFileNameConstant): modernConfigurationContentConstant,
	}
	for filePath, content := range files {
		require.NoError(testInstance, fileSystem.MkdirAll(filepath.Dir(filePath), fixtureDirectoryPermissionsConstant))
		require.NoError(testInstance, afero.WriteFile(fileSystem, filePath, []byte(content), fixtureFilePermissionsConstant))
	}
	return fileSystem
}

func executeCommand(testInstance *testing.T, builder *migrate.CommandBuilder, arguments []string) (string, error) {
	testInstance.Helper()

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&output)
	command.SetArgs(arguments)
	command.SetContext(context.Background())

	executionError := command.Execute()
	return output.String(), executionError
}

func TestMigrateCommandReportsEachProject(testInstance *testing.T) {
	fileSystem := seedCommandWorkspace(testInstance)
	builder := &migrate.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		FileSystem:     fileSystem,
	}

	output, executionError := executeCommand(testInstance, builder, []string{workspaceRootConstant})
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, "MIGRATED "+legacyProjectPathConstant+"\nSKIPPED "+modernProjectPathConstant+"\n", output)

	for _, fileName := range []string{configurationFileNameConstant, manifestFileNameConstant, taskfileFileNameConstant} {
		requireExists(testInstance, fileSystem, filepath.Join(legacyProjectPathConstant, fileName), true)
	}
	requireExists(testInstance, fileSystem, filepath.Join(modernProjectPathConstant, manifestFileNameConstant), false)
}

func TestMigrateCommandReportsUpToDateProjects(testInstance *testing.T) {
	fileSystem := seedCommandWorkspace(testInstance)
	builder := &migrate.CommandBuilder{FileSystem: fileSystem}

	_, firstError := executeCommand(testInstance, builder, []string{workspaceRootConstant})
	require.NoError(testInstance, firstError)
	migratedConfiguration, readError := afero.ReadFile(fileSystem, filepath.Join(legacyProjectPathConstant, configurationFileNameConstant))
	require.NoError(testInstance, readError)

	output, secondError := executeCommand(testInstance, builder, []string{workspaceRootConstant})
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, "UP-TO-DATE "+legacyProjectPathConstant+"\nSKIPPED "+modernProjectPathConstant+"\n", output)

	currentConfiguration, currentReadError := afero.ReadFile(fileSystem, filepath.Join(legacyProjectPathConstant, configurationFileNameConstant))
	require.NoError(testInstance, currentReadError)
	require.Equal(testInstance, string(migratedConfiguration), string(currentConfiguration))
}

func TestMigrateCommandDryRunPrintsPlan(testInstance *testing.T) {
	fileSystem := seedCommandWorkspace(testInstance)
	builder := &migrate.CommandBuilder{FileSystem: fileSystem}

	output, executionError := executeCommand(testInstance, builder, []string{dryRunFlagArgumentConstant, legacyProjectPathConstant})
	require.NoError(testInstance, executionError)

	require.True(testInstance, strings.HasPrefix(output, "PLANNED "+legacyProjectPathConstant+"\n"))
	require.Contains(testInstance, output, "+ name = ")
	require.Contains(testInstance, output, "OctoPrint-Legacy")
	require.Contains(testInstance, output, "would create: MANIFEST.in, Taskfile.yml\n")

	requireExists(testInstance, fileSystem, filepath.Join(legacyProjectPathConstant, configurationFileNameConstant), false)
	requireExists(testInstance, fileSystem, filepath.Join(legacyProjectPathConstant, manifestFileNameConstant), false)
}

func TestMigrateCommandContinuesAfterFailures(testInstance *testing.T) {
	fileSystem := seedCommandWorkspace(testInstance)
	brokenLegacyPath := filepath.Join(brokenProjectPathConstant, legacyFileNameConstant)
	require.NoError(testInstance, fileSystem.MkdirAll(brokenProjectPathConstant, fixtureDirectoryPermissionsConstant))
	require.NoError(testInstance, afero.WriteFile(fileSystem, brokenLegacyPath, []byte(brokenLegacyContentConstant), fixtureFilePermissionsConstant))

	observerCore, observedLogs := observer.New(zapcore.InfoLevel)
	builder := &migrate.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.New(observerCore) },
		FileSystem:     fileSystem,
	}

	output, executionError := executeCommand(testInstance, builder, []string{workspaceRootConstant})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), brokenProjectPathConstant)

	require.Contains(testInstance, output, "MIGRATED "+legacyProjectPathConstant+"\n")
	require.Contains(testInstance, output, "SKIPPED "+modernProjectPathConstant+"\n")

	failureEntries := observedLogs.FilterMessage(migrationFailureLogMessageConstant).All()
	require.Len(testInstance, failureEntries, 1)
	require.Equal(testInstance, brokenProjectPathConstant, failureEntries[0].ContextMap()["project"])
}

func TestMigrateCommandResolvesRoots(testInstance *testing.T) {
	testCases := []struct {
		name             string
		arguments        []string
		configuration    migrate.CommandConfiguration
		workingDirectory string
		expectedRoots    []string
		expectedDryRun   bool
	}{
		{
			name:          "arguments_take_priority",
			arguments:     []string{cliRootConstant},
			configuration: migrate.CommandConfiguration{ProjectRoots: []string{configuredRootConstant}},
			expectedRoots: []string{cliRootConstant},
		},
		{
			name:           "configuration_roots_used_without_arguments",
			configuration:  migrate.CommandConfiguration{ProjectRoots: []string{" " + configuredRootConstant + " "}, DryRun: true},
			expectedRoots:  []string{configuredRootConstant},
			expectedDryRun: true,
		},
		{
			name:             "working_directory_fallback",
			workingDirectory: workspaceRootConstant,
			expectedRoots:    []string{workspaceRootConstant},
		},
		{
			name:           "flag_overrides_configuration",
			arguments:      []string{dryRunFlagArgumentConstant + "=false", cliRootConstant},
			configuration:  migrate.CommandConfiguration{DryRun: true},
			expectedRoots:  []string{cliRootConstant},
			expectedDryRun: false,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(commandSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			discoverer := &projectDiscovererStub{projects: []string{legacyProjectPathConstant}}
			executor := &migrationExecutorStub{}
			configuration := testCase.configuration

			builder := &migrate.CommandBuilder{
				FileSystem:        afero.NewMemMapFs(),
				WorkingDirectory:  testCase.workingDirectory,
				ProjectDiscoverer: discoverer,
				ServiceProvider: func(migrate.ServiceDependencies) (migrate.MigrationExecutor, error) {
					return executor, nil
				},
				ConfigurationProvider: func() migrate.CommandConfiguration {
					return configuration
				},
			}

			_, executionError := executeCommand(testInstance, builder, testCase.arguments)
			require.NoError(testInstance, executionError)
			require.Equal(testInstance, testCase.expectedRoots, discoverer.receivedRoots)
			require.Len(testInstance, executor.executedOptions, 1)
			require.Equal(testInstance, testCase.expectedDryRun, executor.executedOptions[0].DryRun)
		})
	}
}

func TestMigrateCommandPassesConfiguredBuildOptions(testInstance *testing.T) {
	var receivedDependencies migrate.ServiceDependencies
	builder := &migrate.CommandBuilder{
		FileSystem:        afero.NewMemMapFs(),
		ProjectDiscoverer: &projectDiscovererStub{},
		ServiceProvider: func(dependencies migrate.ServiceDependencies) (migrate.MigrationExecutor, error) {
			receivedDependencies = dependencies
			return &migrationExecutorStub{}, nil
		},
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return migrate.CommandConfiguration{RequiresPython: ">=3.9", BuildRequires: []string{"setuptools>=68"}}
		},
	}

	_, executionError := executeCommand(testInstance, builder, []string{cliRootConstant})
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, ">=3.9", receivedDependencies.BuildOptions.RequiresPython)
	require.Equal(testInstance, []string{"setuptools>=68"}, receivedDependencies.BuildOptions.BuildRequires)
	require.Equal(testInstance, []string{"go-task-bin"}, receivedDependencies.BuildOptions.DevelopDependencies)
}

func TestMigrateCommandSurfacesDiscoveryFailure(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.ErrorLevel)
	builder := &migrate.CommandBuilder{
		LoggerProvider:    func() *zap.Logger { return zap.New(observerCore) },
		FileSystem:        afero.NewMemMapFs(),
		ProjectDiscoverer: &projectDiscovererStub{discoveryError: errors.New("walk failed")},
	}

	_, executionError := executeCommand(testInstance, builder, []string{cliRootConstant})
	require.Error(testInstance, executionError)
	require.Len(testInstance, observedLogs.FilterMessage(discoveryFailureLogMessageConstant).All(), 1)
}

func TestRenderConfigurationDiffMarksChangedLines(testInstance *testing.T) {
	rendered := migrate.RenderConfigurationDiff([]byte("[project]\nname = \"a\"\n"), []byte("[project]\nname = \"b\"\nversion = \"1\"\n"))

	require.Contains(testInstance, rendered, "  [project]\n")
	require.Contains(testInstance, rendered, "- name = \"a\"\n")
	require.Contains(testInstance, rendered, "+ name = \"b\"\n")
	require.Contains(testInstance, rendered, "+ version = \"1\"\n")
}
