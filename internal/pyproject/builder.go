package pyproject

import (
	"strings"

	"github.com/temirov/plugin-tool/internal/legacy"
)

const (
	setuptoolsBuildBackendConstant    = "setuptools.build_meta"
	pluginEntryPointGroupConstant     = "octoprint.plugin"
	consoleScriptsGroupConstant       = "console_scripts"
	guiScriptsGroupConstant           = "gui_scripts"
	homepageURLKeyConstant            = "Homepage"
	packageWildcardSuffixConstant     = ".*"
	entryPointAssignmentSeparator     = "="
	setupParameterPythonRequires      = "python_requires"
	setupParameterInstallRequires     = "install_requires"
	setupParameterExtrasRequire       = "extras_require"
	setupParameterEntryPointsName     = "entry_points"
	setupParameterClassifiers         = "classifiers"
	setupParameterKeywordsName        = "keywords"
	setupParameterLicense             = "license"
	keywordSeparatorCharacters        = ", "
	defaultRequiresPythonConstant     = ">=3.7,<4"
	defaultDevelopExtraNameConstant   = "develop"
	defaultDevelopDependencyConstant  = "go-task-bin"
	defaultSetuptoolsRequirementConst = "setuptools>=67"
	defaultWheelRequirementConstant   = "wheel"
	includePackageDataKeyConstant     = "include-package-data"
	packagesKeyConstant               = "packages"
	findKeyConstant                   = "find"
	includeKeyConstant                = "include"
	excludeKeyConstant                = "exclude"
	toolTableConstant                 = "tool"
	setuptoolsTableConstant           = "setuptools"
	buildBackendKeyConstant           = "build-backend"
	nameKeyConstant                   = "name"
	versionKeyConstant                = "version"
	descriptionKeyConstant            = "description"
	authorsKeyConstant                = "authors"
	emailKeyConstant                  = "email"
	licenseKeyConstant                = "license"
	textKeyConstant                   = "text"
	requiresPythonKeyConstant         = "requires-python"
	readmeKeyConstant                 = "readme"
	classifiersKeyConstant            = "classifiers"
	keywordsKeyConstant               = "keywords"
	entryPointsKeyConstant            = "entry-points"
	scriptsKeyConstant                = "scripts"
	guiScriptsKeyConstant             = "gui-scripts"
	urlsKeyConstant                   = "urls"
)

// BuildOptions carries defaults for values setup.py usually does not declare.
type BuildOptions struct {
	RequiresPython      string
	BuildRequires       []string
	DevelopDependencies []string
	ReadmeFile          string
}

// DefaultBuildOptions returns the options used when nothing is configured.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		RequiresPython:      defaultRequiresPythonConstant,
		BuildRequires:       []string{defaultSetuptoolsRequirementConst, defaultWheelRequirementConstant},
		DevelopDependencies: []string{defaultDevelopDependencyConstant},
	}
}

// Build derives the pyproject.toml tables describing the plugin in metadata.
func Build(metadata legacy.Metadata, options BuildOptions) Document {
	document := Document{
		buildSystemTableConstant: map[string]any{
			buildRequiresKeyConstant: stringsToArray(options.BuildRequires),
			buildBackendKeyConstant:  setuptoolsBuildBackendConstant,
		},
		projectTableConstant: buildProjectTable(metadata, options),
		toolTableConstant: map[string]any{
			setuptoolsTableConstant: buildSetuptoolsTable(metadata),
		},
	}
	return document
}

func buildProjectTable(metadata legacy.Metadata, options BuildOptions) map[string]any {
	project := map[string]any{}

	name := metadata.Name
	if len(name) == 0 {
		name = metadata.Identifier
	}
	setIfPresent(project, nameKeyConstant, name)
	setIfPresent(project, versionKeyConstant, metadata.Version)
	setIfPresent(project, descriptionKeyConstant, collapseWhitespace(metadata.Description))

	if author := buildAuthor(metadata); len(author) > 0 {
		project[authorsKeyConstant] = []any{author}
	}

	license := metadata.License
	if len(license) == 0 {
		license = setupParameterString(metadata, setupParameterLicense)
	}
	if len(license) > 0 {
		project[licenseKeyConstant] = map[string]any{textKeyConstant: license}
	}

	requiresPython := setupParameterString(metadata, setupParameterPythonRequires)
	if len(requiresPython) == 0 {
		requiresPython = options.RequiresPython
	}
	setIfPresent(project, requiresPythonKeyConstant, requiresPython)

	dependencies := appendUnique(nil, metadata.Requires...)
	dependencies = appendUnique(dependencies, setupParameterStrings(metadata, setupParameterInstallRequires)...)
	project[dependenciesKeyConstant] = stringsToArray(dependencies)

	if len(options.ReadmeFile) > 0 {
		project[readmeKeyConstant] = options.ReadmeFile
	}

	if classifiers := setupParameterStrings(metadata, setupParameterClassifiers); len(classifiers) > 0 {
		project[classifiersKeyConstant] = stringsToArray(classifiers)
	}
	if keywords := setupParameterKeywords(metadata); len(keywords) > 0 {
		project[keywordsKeyConstant] = stringsToArray(keywords)
	}

	entryPoints := map[string]any{}
	if len(metadata.Identifier) > 0 && len(metadata.Package) > 0 {
		entryPoints[pluginEntryPointGroupConstant] = map[string]any{metadata.Identifier: metadata.Package}
	}
	for group, definitions := range setupParameterEntryPoints(metadata) {
		switch group {
		case consoleScriptsGroupConstant:
			project[scriptsKeyConstant] = definitions
		case guiScriptsGroupConstant:
			project[guiScriptsKeyConstant] = definitions
		default:
			if existingGroup, exists := entryPoints[group].(map[string]any); exists {
				for entryName, target := range definitions {
					if _, defined := existingGroup[entryName]; !defined {
						existingGroup[entryName] = target
					}
				}
				continue
			}
			entryPoints[group] = definitions
		}
	}
	if len(entryPoints) > 0 {
		project[entryPointsKeyConstant] = entryPoints
	}

	if len(metadata.URL) > 0 {
		project[urlsKeyConstant] = map[string]any{homepageURLKeyConstant: metadata.URL}
	}

	optionalDependencies := map[string]any{}
	if len(options.DevelopDependencies) > 0 {
		optionalDependencies[defaultDevelopExtraNameConstant] = stringsToArray(options.DevelopDependencies)
	}
	for extraName, requirements := range setupParameterExtras(metadata) {
		if existingRequirements, exists := optionalDependencies[extraName].([]any); exists {
			merged, _ := unionArrays(existingRequirements, stringsToArray(requirements), true)
			optionalDependencies[extraName] = merged
			continue
		}
		optionalDependencies[extraName] = stringsToArray(requirements)
	}
	if len(optionalDependencies) > 0 {
		project[optionalDependenciesKeyConstant] = optionalDependencies
	}

	return project
}

func buildAuthor(metadata legacy.Metadata) map[string]any {
	author := map[string]any{}
	setIfPresent(author, nameKeyConstant, metadata.Author)
	setIfPresent(author, emailKeyConstant, metadata.AuthorEmail)
	return author
}

func buildSetuptoolsTable(metadata legacy.Metadata) map[string]any {
	setuptools := map[string]any{includePackageDataKeyConstant: true}

	var includes []string
	if len(metadata.Package) > 0 {
		includes = append(includes, metadata.Package, metadata.Package+packageWildcardSuffixConstant)
	}
	for _, additionalPackage := range metadata.AdditionalPackages {
		includes = appendUnique(includes, additionalPackage, additionalPackage+packageWildcardSuffixConstant)
	}
	if len(includes) == 0 {
		return setuptools
	}

	find := map[string]any{includeKeyConstant: stringsToArray(includes)}
	if len(metadata.IgnoredPackages) > 0 {
		find[excludeKeyConstant] = stringsToArray(metadata.IgnoredPackages)
	}
	setuptools[packagesKeyConstant] = map[string]any{findKeyConstant: find}
	return setuptools
}

func setupParameterString(metadata legacy.Metadata, name string) string {
	value, exists := metadata.SetupParameter(name)
	if !exists {
		return ""
	}
	text, isText := value.(string)
	if !isText {
		return ""
	}
	return strings.TrimSpace(text)
}

func setupParameterStrings(metadata legacy.Metadata, name string) []string {
	value, exists := metadata.SetupParameter(name)
	if !exists {
		return nil
	}
	return toStrings(value)
}

func setupParameterKeywords(metadata legacy.Metadata) []string {
	value, exists := metadata.SetupParameter(setupParameterKeywordsName)
	if !exists {
		return nil
	}
	if text, isText := value.(string); isText {
		return strings.FieldsFunc(text, func(candidate rune) bool {
			return strings.ContainsRune(keywordSeparatorCharacters, candidate)
		})
	}
	return toStrings(value)
}

func setupParameterExtras(metadata legacy.Metadata) map[string][]string {
	value, exists := metadata.SetupParameter(setupParameterExtrasRequire)
	if !exists {
		return nil
	}
	table, isTable := value.(map[string]any)
	if !isTable {
		return nil
	}
	extras := make(map[string][]string, len(table))
	for extraName, requirements := range table {
		extras[extraName] = toStrings(requirements)
	}
	return extras
}

// setupParameterEntryPoints converts setuptools entry point declarations
// ("name = module:attribute" strings per group) into name to target tables.
func setupParameterEntryPoints(metadata legacy.Metadata) map[string]map[string]any {
	value, exists := metadata.SetupParameter(setupParameterEntryPointsName)
	if !exists {
		return nil
	}
	table, isTable := value.(map[string]any)
	if !isTable {
		return nil
	}

	groups := make(map[string]map[string]any, len(table))
	for group, declarations := range table {
		definitions := map[string]any{}
		for _, declaration := range toStrings(declarations) {
			entryName, target, found := strings.Cut(declaration, entryPointAssignmentSeparator)
			if !found {
				continue
			}
			entryName = strings.TrimSpace(entryName)
			target = strings.TrimSpace(target)
			if len(entryName) == 0 || len(target) == 0 {
				continue
			}
			definitions[entryName] = target
		}
		if len(definitions) > 0 {
			groups[group] = definitions
		}
	}
	return groups
}

func toStrings(value any) []string {
	switch typedValue := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typedValue)
		if len(trimmed) == 0 {
			return nil
		}
		return []string{trimmed}
	case []string:
		return appendUnique(nil, typedValue...)
	case []any:
		var collected []string
		for _, entry := range typedValue {
			if text, isText := entry.(string); isText {
				collected = appendUnique(collected, text)
			}
		}
		return collected
	}
	return nil
}

func appendUnique(values []string, additions ...string) []string {
	for _, addition := range additions {
		trimmed := strings.TrimSpace(addition)
		if len(trimmed) == 0 {
			continue
		}
		duplicate := false
		for _, existing := range values {
			if existing == trimmed {
				duplicate = true
				break
			}
		}
		if !duplicate {
			values = append(values, trimmed)
		}
	}
	return values
}

func stringsToArray(values []string) []any {
	array := make([]any, 0, len(values))
	for _, value := range values {
		array = append(array, value)
	}
	return array
}

func setIfPresent(table map[string]any, key string, value string) {
	if len(strings.TrimSpace(value)) == 0 {
		return
	}
	table[key] = value
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
