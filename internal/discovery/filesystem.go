package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	// LegacyBuildFileName marks a project that still carries setup.py.
	LegacyBuildFileName = "setup.py"
	// DeclarativeConfigurationFileName marks a project that carries pyproject.toml.
	DeclarativeConfigurationFileName = "pyproject.toml"

	hiddenDirectoryPrefixConstant    = "."
	virtualEnvironmentMarkerConstant = "pyvenv.cfg"
	rootInspectionErrorTemplate      = "unable to inspect root %s: %w"
	rootNotDirectoryErrorTemplate    = "root %s is not a directory"
	fileSystemMissingMessageConstant = "discovery file system not configured"
)

var errFileSystemMissing = errors.New(fileSystemMissingMessageConstant)

var skippedDirectoryNames = map[string]struct{}{
	"node_modules": {},
	"__pycache__":  {},
	"venv":         {},
}

var projectMarkerFileNames = []string{LegacyBuildFileName, DeclarativeConfigurationFileName}

// FilesystemProjectDiscoverer locates plugin projects on an afero file system.
type FilesystemProjectDiscoverer struct {
	fileSystem afero.Fs
}

// NewFilesystemProjectDiscoverer constructs a project discoverer backed by afero.Walk.
func NewFilesystemProjectDiscoverer(fileSystem afero.Fs) *FilesystemProjectDiscoverer {
	return &FilesystemProjectDiscoverer{fileSystem: fileSystem}
}

// DiscoverProjects walks the provided roots and returns directories holding setup.py or pyproject.toml.
// A root that is itself a project is returned without descending further.
func (discoverer *FilesystemProjectDiscoverer) DiscoverProjects(roots []string) ([]string, error) {
	if discoverer == nil || discoverer.fileSystem == nil {
		return nil, errFileSystemMissing
	}

	seen := make(map[string]struct{})
	var projects []string

	for _, root := range roots {
		cleanedRoot := filepath.Clean(root)
		rootInfo, statError := discoverer.fileSystem.Stat(cleanedRoot)
		if statError != nil {
			return nil, fmt.Errorf(rootInspectionErrorTemplate, cleanedRoot, statError)
		}
		if !rootInfo.IsDir() {
			return nil, fmt.Errorf(rootNotDirectoryErrorTemplate, cleanedRoot)
		}

		walkError := afero.Walk(discoverer.fileSystem, cleanedRoot, func(path string, info fs.FileInfo, walkError error) error {
			if walkError != nil {
				return nil
			}
			if !info.IsDir() {
				return nil
			}
			if path != cleanedRoot && discoverer.skipDirectory(path, info.Name()) {
				return filepath.SkipDir
			}
			if !discoverer.isProject(path) {
				return nil
			}

			if _, alreadySeen := seen[path]; !alreadySeen {
				seen[path] = struct{}{}
				projects = append(projects, path)
			}
			return filepath.SkipDir
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(projects)
	return projects, nil
}

func (discoverer *FilesystemProjectDiscoverer) skipDirectory(path string, name string) bool {
	if strings.HasPrefix(name, hiddenDirectoryPrefixConstant) {
		return true
	}
	if _, skipped := skippedDirectoryNames[name]; skipped {
		return true
	}
	isVirtualEnvironment, _ := afero.Exists(discoverer.fileSystem, filepath.Join(path, virtualEnvironmentMarkerConstant))
	return isVirtualEnvironment
}

func (discoverer *FilesystemProjectDiscoverer) isProject(directory string) bool {
	for _, markerFileName := range projectMarkerFileNames {
		isFile, _ := afero.Exists(discoverer.fileSystem, filepath.Join(directory, markerFileName))
		if isFile {
			return true
		}
	}
	return false
}
