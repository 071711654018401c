package pathutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

const (
	booleanLiteralTrueValueConstant  = "true"
	booleanLiteralFalseValueConstant = "false"
	windowsOperatingSystemConstant   = "windows"
)

// ProjectPathSanitizerConfiguration controls project root sanitization behavior.
type ProjectPathSanitizerConfiguration struct {
	// ExcludeBooleanLiteralCandidates removes arguments that spell "true" or "false",
	// which cobra leaves behind when a boolean flag is followed by a separate value.
	ExcludeBooleanLiteralCandidates bool
	// PruneNestedPaths drops roots that sit inside another provided root.
	PruneNestedPaths bool
}

// ProjectPathSanitizer normalizes project root inputs from arguments and configuration.
type ProjectPathSanitizer struct {
	homeExpander  *HomeExpander
	configuration ProjectPathSanitizerConfiguration
}

// NewProjectPathSanitizer constructs a ProjectPathSanitizer with default behavior.
func NewProjectPathSanitizer() *ProjectPathSanitizer {
	return NewProjectPathSanitizerWithConfiguration(nil, ProjectPathSanitizerConfiguration{})
}

// NewProjectPathSanitizerWithConfiguration constructs a ProjectPathSanitizer using the provided expander and configuration.
func NewProjectPathSanitizerWithConfiguration(homeExpander *HomeExpander, configuration ProjectPathSanitizerConfiguration) *ProjectPathSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &ProjectPathSanitizer{homeExpander: homeExpander, configuration: configuration}
}

// Sanitize trims whitespace, expands the home directory, and removes disallowed values.
// It returns nil when nothing remains.
func (sanitizer *ProjectPathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		sanitizer = NewProjectPathSanitizer()
	}

	var sanitizedPaths []string
	for _, candidatePath := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePath)
		if len(trimmedCandidate) == 0 {
			continue
		}
		if sanitizer.configuration.ExcludeBooleanLiteralCandidates && isBooleanLiteral(trimmedCandidate) {
			continue
		}
		sanitizedPaths = append(sanitizedPaths, sanitizer.homeExpander.Expand(trimmedCandidate))
	}

	if sanitizer.configuration.PruneNestedPaths {
		return pruneNestedPaths(sanitizedPaths)
	}
	return sanitizedPaths
}

func isBooleanLiteral(candidate string) bool {
	loweredCandidate := strings.ToLower(candidate)
	return loweredCandidate == booleanLiteralTrueValueConstant || loweredCandidate == booleanLiteralFalseValueConstant
}

// pruneNestedPaths keeps the outermost of overlapping roots, preserving input order.
func pruneNestedPaths(candidatePaths []string) []string {
	if len(candidatePaths) == 0 {
		return nil
	}

	comparisonKeys := make([]string, len(candidatePaths))
	order := make([]int, len(candidatePaths))
	for index, candidatePath := range candidatePaths {
		comparisonKeys[index] = comparisonPath(candidatePath)
		order[index] = index
	}
	sort.SliceStable(order, func(first int, second int) bool {
		return len(comparisonKeys[order[first]]) < len(comparisonKeys[order[second]])
	})

	kept := make([]bool, len(candidatePaths))
	var keptKeys []string
	for _, index := range order {
		nested := false
		for _, keptKey := range keptKeys {
			if isNestedPath(keptKey, comparisonKeys[index]) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		kept[index] = true
		keptKeys = append(keptKeys, comparisonKeys[index])
	}

	pruned := make([]string, 0, len(keptKeys))
	for index, candidatePath := range candidatePaths {
		if kept[index] {
			pruned = append(pruned, candidatePath)
		}
	}
	return pruned
}

func comparisonPath(candidatePath string) string {
	comparison := filepath.Clean(candidatePath)
	if absolutePath, absoluteError := filepath.Abs(comparison); absoluteError == nil {
		comparison = absolutePath
	}
	if runtime.GOOS == windowsOperatingSystemConstant {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

func isNestedPath(parent string, candidate string) bool {
	if candidate == parent {
		return true
	}
	if !strings.HasPrefix(candidate, parent) {
		return false
	}
	if strings.HasSuffix(parent, string(os.PathSeparator)) {
		return true
	}
	return len(candidate) > len(parent) && candidate[len(parent)] == os.PathSeparator
}
