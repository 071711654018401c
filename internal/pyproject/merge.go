package pyproject

import (
	"reflect"
	"sort"
	"strings"
)

const (
	keyPathSeparatorConstant        = "."
	quotedKeyTemplateCharacter      = `"`
	buildSystemTableConstant        = "build-system"
	buildRequiresKeyConstant        = "requires"
	projectTableConstant            = "project"
	dependenciesKeyConstant         = "dependencies"
	optionalDependenciesKeyConstant = "optional-dependencies"
)

// MergeOutcome reports the merged document and the key paths that changed.
type MergeOutcome struct {
	Document     Document
	AddedKeys    []string
	ExtendedKeys []string
}

// Changed reports whether the merge contributed anything to the existing document.
func (outcome MergeOutcome) Changed() bool {
	return len(outcome.AddedKeys) > 0 || len(outcome.ExtendedKeys) > 0
}

// Merge folds derived into existing and returns a new document.
//
// Precedence, key by key:
//   - a key missing from existing is taken from derived;
//   - two tables are merged recursively;
//   - two arrays are unioned, existing entries first, in their order;
//     requirement arrays match entries by project name, so an existing pin
//     is never joined by a second one for the same project;
//   - anything else keeps the existing value.
//
// Neither input is modified.
func Merge(existing Document, derived Document) MergeOutcome {
	merger := &documentMerger{}
	merged := merger.mergeTables(nil, map[string]any(existing), map[string]any(derived))

	sort.Strings(merger.addedKeys)
	sort.Strings(merger.extendedKeys)

	return MergeOutcome{
		Document:     Document(merged),
		AddedKeys:    merger.addedKeys,
		ExtendedKeys: merger.extendedKeys,
	}
}

type documentMerger struct {
	addedKeys    []string
	extendedKeys []string
}

func (merger *documentMerger) mergeTables(path []string, existing map[string]any, derived map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(derived))
	for key, value := range existing {
		merged[key] = deepCopy(value)
	}

	derivedKeys := make([]string, 0, len(derived))
	for key := range derived {
		derivedKeys = append(derivedKeys, key)
	}
	sort.Strings(derivedKeys)

	for _, key := range derivedKeys {
		derivedValue := derived[key]
		keyPath := appendPath(path, key)

		existingValue, exists := existing[key]
		if !exists {
			merged[key] = deepCopy(derivedValue)
			merger.addedKeys = append(merger.addedKeys, formatKeyPath(keyPath))
			continue
		}

		existingTable, existingIsTable := asTable(existingValue)
		derivedTable, derivedIsTable := asTable(derivedValue)
		if existingIsTable && derivedIsTable {
			merged[key] = merger.mergeTables(keyPath, existingTable, derivedTable)
			continue
		}

		existingArray, existingIsArray := asArray(existingValue)
		derivedArray, derivedIsArray := asArray(derivedValue)
		if existingIsArray && derivedIsArray {
			unioned, extended := unionArrays(existingArray, derivedArray, isRequirementArray(keyPath))
			merged[key] = unioned
			if extended {
				merger.extendedKeys = append(merger.extendedKeys, formatKeyPath(keyPath))
			}
		}
	}

	return merged
}

func unionArrays(existing []any, derived []any, matchByRequirementName bool) ([]any, bool) {
	unioned := make([]any, 0, len(existing)+len(derived))
	for _, entry := range existing {
		unioned = append(unioned, deepCopy(entry))
	}

	extended := false
	for _, candidate := range derived {
		if arrayContains(unioned, candidate, matchByRequirementName) {
			continue
		}
		unioned = append(unioned, deepCopy(candidate))
		extended = true
	}
	return unioned, extended
}

func arrayContains(entries []any, candidate any, matchByRequirementName bool) bool {
	candidateName := ""
	if matchByRequirementName {
		if candidateText, isText := candidate.(string); isText {
			candidateName = RequirementName(candidateText)
		}
	}

	for _, entry := range entries {
		if len(candidateName) > 0 {
			if entryText, isText := entry.(string); isText && RequirementName(entryText) == candidateName {
				return true
			}
		}
		if reflect.DeepEqual(entry, candidate) {
			return true
		}
	}
	return false
}

func asArray(value any) ([]any, bool) {
	switch typedValue := value.(type) {
	case []any:
		return typedValue, true
	case []string:
		converted, _ := deepCopy(typedValue).([]any)
		return converted, true
	}
	return nil, false
}

func isRequirementArray(path []string) bool {
	switch {
	case len(path) == 2 && path[0] == buildSystemTableConstant && path[1] == buildRequiresKeyConstant:
		return true
	case len(path) == 2 && path[0] == projectTableConstant && path[1] == dependenciesKeyConstant:
		return true
	case len(path) == 3 && path[0] == projectTableConstant && path[1] == optionalDependenciesKeyConstant:
		return true
	}
	return false
}

func appendPath(path []string, key string) []string {
	extended := make([]string, 0, len(path)+1)
	extended = append(extended, path...)
	return append(extended, key)
}

func formatKeyPath(path []string) string {
	formatted := make([]string, len(path))
	for index, segment := range path {
		if strings.Contains(segment, keyPathSeparatorConstant) {
			formatted[index] = quotedKeyTemplateCharacter + segment + quotedKeyTemplateCharacter
			continue
		}
		formatted[index] = segment
	}
	return strings.Join(formatted, keyPathSeparatorConstant)
}
