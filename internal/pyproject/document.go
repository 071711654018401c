package pyproject

import (
	"bytes"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	documentParseErrorTemplate  = "unable to parse pyproject.toml: %w"
	documentRenderErrorTemplate = "unable to render pyproject.toml: %w"
)

// Document mirrors the table structure of a pyproject.toml file.
type Document map[string]any

// Parse decodes pyproject.toml content. Empty content yields an empty document.
func Parse(content []byte) (Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return Document{}, nil
	}
	decoded := map[string]any{}
	if unmarshalError := toml.Unmarshal(content, &decoded); unmarshalError != nil {
		return nil, fmt.Errorf(documentParseErrorTemplate, unmarshalError)
	}
	return Document(decoded), nil
}

// Lookup walks a dotted sequence of table keys.
func (document Document) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(document)
	for _, segment := range path {
		table, isTable := asTable(current)
		if !isTable {
			return nil, false
		}
		next, exists := table[segment]
		if !exists {
			return nil, false
		}
		current = next
	}
	return current, true
}

func asTable(value any) (map[string]any, bool) {
	switch typedValue := value.(type) {
	case map[string]any:
		return typedValue, true
	case Document:
		return map[string]any(typedValue), true
	}
	return nil, false
}

func pruneNilValues(document Document) Document {
	pruned, _ := pruneValue(map[string]any(document)).(map[string]any)
	return Document(pruned)
}

func pruneValue(value any) any {
	switch typedValue := value.(type) {
	case map[string]any:
		pruned := make(map[string]any, len(typedValue))
		for key, entry := range typedValue {
			if entry == nil {
				continue
			}
			pruned[key] = pruneValue(entry)
		}
		return pruned
	case Document:
		return pruneValue(map[string]any(typedValue))
	case []any:
		pruned := make([]any, 0, len(typedValue))
		for _, entry := range typedValue {
			if entry == nil {
				continue
			}
			pruned = append(pruned, pruneValue(entry))
		}
		return pruned
	}
	return value
}

func deepCopy(value any) any {
	switch typedValue := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typedValue))
		for key, entry := range typedValue {
			copied[key] = deepCopy(entry)
		}
		return copied
	case Document:
		return deepCopy(map[string]any(typedValue))
	case []any:
		copied := make([]any, len(typedValue))
		for index := range typedValue {
			copied[index] = deepCopy(typedValue[index])
		}
		return copied
	case []string:
		copied := make([]any, len(typedValue))
		for index := range typedValue {
			copied[index] = typedValue[index]
		}
		return copied
	}
	return value
}
