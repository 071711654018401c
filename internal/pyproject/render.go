package pyproject

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	tableHeaderTemplate          = "[%s]\n"
	keyValueTemplate             = "%s = %s\n"
	inlineEntrySeparatorConstant = ", "
	dottedPathSeparatorConstant  = "."
	emptyInlineTableConstant     = "{}"
	scalarProbeKeyConstant       = "value"
	scalarProbePrefixConstant    = scalarProbeKeyConstant + " = "
	scalarEncodeErrorTemplate    = "unable to encode %s: %w"
	scalarUnexpectedTemplate     = "unexpected encoding for %s: %q"
)

// canonicalKeyOrder lists known keys per dotted table path in the order they
// are written. Keys not listed follow in sorted order.
var canonicalKeyOrder = map[string][]string{
	"":                              {"build-system", "project", "tool"},
	"build-system":                  {"requires", "build-backend", "backend-path"},
	"project":                       {"name", "version", "description", "readme", "authors", "maintainers", "license", "license-files", "requires-python", "dependencies", "classifiers", "keywords", "dynamic", "entry-points", "scripts", "gui-scripts", "urls", "optional-dependencies"},
	"project.authors":               {"name", "email"},
	"project.maintainers":           {"name", "email"},
	"project.license":               {"text", "file"},
	"project.readme":                {"file", "text", "content-type"},
	"tool.setuptools":               {"include-package-data", "packages", "package-data"},
	"tool.setuptools.packages.find": {"where", "include", "exclude", "namespaces"},
}

// inlineTablePaths are tables written as inline values instead of sections.
var inlineTablePaths = map[string]bool{
	"project.license": true,
	"project.readme":  true,
}

var bareKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Render encodes the document in the conventional pyproject.toml layout:
// known tables and keys in PEP 621 order with the rest sorted, double-quoted
// strings, and single-line arrays. Equal documents render to identical bytes.
// The whole file is produced from the document, so comments and hand
// formatting of previously parsed content are not carried over.
func Render(document Document) ([]byte, error) {
	writer := &documentWriter{}
	if writeError := writer.writeTable(nil, map[string]any(pruneNilValues(document))); writeError != nil {
		return nil, fmt.Errorf(documentRenderErrorTemplate, writeError)
	}
	return writer.buffer.Bytes(), nil
}

type documentWriter struct {
	buffer bytes.Buffer
}

func (writer *documentWriter) writeTable(path []string, table map[string]any) error {
	var valueKeys []string
	var sectionKeys []string
	for _, key := range orderedKeys(path, table) {
		if isSectionTable(path, key, table[key]) {
			sectionKeys = append(sectionKeys, key)
			continue
		}
		valueKeys = append(valueKeys, key)
	}

	if len(path) > 0 && (len(valueKeys) > 0 || len(table) == 0) {
		if writer.buffer.Len() > 0 {
			writer.buffer.WriteByte('\n')
		}
		fmt.Fprintf(&writer.buffer, tableHeaderTemplate, formatHeaderPath(path))
	}

	for _, key := range valueKeys {
		encoded, encodeError := encodeValue(appendPath(path, key), table[key])
		if encodeError != nil {
			return encodeError
		}
		fmt.Fprintf(&writer.buffer, keyValueTemplate, formatKey(key), encoded)
	}

	for _, key := range sectionKeys {
		subtable, _ := asTable(table[key])
		if writeError := writer.writeTable(appendPath(path, key), subtable); writeError != nil {
			return writeError
		}
	}
	return nil
}

func encodeValue(path []string, value any) (string, error) {
	switch typedValue := value.(type) {
	case string:
		return quoteBasicString(typedValue), nil
	case bool:
		if typedValue {
			return "true", nil
		}
		return "false", nil
	case []string:
		return encodeValue(path, stringsToArray(typedValue))
	case []any:
		encodedEntries := make([]string, 0, len(typedValue))
		for _, entry := range typedValue {
			encodedEntry, encodeError := encodeValue(path, entry)
			if encodeError != nil {
				return "", encodeError
			}
			encodedEntries = append(encodedEntries, encodedEntry)
		}
		return "[" + strings.Join(encodedEntries, inlineEntrySeparatorConstant) + "]", nil
	case map[string]any, Document:
		table, _ := asTable(typedValue)
		if len(table) == 0 {
			return emptyInlineTableConstant, nil
		}
		encodedEntries := make([]string, 0, len(table))
		for _, key := range orderedKeys(path, table) {
			encodedEntry, encodeError := encodeValue(appendPath(path, key), table[key])
			if encodeError != nil {
				return "", encodeError
			}
			encodedEntries = append(encodedEntries, fmt.Sprintf("%s = %s", formatKey(key), encodedEntry))
		}
		return "{ " + strings.Join(encodedEntries, inlineEntrySeparatorConstant) + " }", nil
	}
	return encodeScalar(path, value)
}

// encodeScalar delegates numbers and date-times to go-toml so their TOML
// spelling (float exponents, offsets, local dates) stays exact.
func encodeScalar(path []string, value any) (string, error) {
	dottedPath := strings.Join(path, dottedPathSeparatorConstant)
	encoded, marshalError := toml.Marshal(map[string]any{scalarProbeKeyConstant: value})
	if marshalError != nil {
		return "", fmt.Errorf(scalarEncodeErrorTemplate, dottedPath, marshalError)
	}
	line := strings.TrimSuffix(string(encoded), "\n")
	if !strings.HasPrefix(line, scalarProbePrefixConstant) || strings.Contains(line, "\n") {
		return "", fmt.Errorf(scalarUnexpectedTemplate, dottedPath, line)
	}
	return strings.TrimPrefix(line, scalarProbePrefixConstant), nil
}

func orderedKeys(path []string, table map[string]any) []string {
	known := canonicalKeyOrder[strings.Join(path, dottedPathSeparatorConstant)]

	ordered := make([]string, 0, len(table))
	for _, key := range known {
		if _, exists := table[key]; exists {
			ordered = append(ordered, key)
		}
	}

	remaining := make([]string, 0, len(table)-len(ordered))
	for key := range table {
		if !slices.Contains(known, key) {
			remaining = append(remaining, key)
		}
	}
	sort.Strings(remaining)
	return append(ordered, remaining...)
}

func isSectionTable(path []string, key string, value any) bool {
	if _, isTable := asTable(value); !isTable {
		return false
	}
	return !inlineTablePaths[strings.Join(appendPath(path, key), dottedPathSeparatorConstant)]
}

func formatHeaderPath(path []string) string {
	formatted := make([]string, len(path))
	for index, segment := range path {
		formatted[index] = formatKey(segment)
	}
	return strings.Join(formatted, dottedPathSeparatorConstant)
}

func formatKey(key string) string {
	if bareKeyPattern.MatchString(key) {
		return key
	}
	return quoteBasicString(key)
}

func quoteBasicString(text string) string {
	var builder strings.Builder
	builder.WriteByte('"')
	for _, character := range text {
		switch character {
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		case '\b':
			builder.WriteString(`\b`)
		case '\t':
			builder.WriteString(`\t`)
		case '\n':
			builder.WriteString(`\n`)
		case '\f':
			builder.WriteString(`\f`)
		case '\r':
			builder.WriteString(`\r`)
		default:
			if character < 0x20 || character == 0x7f {
				fmt.Fprintf(&builder, `\u%04X`, character)
				continue
			}
			builder.WriteRune(character)
		}
	}
	builder.WriteByte('"')
	return builder.String()
}
