package legacy_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/plugin-tool/internal/legacy"
)

const (
	parserSubtestNameTemplateConstant = "%d_%s"
	setupFixtureFileNameConstant      = "setup.py"
	testdataDirectoryNameConstant     = "testdata"
)

func TestParseAssignmentsLiterals(testInstance *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected legacy.Assignments
	}{
		{
			name:     "double_and_single_quoted_strings",
			source:   "first = \"alpha\"\nsecond = 'beta'\n",
			expected: legacy.Assignments{"first": "alpha", "second": "beta"},
		},
		{
			name:     "triple_quoted_string_keeps_inner_quotes",
			source:   "description = \"\"\"A \"quoted\" word\nacross lines\"\"\"\n",
			expected: legacy.Assignments{"description": "A \"quoted\" word\nacross lines"},
		},
		{
			name:     "escape_sequences_resolve",
			source:   "value = \"tab\\there \\u00e4 \\\"q\\\" \\d\"\n",
			expected: legacy.Assignments{"value": "tab\there ä \"q\" \\d"},
		},
		{
			name:     "raw_strings_keep_backslashes",
			source:   "pattern = r\"\\d+\\.\\d+\"\n",
			expected: legacy.Assignments{"pattern": "\\d+\\.\\d+"},
		},
		{
			name:     "implicit_and_explicit_concatenation",
			source:   "joined = (\"one\" \"two\")\nadded = \"three\" + 'four'\n",
			expected: legacy.Assignments{"joined": "onetwo", "added": "threefour"},
		},
		{
			name:     "lists_tuples_and_trailing_commas",
			source:   "items = [\n    \"a\",\n    \"b\",\n]\npair = (\"c\", \"d\")\nsingle = (\"e\",)\n",
			expected: legacy.Assignments{"items": []any{"a", "b"}, "pair": []any{"c", "d"}, "single": []any{"e"}},
		},
		{
			name:   "dictionaries_nest",
			source: "params = {\"python_requires\": \">=3,<4\", \"extras\": {\"dev\": [\"pytest\"]}, \"zip_safe\": False}\n",
			expected: legacy.Assignments{"params": map[string]any{
				"python_requires": ">=3,<4",
				"extras":          map[string]any{"dev": []any{"pytest"}},
				"zip_safe":        false,
			}},
		},
		{
			name:     "numbers_booleans_and_none",
			source:   "count = 3\nratio = 1.5\nnegative = -2\nenabled = True\nmissing = None\n",
			expected: legacy.Assignments{"count": int64(3), "ratio": 1.5, "negative": int64(-2), "enabled": true, "missing": nil},
		},
		{
			name:     "references_to_earlier_assignments",
			source:   "base = [\"a\"]\nextended = base + [\"b\"]\nalias = base\n",
			expected: legacy.Assignments{"base": []any{"a"}, "extended": []any{"a", "b"}, "alias": []any{"a"}},
		},
		{
			name:     "later_assignment_replaces_earlier",
			source:   "version = \"1.0\"\nversion = \"2.0\"\n",
			expected: legacy.Assignments{"version": "2.0"},
		},
		{
			name:     "line_continuation_joins_lines",
			source:   "name = \"a\" \\\n    \"b\"\n",
			expected: legacy.Assignments{"name": "ab"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(parserSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			assignments, parseError := legacy.ParseAssignments(testCase.source)
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, assignments)
		})
	}
}

func TestParseAssignmentsSkipsNonLiteralStatements(testInstance *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected legacy.Assignments
	}{
		{
			name:     "imports_and_calls",
			source:   "import os\nfrom setuptools import setup\nsetup(**params)\nname = \"kept\"\n",
			expected: legacy.Assignments{"name": "kept"},
		},
		{
			name:     "function_call_assignment",
			source:   "params = octoprint_setuptools.create_plugin_setup_parameters(\n    identifier=plugin_identifier,\n)\nname = \"kept\"\n",
			expected: legacy.Assignments{"name": "kept"},
		},
		{
			name:     "indented_blocks",
			source:   "try:\n    import thing\n    nested = \"ignored\"\nexcept:\n    print(\"it's fine\")\nname = \"kept\"\n",
			expected: legacy.Assignments{"name": "kept"},
		},
		{
			name:     "unknown_reference_and_method_calls",
			source:   "version = get_version()\nlabel = \"a\".upper()\nalias = undefined_name\nname = \"kept\"\n",
			expected: legacy.Assignments{"name": "kept"},
		},
		{
			name:     "comparisons_and_augmented_assignment",
			source:   "name = \"kept\"\nname += \"suffix\"\nif name == \"kept\":\n    pass\n",
			expected: legacy.Assignments{"name": "kept"},
		},
		{
			name:     "comments_with_quotes",
			source:   "# the plugin's name\nname = \"kept\"  # don't change\n",
			expected: legacy.Assignments{"name": "kept"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(parserSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			assignments, parseError := legacy.ParseAssignments(testCase.source)
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, assignments)
		})
	}
}

func TestParseAssignmentsReportsSyntaxErrors(testInstance *testing.T) {
	testCases := []struct {
		name         string
		source       string
		expectedLine int
	}{
		{name: "unterminated_string", source: "name = \"open\n", expectedLine: 1},
		{name: "unterminated_triple_string", source: "ok = 1\ndescription = \"\"\"never closed\n", expectedLine: 2},
		{name: "unclosed_bracket", source: "items = [\"a\",\n", expectedLine: 2},
		{name: "mismatched_bracket", source: "items = [\"a\")\n", expectedLine: 1},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(parserSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			_, parseError := legacy.ParseAssignments(testCase.source)
			require.Error(testInstance, parseError)

			var syntaxError legacy.SyntaxError
			require.True(testInstance, errors.As(parseError, &syntaxError))
			require.Equal(testInstance, testCase.expectedLine, syntaxError.Line)
		})
	}
}

func TestParseAssignmentsPluginSetupScript(testInstance *testing.T) {
	source, readError := os.ReadFile(filepath.Join(testdataDirectoryNameConstant, setupFixtureFileNameConstant))
	require.NoError(testInstance, readError)

	assignments, parseError := legacy.ParseAssignments(string(source))
	require.NoError(testInstance, parseError)

	require.Equal(testInstance, "helloworld", assignments["plugin_identifier"])
	require.Equal(testInstance, "A quick \"Hello World\" example plugin for OctoPrint", assignments["plugin_description"])
	require.Equal(testInstance, []any{"requests>=2.20", "pyyaml"}, assignments["plugin_requires"])
	require.NotContains(testInstance, assignments, "setup_parameters")
}
