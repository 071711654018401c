package migrate

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	unchangedLinePrefixConstant = "  "
	insertedLinePrefixConstant  = "+ "
	deletedLinePrefixConstant   = "- "
	lineSeparatorConstant       = "\n"
)

// RenderConfigurationDiff formats a line oriented diff between two configuration renderings.
// Unchanged lines are prefixed with two spaces, inserted lines with "+ " and deleted lines with "- ".
func RenderConfigurationDiff(before []byte, after []byte) string {
	differ := diffmatchpatch.New()
	beforeCharacters, afterCharacters, lines := differ.DiffLinesToChars(string(before), string(after))
	diffs := differ.DiffCharsToLines(differ.DiffMain(beforeCharacters, afterCharacters, false), lines)

	var builder strings.Builder
	for _, diff := range diffs {
		prefix := unchangedLinePrefixConstant
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = insertedLinePrefixConstant
		case diffmatchpatch.DiffDelete:
			prefix = deletedLinePrefixConstant
		}

		text := strings.TrimSuffix(diff.Text, lineSeparatorConstant)
		if len(text) == 0 && len(diff.Text) == 0 {
			continue
		}
		for _, line := range strings.Split(text, lineSeparatorConstant) {
			builder.WriteString(prefix)
			builder.WriteString(line)
			builder.WriteString(lineSeparatorConstant)
		}
	}
	return builder.String()
}
