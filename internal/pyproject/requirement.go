package pyproject

import (
	"regexp"
	"strings"
)

var (
	requirementNamePattern      = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	requirementSeparatorPattern = regexp.MustCompile(`[-_.]+`)
)

// RequirementName returns the normalized project name of a PEP 508
// requirement string, or an empty string when none can be recognized.
func RequirementName(requirement string) string {
	match := requirementNamePattern.FindStringSubmatch(requirement)
	if len(match) < 2 {
		return ""
	}
	return strings.ToLower(requirementSeparatorPattern.ReplaceAllString(match[1], "-"))
}
