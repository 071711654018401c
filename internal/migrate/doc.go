// Package migrate moves OctoPrint plugin packaging metadata from setup.py into
// pyproject.toml, merging with any configuration already present, and makes
// sure the MANIFEST.in and Taskfile.yml companions exist.
package migrate
