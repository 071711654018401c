// Package pyproject builds, parses, renders, and merges pyproject.toml
// documents.
//
// Documents are plain nested maps so that tables written by users survive a
// round trip untouched. Build derives the packaging tables from setup.py
// metadata and Merge folds them into an existing document without dropping
// or overriding anything the user already declared.
package pyproject
