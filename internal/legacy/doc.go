// Package legacy extracts plugin packaging metadata from setup.py files.
//
// It understands the literal subset of Python used by plugin setup scripts:
// top-level assignments of strings, numbers, booleans, lists, tuples, and
// dictionaries. Everything else in the script is skipped.
package legacy
