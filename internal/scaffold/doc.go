// Package scaffold stamps the companion files every migrated plugin project
// carries: MANIFEST.in and Taskfile.yml. Files that already exist are never
// rewritten.
package scaffold
