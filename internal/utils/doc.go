// Package utils holds the configuration loader, logger factory, and command
// context helpers shared by the plugin-tool commands.
package utils
