// Package discovery locates plugin projects beneath configured root directories.
package discovery
