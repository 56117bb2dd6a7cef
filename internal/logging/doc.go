// Package logging provides file-based structured logging with rotation.
//
// Every invocation writes JSON lines to <data>/logs/gutenindex.log. Warnings
// and errors are mirrored to stderr as text; with --debug everything is.
// The log viewer (gutenindex logs) reads the same file back.
package logging
