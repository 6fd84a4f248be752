// Package logging builds the zerolog logger shared by every component.
//
// Diagnostics go to stderr so that command output on stdout stays clean. An
// optional log file is rotated by lumberjack.
package logging
