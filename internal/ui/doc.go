// Package ui renders terminal output with pterm: the banner, spinners for
// long-running council calls and the findings table.
package ui
