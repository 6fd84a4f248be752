// Package gitctx finds the files a diff scan should look at.
//
// It shells out to git for the union of committed, staged and unstaged
// changes against a base ref, and for the repository metadata recorded in
// reports. [GitDir] locates the hooks directory for pre-commit installation.
package gitctx
