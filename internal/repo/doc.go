// Package repo walks a repository tree and summarizes what it contains.
//
// [CollectFiles] applies the ignore list and per-file size cap shared by full
// and diff scans. [Inventory] produces the repository context attached to
// every report and council request.
package repo
