// Package baseline records accepted findings so later scans only report
// what is new.
//
// A finding is identified by a SHA-256 fingerprint of its rule ID, relative
// path and trimmed evidence snippet. Line numbers are excluded, so moving
// code within a file does not resurface it, while editing the flagged line
// does.
package baseline
