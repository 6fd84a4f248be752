// Package output formats scan reports for display or machine consumption.
//
// Four formats are supported:
//   - json  : findings.json, the full structured report
//   - md    : report.md, findings sorted by severity with evidence and fix plans
//   - sarif : SARIF v2.1.0 for upload to code scanning tools
//   - text  : human-readable terminal output
//
// Use [GetWriter] to obtain a [Writer] for a format, or [WriteAll] to write
// several formats into an output directory. [ReadReport] loads a
// findings.json back for re-rendering.
package output
