// Package review defines the finding model shared by the detectors, the
// council and the report writers.
//
// A [Finding] starts life as a candidate produced by a regex detector. The
// council may attach a [Review]: a triage [Verdict], optionally followed by a
// [DeepReview] holding the analysis and skeptic verdicts, or a
// [StageFailure] when a stage could not complete. On the wire the review is
// flattened into the triage, analysis, skeptic and council_error keys of the
// finding object so findings.json stays readable without this package.
//
// Severities are ordered critical > high > medium > low > info; see
// [SeverityRank], [MeetsThreshold] and [AtMost].
package review
