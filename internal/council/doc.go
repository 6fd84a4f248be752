// Package council runs the three-stage model review over scanner findings.
//
// Each finding goes through triage on a small model. Unless triage answers
// needs_deep_review with an explicit false, a deep analysis and an adversarial
// skeptic pass follow, and a skeptic recommendation of "downgrade" or
// "dismiss" lowers the finding's confidence (and its severity when triage
// rated it critical or high).
//
// Model replies are parsed leniently: strict JSON first, then the outermost
// brace span, then a {"_raw": text} fallback. Parsing never fails a run; only
// transport errors do, subject to the configured FailureMode.
package council
