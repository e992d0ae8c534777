// Package preflight provides readiness checks for the filesystem paths and
// static tables hearingcap depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at start and refuses to launch the workflow when
//     any check fails.
//   - The CLI "hearingcap status" and "config validate" commands render the
//     individual results.
package preflight
