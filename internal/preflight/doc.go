// Package preflight provides readiness checks for the filesystem paths and
// remote API the listener depends on.
//
// These checks run in two contexts:
//   - The listen command runs DirectoryChecks before taking the lock. If any
//     check fails the command exits instead of looping against an unwritable
//     download root.
//   - The CLI "check" command runs RunAll, which adds API reachability, and
//     renders the results as a table.
package preflight
