// Package logs reads the listener's run log for the CLI.
//
// Last returns the final lines of a file with bounded memory, and Follow polls
// from an offset, emitting complete lines as they are appended. Follow notices
// truncation and rotation of the replaylistener.log pointer and starts over
// from the new file's beginning.
package logs
