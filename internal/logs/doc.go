// Package logs reads the daemon's rotating log file for the CLI.
//
// Last returns the final lines of the active file and the offset just past
// them; Follow streams anything appended after an offset until its context is
// cancelled, restarting from the top when the file shrinks after rotation.
package logs
