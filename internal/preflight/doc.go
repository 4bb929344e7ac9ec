// Package preflight provides readiness checks for the filesystem paths,
// external programs and notification endpoint watchpost depends on.
//
// `watchpost check` renders the results as a table. The daemon does not gate
// startup on them: workers retry their own preparation, so a camera or sensor
// that appears late is picked up without a restart.
package preflight
