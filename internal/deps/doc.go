// Package deps checks that the external programs watchpost shells out to are
// on PATH. Results feed the startup dependency snapshot and `watchpost check`.
package deps
