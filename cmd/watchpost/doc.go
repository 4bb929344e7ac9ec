// Command watchpost runs the motion camera daemon and its maintenance
// commands.
//
// Invoked without a subcommand it loads the configuration, starts every
// worker and runs until SIGINT or SIGTERM, exiting 0 after the ordered
// shutdown completes. Subcommands cover configuration scaffolding,
// dependency checks, the activity journal, the log file and a one-off test
// notification.
package main
