// Package notifications delivers motion stills to the user.
//
// Three transports sit behind the Sender interface: SMTP mail with the still
// attached, an ntfy topic receiving the still as a file upload, and a no-op
// used when notify.transport is "none". Workers depend only on Sender, so
// tests swap in recording fakes.
package notifications
