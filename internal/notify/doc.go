// Package notify hosts the worker that forwards motion stills to the
// configured notifications.Sender. Each still is attempted once; a failed
// delivery is logged and the still dropped.
package notify
