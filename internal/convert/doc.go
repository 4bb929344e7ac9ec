// Package convert remuxes finished h264 segments into mp4 containers.
//
// The worker takes one video artifact per step from the capture queue, runs
// the configured MP4Box binary and removes the source segment once the mp4
// exists. A failed conversion keeps the segment on disk so retention can age
// it out; it is never retried.
package convert
