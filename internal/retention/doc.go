// Package retention deletes capture artifacts once they age past the
// configured horizon.
//
// Sweep looks at top-level .jpg stills in the notification root and at .h264
// and .mp4 segments anywhere under the video root. A file is removed when its
// modification time is strictly before now minus the horizon. Date and hour
// directories left empty are pruned bottom-up in the same sweep, except those
// capture may be about to write into. The roots themselves are never removed.
package retention
