// Package capture records the camera feed in one-minute h264 segments and
// takes notification stills on demand.
//
// One Task step records exactly one segment: it starts the recorder, checks
// the trigger queue every tick until the wall-clock minute changes, then stops
// the recorder and hands the finished file to the convert worker. A trigger
// seen during a segment produces a JPEG still for the notify worker. Segments
// are laid out as video_dir/YYYY-MM-DD/HH/MM.h264 and stills as
// notification_dir/YYYY-MM-DD-HH-MM-SS.jpg.
//
// The camera sits behind Camera; CommandCamera drives external recorder and
// still programs such as rpicam-vid and rpicam-still.
package capture
