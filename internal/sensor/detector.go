package sensor

// Detector is the motion sensor line.
type Detector interface {
	// Open claims the line and arms rising-edge detection.
	Open() error
	// Level returns the current line value (0 or 1).
	Level() (int, error)
	// Triggered reports, without blocking, whether a rising edge occurred
	// since the previous call.
	Triggered() (bool, error)
	// Close releases the line.
	Close() error
}
