// Package sensor watches the PIR motion sensor and turns rising edges into
// capture triggers.
//
// The Task debounces triggers (only one per min_trigger_seconds window) and
// honours the disable marker file, which silences notifications without
// stopping the sensor. The hardware sits behind Detector; SysfsGPIO drives a
// line through the kernel's sysfs GPIO interface.
package sensor
