// Package camera owns the V4L2 capture device and the udev hotplug watch.
// The capture loop pulls frames through the Source interface so tests can
// substitute synthetic frames for real hardware.
package camera
