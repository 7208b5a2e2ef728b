package camera

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"turnstile/internal/events"
	"turnstile/internal/testsupport"
)

func TestNewMonitor(t *testing.T) {
	t.Run("nil config returns nil", func(t *testing.T) {
		if m := NewMonitor(nil, events.NewBus(0), nil); m != nil {
			t.Error("expected nil monitor for nil config")
		}
	})

	t.Run("nil bus returns nil", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		if m := NewMonitor(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor for nil bus")
		}
	})

	t.Run("valid config creates monitor", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		cfg.Camera.DeviceIndex = 2
		m := NewMonitor(cfg, events.NewBus(0), nil)
		if m == nil {
			t.Fatal("expected non-nil monitor")
		}
		if m.device != "/dev/video2" {
			t.Errorf("expected device /dev/video2, got %s", m.device)
		}
	})
}

func TestMonitorNilSafety(t *testing.T) {
	var m *Monitor
	if m.Running() {
		t.Error("expected Running to be false on nil monitor")
	}
	m.Stop() // must not panic
}

func TestExtractDeviceName(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"devname absolute", map[string]string{"DEVNAME": "/dev/video0"}, "/dev/video0"},
		{"devname relative", map[string]string{"DEVNAME": "video1"}, "/dev/video1"},
		{"devpath fallback", map[string]string{"DEVPATH": "/devices/pci0000/usb1/video4linux/video0"}, "/dev/video0"},
		{"empty", map[string]string{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractDeviceName(netlink.UEvent{Env: tc.env})
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDevicePath(t *testing.T) {
	if got := DevicePath(0); got != "/dev/video0" {
		t.Fatalf("unexpected device path %q", got)
	}
}
