package camera

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"turnstile/internal/config"
	"turnstile/internal/events"
	"turnstile/internal/logging"
)

// Monitor watches udev netlink for attach and detach of the configured
// capture device and surfaces both as pipeline events. The shell uses the
// attach signal to prompt a session restart after a cable pull.
type Monitor struct {
	logger *slog.Logger
	bus    *events.Bus
	device string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor creates a hotplug monitor for the configured device.
func NewMonitor(cfg *config.Config, bus *events.Bus, logger *slog.Logger) *Monitor {
	if cfg == nil || bus == nil {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Monitor{
		logger: logging.NewComponentLogger(logger, "hotplug"),
		bus:    bus,
		device: DevicePath(cfg.Camera.DeviceIndex),
	}
}

// Start begins listening for udev netlink events. A failed netlink connect
// is non-fatal; the session still runs without hotplug signals.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink connect failed; camera hotplug detection unavailable",
			logging.Args(
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_connect_failed"),
				logging.String(logging.FieldErrorHint, "ensure access to netlink sockets"),
			)...)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("hotplug monitor started",
		logging.Args(logging.String("device", m.device))...)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, videoMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Args(logging.Error(err))...)
		}
	}
}

// videoMatcher matches add and remove events on the video4linux subsystem.
func videoMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" || devname != m.device {
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		m.logger.Info("capture device attached",
			logging.Args(logging.String("device", devname))...)
		m.bus.Publish(events.CameraAttached(devname))
	case netlink.REMOVE:
		m.logger.Warn("capture device detached",
			logging.Args(logging.String("device", devname))...)
		m.bus.Publish(events.CameraDetached(devname))
	}
}

func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/dev/") {
			return devname
		}
		return "/dev/" + devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
