package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"darkroom/internal/logging"
)

// hotplugKickDelay is how long after a block-device add event the rescan
// fires. The delay gives the automounter time to mount the filesystem and
// coalesces the burst of partition events a single card insert produces.
var hotplugKickDelay = 2 * time.Second

// hotplugMonitor listens for kernel uevents and kicks an engine rescan when
// a block device is attached. This catches SD cards and USB drives mounted
// under a watch root without waiting for the next interval sweep.
type hotplugMonitor struct {
	logger   *slog.Logger
	kick     func()
	isPaused func() bool

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	pending *time.Timer
	running bool
}

func newHotplugMonitor(logger *slog.Logger, kick func(), isPaused func() bool) *hotplugMonitor {
	if kick == nil {
		return nil
	}
	return &hotplugMonitor{
		logger:   logging.NewComponentLogger(logger, "hotplug"),
		kick:     kick,
		isPaused: isPaused,
	}
}

// Start begins monitoring udev events. A connection failure is logged and
// the daemon continues without hotplug detection; interval rescans still
// pick up late-mounted media.
func (m *hotplugMonitor) Start(ctx context.Context) error {
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
		m.logger.Warn("udev monitoring unavailable, relying on interval rescans",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	go m.monitorLoop(ctx, m.quit)

	m.logger.Info("hotplug monitor started")
	return nil
}

// Stop halts event monitoring and cancels any scheduled rescan.
func (m *hotplugMonitor) Stop() {
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
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.running = false

	m.logger.Info("hotplug monitor stopped")
}

// Running reports whether the monitor is active.
func (m *hotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *hotplugMonitor) monitorLoop(ctx context.Context, quit chan struct{}) {
	queue := make(chan netlink.UEvent, 16)
	errs := make(chan error, 4)
	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

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
			if err != nil {
				m.logger.Warn("udev monitor error", logging.Error(err))
			}
		}
	}
}

// buildMatcher matches block-device attach events. Any block subsystem add
// qualifies; SD cards and USB sticks surface as disks plus one partition
// event each, which the pending timer coalesces.
func (m *hotplugMonitor) buildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	})
	return rules
}

func (m *hotplugMonitor) handleEvent(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.pending != nil {
		// A rescan is already scheduled; this event rides along.
		return
	}

	m.logger.Info("block device attached, scheduling rescan",
		logging.String("device", devname),
		logging.Duration("delay", hotplugKickDelay))
	m.pending = time.AfterFunc(hotplugKickDelay, m.firePending)
}

func (m *hotplugMonitor) firePending() {
	m.mu.Lock()
	m.pending = nil
	if !m.running {
		m.mu.Unlock()
		return
	}
	paused := m.isPaused != nil && m.isPaused()
	m.mu.Unlock()

	if paused {
		m.logger.Debug("watching paused, skipping hotplug rescan")
		return
	}
	m.kick()
}

// deviceName gets the device path from a uevent, preferring DEVNAME and
// falling back to the last DEVPATH segment (e.g. /devices/.../block/sdb).
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return "/dev/" + last
}
