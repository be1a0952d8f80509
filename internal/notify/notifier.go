package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"portwatch/pkg/logging"
)

// Notifier is the sink the registry pushes watch-transition notifications
// into. Implementations are best-effort: failures are swallowed (logged at
// most) and must never block the caller.
type Notifier interface {
	NotifyPortStarted(port uint16, processName string)
	NotifyPortStopped(port uint16)
	Notify(title, message string)
}

// BusNotifier publishes notifications as events on the bus so in-process
// subscribers (the TUI) see them.
type BusNotifier struct {
	bus Bus
}

// NewBusNotifier builds a Notifier that publishes onto the given bus.
func NewBusNotifier(bus Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) NotifyPortStarted(port uint16, processName string) {
	ev := NewEvent(EventPortStarted)
	ev.Port = port
	ev.ProcessName = processName
	n.bus.Publish(ev)
}

func (n *BusNotifier) NotifyPortStopped(port uint16) {
	ev := NewEvent(EventPortStopped)
	ev.Port = port
	n.bus.Publish(ev)
}

func (n *BusNotifier) Notify(title, message string) {
	ev := NewEvent(EventNotice)
	ev.Title = title
	ev.Message = message
	n.bus.Publish(ev)
}

// DesktopNotifier raises OS desktop notifications. Delivery failures are
// logged and dropped; a missing notification daemon must not surface as an
// engine error.
type DesktopNotifier struct {
	appName string
}

// NewDesktopNotifier builds a desktop notification sink.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{appName: "portwatch"}
}

func (n *DesktopNotifier) send(title, message string) {
	go func() {
		if err := beeep.Notify(title, message, ""); err != nil {
			logging.Debug("Notifier", "desktop notification failed: %v", err)
		}
	}()
}

func (n *DesktopNotifier) NotifyPortStarted(port uint16, processName string) {
	n.send(fmt.Sprintf("Port %d started", port), fmt.Sprintf("%s is now listening on port %d", processName, port))
}

func (n *DesktopNotifier) NotifyPortStopped(port uint16) {
	n.send(fmt.Sprintf("Port %d stopped", port), fmt.Sprintf("Nothing is listening on port %d anymore", port))
}

func (n *DesktopNotifier) Notify(title, message string) {
	n.send(title, message)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) NotifyPortStarted(uint16, string) {}
func (NopNotifier) NotifyPortStopped(uint16)         {}
func (NopNotifier) Notify(string, string)            {}

// MultiNotifier fans a notification out to several sinks.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyPortStarted(port uint16, processName string) {
	for _, n := range m {
		n.NotifyPortStarted(port, processName)
	}
}

func (m MultiNotifier) NotifyPortStopped(port uint16) {
	for _, n := range m {
		n.NotifyPortStopped(port)
	}
}

func (m MultiNotifier) Notify(title, message string) {
	for _, n := range m {
		n.Notify(title, message)
	}
}

var (
	_ Notifier = (*BusNotifier)(nil)
	_ Notifier = (*DesktopNotifier)(nil)
	_ Notifier = NopNotifier{}
	_ Notifier = MultiNotifier{}
)
