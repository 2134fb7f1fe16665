package notify

import (
	"os/exec"
	"runtime"
)

// DesktopNotifier sends desktop notifications.
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a desktop notifier.
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send shows the notification via the platform mechanism. Unsupported
// platforms are a silent no-op.
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(n)
	case "linux":
		return d.sendLinux(n)
	default:
		return nil
	}
}

func (d *DesktopNotifier) sendMacOS(n Notification) error {
	script := `display notification "` + n.Message + `" with title "` + n.Title + `"`
	return exec.Command("osascript", "-e", script).Run()
}

func (d *DesktopNotifier) sendLinux(n Notification) error {
	return exec.Command("notify-send", n.Title, n.Message).Run()
}
