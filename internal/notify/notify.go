package notify

import (
	"fmt"
	"time"
)

// NotificationType classifies a notification.
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification is one message about a migration run.
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Repo    string // optional repository reference
}

// Notifier sends notifications.
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier fans one notification out to several notifiers. Every
// notifier is attempted; the last error wins.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing.
type NoopNotifier struct{}

func (NoopNotifier) Send(Notification) error { return nil }

// BatchCompleted builds the end-of-batch notification.
func BatchCompleted(completed, failed, skipped int, elapsed time.Duration) Notification {
	typ := NotifySuccess
	if failed > 0 {
		typ = NotifyWarning
	}
	return Notification{
		Title: "Migration batch finished",
		Message: fmt.Sprintf("%d completed, %d failed, %d skipped in %s",
			completed, failed, skipped, elapsed.Round(time.Second)),
		Type: typ,
	}
}

// RepoFailed builds a per-repository failure notification.
func RepoFailed(repo string, err error) Notification {
	return Notification{
		Title:   "Migration failed",
		Message: err.Error(),
		Type:    NotifyError,
		Repo:    repo,
	}
}
