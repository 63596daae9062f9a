// Package notify sends desktop notifications through notify-send.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/dori/phitodo/internal/reconcile"
)

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification represents a desktop notification
type Notification struct {
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string
}

// Runner executes the notification command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Notifier handles sending desktop notifications
type Notifier struct {
	enabled bool
	run     Runner
}

// NewNotifier returns a notifier that shells out to notify-send.
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{enabled: enabled, run: execRunner}
}

// WithRunner replaces the command runner.
func (n *Notifier) WithRunner(run Runner) *Notifier {
	n.run = run
	return n
}

// SetEnabled enables or disables notifications
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// Send delivers one notification. It is a no-op when disabled.
func (n *Notifier) Send(ctx context.Context, notification Notification) error {
	if !n.enabled {
		return nil
	}
	return n.run(ctx, "notify-send", Args(notification)...)
}

// Args builds the notify-send argument list.
func Args(notification Notification) []string {
	var args []string
	switch notification.Urgency {
	case UrgencyLow:
		args = append(args, "-u", "low")
	case UrgencyCritical:
		args = append(args, "-u", "critical")
	default:
		args = append(args, "-u", "normal")
	}

	// milliseconds
	if notification.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(notification.Timeout.Milliseconds())))
	}
	if notification.Icon != "" {
		args = append(args, "-i", notification.Icon)
	}
	args = append(args, "-a", "phitodo", notification.Title)
	if notification.Body != "" {
		args = append(args, notification.Body)
	}
	return args
}

// SyncNotification describes a finished refresh. The second result is
// false when nothing happened worth interrupting the user for.
func SyncNotification(summary reconcile.Summary) (Notification, bool) {
	if summary.HasErrors() {
		body := summary.String()
		if first := summary.Errors[0]; first != nil {
			body = fmt.Sprintf("%s\n%v", body, first)
		}
		return Notification{
			Title:   "Sync finished with errors",
			Body:    body,
			Urgency: UrgencyCritical,
			Timeout: 10 * time.Second,
			Icon:    "dialog-warning-symbolic",
		}, true
	}
	if summary.Created == 0 && summary.AutoCompleted == 0 {
		return Notification{}, false
	}
	return Notification{
		Title:   "Sync complete",
		Body:    summary.String(),
		Urgency: UrgencyLow,
		Timeout: 5 * time.Second,
		Icon:    "emblem-synchronizing-symbolic",
	}, true
}

// SendSyncSummary notifies about a refresh that created or completed
// tasks, or failed.
func (n *Notifier) SendSyncSummary(ctx context.Context, summary reconcile.Summary) error {
	notification, ok := SyncNotification(summary)
	if !ok {
		return nil
	}
	return n.Send(ctx, notification)
}

// SendOverdue reminds about overdue tasks.
func (n *Notifier) SendOverdue(ctx context.Context, count int) error {
	if count == 0 {
		return nil
	}
	body := "1 task is overdue"
	if count > 1 {
		body = fmt.Sprintf("%d tasks are overdue", count)
	}
	return n.Send(ctx, Notification{
		Title:   "Overdue tasks",
		Body:    body,
		Urgency: UrgencyNormal,
		Timeout: 10 * time.Second,
		Icon:    "emblem-important-symbolic",
	})
}
