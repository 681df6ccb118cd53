package reminder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// Notifier delivers a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// CommandNotifier runs an external command with the title and message appended,
// e.g. notify-send.
type CommandNotifier struct {
	Args []string
}

// Notify runs the command and waits for it.
func (n CommandNotifier) Notify(ctx context.Context, title, message string) error {
	if len(n.Args) == 0 {
		return fmt.Errorf("notify command not configured")
	}
	args := append(append([]string{}, n.Args[1:]...), title, message)
	out, err := exec.CommandContext(ctx, n.Args[0], args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", n.Args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", n.Args[0], err)
	}
	return nil
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log *logging.Logger
}

// Notify logs the notification.
func (n LogNotifier) Notify(_ context.Context, title, message string) error {
	n.Log.Infof("%s: %s", title, strings.ReplaceAll(message, "\n", " "))
	return nil
}
