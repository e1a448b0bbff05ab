package micmon

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier shows a short user-facing notification about a committed state
// change. Useful when micmon runs from a hotkey with no visible console.
type Notifier interface {
	Notify(title string, message string)
}

// NewNotifier returns the desktop toast notifier, or a no-op one when quiet
// is set.
func NewNotifier(logger *zap.SugaredLogger, quiet bool) Notifier {
	if quiet {
		return noopNotifier{}
	}

	return &toastNotifier{logger: logger.Named("notifier")}
}

// toastNotifier sends desktop toasts. Failures are logged and otherwise
// ignored: a missed toast never affects the committed state.
type toastNotifier struct {
	logger *zap.SugaredLogger
}

func (n *toastNotifier) Notify(title string, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Warnw("Failed to send notification", "title", title, "error", err)
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}
