// Package toast is the fire-and-forget display surface for transient
// user-facing messages. The notification pipeline hands it display requests
// and never waits for an acknowledgment.
package toast

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDuration is used when a display request passes no duration.
const DefaultDuration = 5 * time.Second

// Notifier receives display requests. Implementations must not block.
type Notifier interface {
	Success(title, message string, duration time.Duration)
	Info(title, message string, duration time.Duration)
	Warning(title, message string, duration time.Duration)
	Error(title, message string, duration time.Duration)
}

// LogNotifier renders toasts as structured log lines; the daemon has no
// screen to draw on.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) show(variant, title, message string, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultDuration
	}
	n.logger.Info("toast",
		slog.String("variant", variant),
		slog.String("title", title),
		slog.String("message", message),
		slog.Duration("duration", duration),
	)
}

// Success displays a success toast.
func (n *LogNotifier) Success(title, message string, duration time.Duration) {
	n.show("success", title, message, duration)
}

// Info displays an info toast.
func (n *LogNotifier) Info(title, message string, duration time.Duration) {
	n.show("info", title, message, duration)
}

// Warning displays a warning toast.
func (n *LogNotifier) Warning(title, message string, duration time.Duration) {
	n.show("warning", title, message, duration)
}

// Error displays an error toast.
func (n *LogNotifier) Error(title, message string, duration time.Duration) {
	n.show("error", title, message, duration)
}

// Displayed is one recorded display request.
type Displayed struct {
	Variant  string
	Title    string
	Message  string
	Duration time.Duration
}

// Recorder captures display requests for tests.
type Recorder struct {
	mu    sync.Mutex
	shown []Displayed
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(variant, title, message string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, Displayed{Variant: variant, Title: title, Message: message, Duration: duration})
}

// Success records a success toast.
func (r *Recorder) Success(title, message string, duration time.Duration) {
	r.record("success", title, message, duration)
}

// Info records an info toast.
func (r *Recorder) Info(title, message string, duration time.Duration) {
	r.record("info", title, message, duration)
}

// Warning records a warning toast.
func (r *Recorder) Warning(title, message string, duration time.Duration) {
	r.record("warning", title, message, duration)
}

// Error records an error toast.
func (r *Recorder) Error(title, message string, duration time.Duration) {
	r.record("error", title, message, duration)
}

// Shown returns a copy of the recorded requests.
func (r *Recorder) Shown() []Displayed {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Displayed, len(r.shown))
	copy(out, r.shown)
	return out
}
