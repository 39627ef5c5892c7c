package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Severity classifies a notification for display
type Severity string

// Notification severities
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Notification is a user-facing message about a failed or degraded operation
type Notification struct {
	Severity  Severity
	Code      string
	Message   string
	Operation string
	ProductID int
	Err       error
}

// Notifier delivers notifications to the shopper. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a zap logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier logging under the "notifications" name
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifications")}
}

// Notify logs n at warn level for warnings and error level otherwise
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	fields := []zap.Field{
		zap.String("code", n.Code),
		zap.String("operation", n.Operation),
		zap.Int("product_id", n.ProductID),
	}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}

	if n.Severity == SeverityWarning {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Error(n.Message, fields...)
}

// RecordingNotifier keeps every notification in memory
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify records n
func (r *RecordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

// Notifications returns a copy of the recorded notifications
func (r *RecordingNotifier) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*RecordingNotifier)(nil)
	_ Notifier = NotifierFunc(nil)
)
