package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelLoading Level = "loading"
)

// Duration is how long a toast of this level stays on screen.
// Loading toasts stay until dismissed.
func (l Level) Duration() time.Duration {
	switch l {
	case LevelSuccess:
		return 3 * time.Second
	case LevelError:
		return 5 * time.Second
	case LevelLoading:
		return 0
	default:
		return 4 * time.Second
	}
}

// Notification is both a toast and an inbox entry
type Notification struct {
	ID        string
	Level     Level
	Title     string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
	Read      bool
	Dismissed bool
}

// Notifier raises notifications
type Notifier interface {
	Notify(level Level, title, message string) string
}

// Center keeps active toasts and the notification inbox
type Center struct {
	mu     sync.Mutex
	items  []*Notification
	now    func() time.Time
	logger *slog.Logger
}

// NewCenter creates an empty notification center
func NewCenter(logger *slog.Logger) *Center {
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		now:    time.Now,
		logger: logger.With("component", "notify"),
	}
}

// Notify adds a notification and returns its id
func (c *Center) Notify(level Level, title, message string) string {
	now := c.now()
	n := &Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: now,
	}
	if d := level.Duration(); d > 0 {
		n.ExpiresAt = now.Add(d)
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()

	c.logger.Info("notification", "level", level, "title", title, "message", message)
	return n.ID
}

// Success raises a success toast
func (c *Center) Success(title, message string) string { return c.Notify(LevelSuccess, title, message) }

// Error raises an error toast
func (c *Center) Error(title, message string) string { return c.Notify(LevelError, title, message) }

// Info raises an info toast
func (c *Center) Info(title, message string) string { return c.Notify(LevelInfo, title, message) }

// Loading raises a toast that stays until Dismiss
func (c *Center) Loading(title, message string) string { return c.Notify(LevelLoading, title, message) }

// Dismiss hides a toast; the inbox entry remains
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.items {
		if n.ID == id {
			n.Dismissed = true
		}
	}
}

// Active returns the toasts currently on screen, oldest first
func (c *Center) Active() []Notification {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Notification
	for _, n := range c.items {
		if n.Dismissed {
			continue
		}
		if !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt) {
			continue
		}
		out = append(out, *n)
	}
	return out
}

// All returns every notification, newest first
func (c *Center) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.items))
	for _, n := range c.items {
		if n.Level == LevelLoading {
			continue
		}
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Unread returns unread notifications, newest first
func (c *Center) Unread() []Notification {
	var out []Notification
	for _, n := range c.All() {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount is the badge number
func (c *Center) UnreadCount() int {
	return len(c.Unread())
}

// MarkRead marks one notification as read
func (c *Center) MarkRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.items {
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every notification as read
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.items {
		n.Read = true
	}
}
