package notify

import (
	"sync"
	"time"

	"github.com/zombor/ai-accountant/internal/clock"
)

// Severity of a user-facing message
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// DefaultTTL is how long a notification stays visible
const DefaultTTL = 4 * time.Second

// Notification is a message shown until Deadline
type Notification struct {
	Message  string
	Severity Severity
	Deadline time.Time
}

// Channel is a single-slot notification holder. It is either empty or showing one
// notification; a new notification replaces the current one immediately.
type Channel struct {
	ttl   time.Duration
	clock clock.TimeSource
	sink  func(Notification)

	mu      sync.Mutex
	showing *Notification
}

// NewChannel creates an empty Channel. sink, if non-nil, receives every shown notification.
func NewChannel(ttl time.Duration, timeSource clock.TimeSource, sink func(Notification)) *Channel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeSource == nil {
		timeSource = clock.System{}
	}
	return &Channel{
		ttl:   ttl,
		clock: timeSource,
		sink:  sink,
	}
}

// Show replaces whatever is showing with a new notification
func (c *Channel) Show(message string, severity Severity) Notification {
	n := Notification{
		Message:  message,
		Severity: severity,
		Deadline: c.clock.Now().Add(c.ttl),
	}

	c.mu.Lock()
	c.showing = &n
	c.mu.Unlock()

	if c.sink != nil {
		c.sink(n)
	}
	return n
}

func (c *Channel) Info(message string) Notification {
	return c.Show(message, SeverityInfo)
}

func (c *Channel) Success(message string) Notification {
	return c.Show(message, SeveritySuccess)
}

func (c *Channel) Error(message string) Notification {
	return c.Show(message, SeverityError)
}

// Current returns the live notification. An expired notification moves the channel
// back to empty.
func (c *Channel) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showing == nil {
		return Notification{}, false
	}
	if !c.clock.Now().Before(c.showing.Deadline) {
		c.showing = nil
		return Notification{}, false
	}
	return *c.showing, true
}

// Dismiss empties the channel
func (c *Channel) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showing = nil
}
