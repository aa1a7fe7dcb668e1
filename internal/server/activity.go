// activity.go - Process-wide last-activity timestamp.
package server

import (
	"sync"
	"time"
)

// ActivityTracker records when the file-transfer routes were last hit. The
// retention sweeper reads it to decide whether the service has been idle long
// enough to purge storage.
type ActivityTracker struct {
	mu   sync.Mutex
	last time.Time

	now func() time.Time // overridable in tests
}

// NewActivityTracker returns a tracker whose last activity is now, so a
// freshly started service is not considered idle.
func NewActivityTracker() *ActivityTracker {
	t := &ActivityTracker{now: time.Now}
	t.last = t.now()
	return t
}

// Touch sets the last activity to now.
func (t *ActivityTracker) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
}

// MinutesSinceLastActivity returns the whole minutes elapsed since the last
// Touch.
func (t *ActivityTracker) MinutesSinceLastActivity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.now().Sub(t.last).Minutes())
}
