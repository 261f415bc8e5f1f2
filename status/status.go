// Package status holds the process-wide mutable state the two watcher loops
// maintain: the live-connection flag and the last content id seen by the
// upload poller. Each field has a single writer (the live supervisor or the
// poller); the HTTP status handler reads snapshots, hence the mutex.
package status

import (
	"sync"
	"time"
)

type Tracker struct {
	mu sync.RWMutex

	startedAt time.Time

	connected   bool
	streamTitle string

	lastContentID string

	liveNotifs   uint64
	uploadNotifs uint64
}

func NewTracker() *Tracker {
	return &Tracker{startedAt: time.Now().UTC()}
}

// SetConnected records whether the live push connection is believed healthy.
// Written only by the live supervisor.
func (t *Tracker) SetConnected(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

func (t *Tracker) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// SetStreamTitle records the most recent stream title seen on the connection.
func (t *Tracker) SetStreamTitle(title string) {
	t.mu.Lock()
	t.streamTitle = title
	t.mu.Unlock()
}

// SetLastContentID stores the newest observed content id. Written only by the
// upload poller, and only after a successful extraction.
func (t *Tracker) SetLastContentID(id string) {
	t.mu.Lock()
	t.lastContentID = id
	t.mu.Unlock()
}

func (t *Tracker) LastContentID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastContentID
}

func (t *Tracker) CountLiveNotification() {
	t.mu.Lock()
	t.liveNotifs++
	t.mu.Unlock()
}

func (t *Tracker) CountUploadNotification() {
	t.mu.Lock()
	t.uploadNotifs++
	t.mu.Unlock()
}

// Snapshot is the JSON shape served by /status.
type Snapshot struct {
	Connected           bool   `json:"connected"`
	StreamTitle         string `json:"stream_title,omitempty"`
	LastContentID       string `json:"last_content_id,omitempty"`
	LiveNotifications   uint64 `json:"live_notifications"`
	UploadNotifications uint64 `json:"upload_notifications"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Connected:           t.connected,
		StreamTitle:         t.streamTitle,
		LastContentID:       t.lastContentID,
		LiveNotifications:   t.liveNotifs,
		UploadNotifications: t.uploadNotifs,
		UptimeSeconds:       int64(time.Since(t.startedAt).Seconds()),
	}
}
