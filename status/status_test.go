package status

import "testing"

func TestTrackerSnapshot(t *testing.T) {
	tr := NewTracker()
	snap := tr.Snapshot()
	if snap.Connected || snap.LastContentID != "" {
		t.Errorf("fresh tracker snapshot = %+v", snap)
	}

	tr.SetConnected(true)
	tr.SetStreamTitle("the big one")
	tr.SetLastContentID("1111")
	tr.CountLiveNotification()
	tr.CountUploadNotification()
	tr.CountUploadNotification()

	snap = tr.Snapshot()
	if !snap.Connected || snap.StreamTitle != "the big one" || snap.LastContentID != "1111" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.LiveNotifications != 1 || snap.UploadNotifications != 2 {
		t.Errorf("counts = %d/%d, want 1/2", snap.LiveNotifications, snap.UploadNotifications)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime = %d", snap.UptimeSeconds)
	}

	tr.SetConnected(false)
	if tr.Connected() {
		t.Error("Connected() should be false after SetConnected(false)")
	}
	if tr.LastContentID() != "1111" {
		t.Error("clearing the flag must not touch the content id")
	}
}
