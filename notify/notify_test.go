package notify

import (
	"strings"
	"testing"
	"time"
)

func TestFormatLive(t *testing.T) {
	p := Payload{
		Kind:  KindLive,
		Title: "somecreator is live!",
		URL:   "https://www.twitch.tv/somecreator",
		Body:  "Speedrunning <all> the things",
		At:    time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
	}
	got := Format(p)
	for _, want := range []string{
		`<a href="https://www.twitch.tv/somecreator">`,
		"somecreator is live!",
		"Speedrunning &lt;all&gt; the things",
		"2026-08-29 10:30 UTC",
		"stream-herald",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatUploadNoBody(t *testing.T) {
	p := Payload{
		Kind:  KindUpload,
		Title: "New video from somecreator",
		URL:   "https://www.twitch.tv/videos/2222",
		At:    time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC),
	}
	got := Format(p)
	if strings.Contains(got, "\n\n") {
		t.Errorf("empty body should not leave a blank line:\n%s", got)
	}
	if !strings.Contains(got, "videos/2222") {
		t.Errorf("Format() missing video URL:\n%s", got)
	}
}

func TestFormatEscapesTitle(t *testing.T) {
	got := Format(Payload{Title: "a <b> & c", URL: "https://example.com"})
	if !strings.Contains(got, "a &lt;b&gt; &amp; c") {
		t.Errorf("title not escaped:\n%s", got)
	}
}

func TestNewTelegramRejectsNonNumericChat(t *testing.T) {
	// The chat id is validated before any network call, so a bad value fails
	// fast even without a reachable Telegram API.
	if _, err := NewTelegram("123:abc", "@mychannel", nil); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}

func TestKindString(t *testing.T) {
	if KindLive.String() != "live" || KindUpload.String() != "upload" {
		t.Errorf("unexpected kind strings: %s %s", KindLive, KindUpload)
	}
}
