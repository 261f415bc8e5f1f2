// Package notify delivers alert messages to the configured chat channel.
// Delivery is best effort: failures are logged and dropped, never retried,
// and never propagate back into the watcher loops.
package notify

import (
	"context"
	"fmt"
	"html"
	"time"
)

type Kind int

const (
	KindLive Kind = iota
	KindUpload
)

func (k Kind) String() string {
	if k == KindLive {
		return "live"
	}
	return "upload"
}

// Payload is one outbound alert.
type Payload struct {
	Kind  Kind
	Title string
	URL   string
	Body  string
	At    time.Time
}

// Notifier is implemented by the Telegram sink and by test fakes.
type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}

const footer = "— stream-herald"

// Format renders a payload as Telegram HTML. Both variants share the shape:
// linked title, body, timestamp, attribution footer.
func Format(p Payload) string {
	out := fmt.Sprintf("<b><a href=%q>%s</a></b>", p.URL, html.EscapeString(p.Title))
	if p.Body != "" {
		out += "\n" + html.EscapeString(p.Body)
	}
	at := p.At
	if at.IsZero() {
		at = time.Now()
	}
	out += "\n" + at.UTC().Format("2006-01-02 15:04 UTC")
	out += "\n" + footer
	return out
}
