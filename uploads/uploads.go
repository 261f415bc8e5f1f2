// Package uploads polls the creator's public videos page on a fixed interval
// and raises an alert when a new content id shows up. Extraction is
// best-effort regex matching against the page body; a cycle that learns
// nothing is skipped silently and the stored id is left alone.
package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/onnwee/stream-herald/notify"
	"github.com/onnwee/stream-herald/status"
	"github.com/onnwee/stream-herald/telemetry"
)

// The page is fetched anonymously; without a browser-looking UA the platform
// serves a bot interstitial with no video markup in it.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var (
	// Path-style reference to a video, e.g. href="/videos/2233445566".
	pathIDPattern = regexp.MustCompile(`/videos/(\d+)`)
	// Fallback: id embedded in the page's structured data blob.
	dataIDPattern = regexp.MustCompile(`"videoID"\s*:\s*"(\d+)"`)
)

// maxBodyBytes caps how much of the profile page is read; the id shows up
// early in the document, 4MB is generous headroom.
const maxBodyBytes = 4 << 20

type Poller struct {
	ProfileURL string
	Creator    string
	Sink       notify.Notifier
	Status     *status.Tracker
	Interval   time.Duration
	HTTPClient *http.Client
	Log        *slog.Logger

	// seeded flips after the first successful extraction; only then do new
	// ids produce alerts. Touched only by the Run goroutine.
	seeded bool
}

func (p *Poller) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

func (p *Poller) http() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

// Run polls once immediately, then on every tick until ctx is cancelled.
// Cycles run strictly one after another on this goroutine, which is the
// overlap guard keeping the stored id single-writer.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 300 * time.Second
	}
	p.log().Info("upload poller started",
		slog.String("creator", p.Creator),
		slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		p.cycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle is one fetch-compare-store step.
func (p *Poller) cycle(ctx context.Context) {
	telemetry.PollCycles.Inc()
	var id string
	var ok bool
	telemetry.TimeFunc(telemetry.PollDuration, func() {
		id, ok = p.PollOnce(ctx)
	})
	if !ok {
		telemetry.PollMisses.Inc()
		return
	}
	p.observe(ctx, id)
}

// PollOnce fetches the profile page and extracts the most recent content id.
// Any failure mode (network, non-2xx, no pattern match) means "no information
// this cycle" and returns ok=false; nothing here is an error worth escalating.
func (p *Poller) PollOnce(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ProfileURL, nil)
	if err != nil {
		p.log().Warn("upload poll: bad profile url", slog.Any("err", err))
		return "", false
	}
	req.Header.Set("User-Agent", browserUA)
	resp, err := p.http().Do(req)
	if err != nil {
		p.log().Debug("upload poll: fetch failed", slog.Any("err", err))
		return "", false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log().Debug("upload poll: unexpected status", slog.String("status", resp.Status))
		return "", false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		p.log().Debug("upload poll: read failed", slog.Any("err", err))
		return "", false
	}
	return extractContentID(body)
}

func extractContentID(body []byte) (string, bool) {
	if m := pathIDPattern.FindSubmatch(body); m != nil {
		return string(m[1]), true
	}
	if m := dataIDPattern.FindSubmatch(body); m != nil {
		return string(m[1]), true
	}
	return "", false
}

// observe applies the state transition policy: the first successful
// extraction only seeds the store; afterwards a changed id updates the store
// and dispatches exactly one alert.
func (p *Poller) observe(ctx context.Context, id string) {
	if !p.seeded {
		p.seeded = true
		p.Status.SetLastContentID(id)
		p.log().Info("upload poller seeded", slog.String("content_id", id))
		return
	}
	last := p.Status.LastContentID()
	if id == last {
		return
	}
	p.Status.SetLastContentID(id)
	p.log().Info("new upload detected",
		slog.String("content_id", id),
		slog.String("previous", last))
	payload := notify.Payload{
		Kind:  notify.KindUpload,
		Title: fmt.Sprintf("New video from %s", p.Creator),
		URL:   p.videoURL(id),
		Body:  fmt.Sprintf("Video %s was just published.", id),
		At:    time.Now(),
	}
	if err := p.Sink.Notify(ctx, payload); err != nil {
		p.log().Error("upload alert delivery failed", slog.Any("err", err))
		return
	}
	telemetry.UploadNotifications.Inc()
	p.Status.CountUploadNotification()
}

func (p *Poller) videoURL(id string) string {
	return "https://www.twitch.tv/videos/" + id
}
