package classifier

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Payloads below this size cannot plausibly be an avatar image.
const minPayloadBytes = 64

// fetchImage retrieves the avatar bytes with a bounded timeout. Any
// recoverable failure (timeout, non-2xx, non-image content type, implausibly
// small payload) returns nil rather than an error: acquisition failures
// degrade the whole image to "no signal".
func (c *Classifier) fetchImage(ctx context.Context, url string) []byte {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "avatarguard/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("avatar fetch failed", slog.String("url", url), slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("avatar fetch returned non-2xx", slog.String("url", url), slog.Int("status", resp.StatusCode))
		return nil
	}

	ct := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct != "" && !strings.HasPrefix(ct, "image/") && ct != "application/octet-stream" {
		c.log.Debug("avatar fetch returned non-image content type", slog.String("url", url), slog.String("content_type", ct))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.FetchMaxBytes))
	if err != nil || len(data) < minPayloadBytes {
		return nil
	}
	return data
}
