package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/tidalflat-cli/internal/pipeline"
)

// Message uses the Discord webhook embed layout, which most chat webhooks
// accept.
type Message struct {
	Embeds []Embed `json:"embeds"`
}

type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

const (
	colorRed   = 16711680
	colorGreen = 65280
)

// Webhook posts run reports. An empty URL turns it into a no-op.
type Webhook struct {
	URL    string
	Client *http.Client
}

func (w Webhook) RunSucceeded(ctx context.Context, output string, s pipeline.Summary) error {
	return w.send(ctx, Embed{
		Title: "✅ Tidal flat classification finished",
		Description: fmt.Sprintf("Output: %s\nTiles: %d\nClassified pixels: %d of %d\nTidal flat pixels: %d\nDuration: %s",
			output, s.Tiles, s.Classified, s.Pixels, s.Kept, s.Duration.Round(time.Second)),
		Color: colorGreen,
	})
}

// RunFailed reports the error; tile failures name the tile to retry.
func (w Webhook) RunFailed(ctx context.Context, runErr error) error {
	description := fmt.Sprintf("An error occurred: %s", runErr)
	var tileErr *pipeline.TileError
	if errors.As(runErr, &tileErr) {
		description = fmt.Sprintf("Retry %s (%s phase).\n\n%s", tileErr.Tile, tileErr.Phase, description)
	}
	return w.send(ctx, Embed{
		Title:       "🚨 Tidal flat classification failed",
		Description: description,
		Color:       colorRed,
	})
}

func (w Webhook) send(ctx context.Context, embed Embed) error {
	if w.URL == "" {
		return nil
	}
	payload, err := json.Marshal(Message{Embeds: []Embed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send notification, status code: %d", resp.StatusCode)
	}
	return nil
}
