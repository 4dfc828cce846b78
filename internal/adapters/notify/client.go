// Package notify forwards finished analyses to the notification server.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cropadvisor/internal/adapters/config"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/ratelimit"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// Payload is the body accepted by the notification server
type Payload struct {
	Recommendation *suitability.Result `json:"recommendation"`
	PlantID        int64               `json:"plantId"`
	PlantName      string              `json:"plantName"`
	UserEmail      string              `json:"userEmail"`
}

// Client posts analyses to the notification server
type Client struct {
	url     string
	http    *http.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

var _ suitability.Notifier = (*Client)(nil)

// NewClient creates a notification client from config
func NewClient(cfg config.NotifyConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		url:     cfg.URL,
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.NewLimiter("notify", cfg.RateLimit, 1),
		log:     log.With("component", "notify_client"),
	}
}

// Notify sends result together with the plant it belongs to.
// Any non-2xx status is an error.
func (c *Client) Notify(ctx context.Context, result *suitability.Result, plant suitability.PlantMeta) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(Payload{
		Recommendation: result,
		PlantID:        plant.PlantID,
		PlantName:      plant.PlantName,
		UserEmail:      plant.UserEmail,
	})
	if err != nil {
		return errors.Wrap(err, "marshal notify payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build notify request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "notify server: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrap(errors.ErrUnavailable, fmt.Sprintf("notify server returned %d", resp.StatusCode))
	}

	c.log.Infow("Forwarded recommendation to notify server",
		"plant_id", plant.PlantID,
		"plant_name", plant.PlantName,
	)
	return nil
}
