// Package inbox reads the signed-in user's notifications from the backend API
// through the notification cache.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/cache"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

const maxResponseBytes = 1 << 20

type notificationID string

// The backend sends numeric ids; older endpoints send strings.
func (id *notificationID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = notificationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("notification id: %w", err)
	}
	*id = notificationID(n.String())
	return nil
}

type notificationPayload struct {
	ID        notificationID `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Read      bool           `json:"read"`
	CreatedAt *time.Time     `json:"createdAt"`
}

// Client fetches the notification list. The bearer header is added by the
// shared HTTP client, so the list always belongs to the current session.
type Client struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

func NewClient(httpClient *http.Client, url string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, url: url, logger: logger}
}

// Fetch is a cache.FetchFunc.
func (c *Client) Fetch(ctx context.Context) ([]cache.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("notifications request failed", zap.String("url", c.url), zap.Error(err))
		return nil, apperrors.NewUnavailableError("notifications", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewUnauthorized("session rejected by the notifications endpoint")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Warn("notifications endpoint failed", zap.Int("status", resp.StatusCode))
		return nil, apperrors.NewUnavailableError("notifications", fmt.Errorf("endpoint returned %d", resp.StatusCode))
	}

	var payload []notificationPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, apperrors.NewUnavailableError("notifications", fmt.Errorf("decode response: %w", err))
	}

	items := make([]cache.Notification, 0, len(payload))
	for _, p := range payload {
		items = append(items, cache.Notification{
			ID:        string(p.ID),
			Title:     p.Title,
			Message:   p.Message,
			Read:      p.Read,
			CreatedAt: p.CreatedAt,
		})
	}
	return items, nil
}
