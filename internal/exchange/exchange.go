package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

const maxResponseBytes = 1 << 20

// Credentials are the login form fields.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Client exchanges credentials for a session token at the backend login endpoint.
// It never stores the token and never navigates.
type Client struct {
	http     *http.Client
	loginURL string
	logger   *zap.Logger
}

func New(httpClient *http.Client, loginURL string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, loginURL: loginURL, logger: logger}
}

// Exchange posts the credentials and returns the issued token. Every failure
// is an AUTHENTICATION_FAILED DomainError with a user-displayable message.
func (c *Client) Exchange(ctx context.Context, creds Credentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewUnreachableError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		c.logger.Warn("login request failed", zap.String("url", c.loginURL), zap.Error(err))
		return "", apperrors.NewUnreachableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.NewUnreachableError(fmt.Errorf("read login response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.Warn("login endpoint failed", zap.Int("status", resp.StatusCode))
		return "", apperrors.NewUnreachableError(fmt.Errorf("login endpoint returned %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Info("login rejected", zap.Int("status", resp.StatusCode))
		return "", apperrors.NewAuthenticationError(fmt.Errorf("login endpoint returned %d", resp.StatusCode))
	}

	var payload loginResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", apperrors.NewUnreachableError(fmt.Errorf("decode login response: %w", err))
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		return "", apperrors.NewUnreachableError(errors.New("login response carried no token"))
	}
	return token, nil
}
