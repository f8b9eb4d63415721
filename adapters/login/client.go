package login

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/lborres/rota/core"
)

// Config describes the provider login endpoint.
type Config struct {
	URL string

	// TokenField is a dot separated path to the token in the JSON
	// response, e.g. "data.biz_data.user.token".
	TokenField string

	// Headers are sent with every login request.
	Headers map[string]string

	// Timeout bounds a single request when ctx carries no deadline.
	Timeout time.Duration
}

// Client exchanges credentials for a provider token over HTTP.
type Client struct {
	config Config
	http   *client.Client
}

var _ core.LoginClient = (*Client)(nil)

func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("%w: login url is required", core.ErrInvalidConfig)
	}
	if config.TokenField == "" {
		config.TokenField = "token"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	cc := client.New()
	cc.SetTimeout(config.Timeout)

	return &Client{config: config, http: cc}, nil
}

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	Password string `json:"password"`
}

// Login posts the credentials and extracts the token. Identifiers
// containing "@" are sent as email, anything else as mobile.
func (c *Client) Login(ctx context.Context, identifier, password string) (string, error) {
	body := loginRequest{Password: password}
	if strings.Contains(identifier, "@") {
		body.Email = identifier
	} else {
		body.Mobile = identifier
	}

	resp, err := c.http.Post(c.config.URL, client.Config{
		Ctx:    ctx,
		Header: c.config.Headers,
		Body:   body,
	})
	if err != nil {
		return "", err
	}
	defer resp.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", fmt.Errorf("provider responded %d", code)
	}

	return extractToken(resp.Body(), c.config.TokenField)
}

func extractToken(body []byte, path string) (string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}

	current := payload
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", fmt.Errorf("login response has no %q", path)
		}
		current, ok = obj[segment]
		if !ok {
			return "", fmt.Errorf("login response has no %q", path)
		}
	}

	token, ok := current.(string)
	if !ok || token == "" {
		return "", fmt.Errorf("login response field %q is not a token", path)
	}
	return token, nil
}
