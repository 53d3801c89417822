// Package directory is the client for the remote agent and phone number
// directory (Retell API).
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

const (
	agentsPath       = "/list-agents"
	phoneNumbersPath = "/list-phone-numbers"

	// error bodies are truncated before being attached to errors
	maxErrorBody = 512
)

var errMissingAPIKey = errors.New("directory api key is empty")

type Config struct {
	BaseURL string
	// Timeout bounds a single request. Zero leaves the transport default.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.retellai.com",
		Timeout: 15 * time.Second,
	}
}

// Client fetches reference data with a caller supplied API key. It does not
// retry.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(config Config, l *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.Component(l, "directory"),
	}
}

// ListAgents returns the agents visible to apiKey in directory order.
func (c *Client) ListAgents(ctx context.Context, apiKey string) ([]model.Agent, error) {
	var agents []model.Agent
	if err := c.get(ctx, apiKey, agentsPath, &agents); err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []model.Agent{}
	}
	return agents, nil
}

// ListPhoneNumbers returns the outbound numbers visible to apiKey.
func (c *Client) ListPhoneNumbers(ctx context.Context, apiKey string) ([]model.PhoneNumber, error) {
	var numbers []model.PhoneNumber
	if err := c.get(ctx, apiKey, phoneNumbersPath, &numbers); err != nil {
		return nil, err
	}
	if numbers == nil {
		numbers = []model.PhoneNumber{}
	}
	return numbers, nil
}

func (c *Client) get(ctx context.Context, apiKey, path string, out any) error {
	if apiKey == "" {
		return errMissingAPIKey
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("directory request failed",
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("directory returned error status",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode))
		return &appErrors.DirectoryError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	c.logger.Debug("directory request ok",
		zap.String("path", path),
		zap.Duration("duration", time.Since(start)))
	return nil
}
